package views

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rendis/leadtap/internal/engine/storage"
	"github.com/rendis/leadtap/internal/export"
	"github.com/rendis/leadtap/internal/model"
)

func lead(name, industry string) storage.StoredLead {
	return storage.StoredLead{LeadRecord: model.LeadRecord{
		CompanyName: name,
		Industry:    industry,
		Address:     model.Unknown,
		Phone:       model.Unknown,
		WebsiteURL:  model.None,
		ContactForm: model.NoneOrUnknown,
		SocialLinks: model.None,
		Catalog:     model.NoneOrUnknown,
		CollectedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}}
}

func manyLeads(n int) []storage.StoredLead {
	out := make([]storage.StoredLead, n)
	for i := range out {
		out[i] = lead(fmt.Sprintf("Company %02d", i), "printing")
	}
	return out
}

func loaded(t *testing.T, m ExplorerModel, leads []storage.StoredLead) ExplorerModel {
	t.Helper()
	next, _ := m.Update(dbLoadedMsg{Leads: leads, Runs: 1})
	return next.(ExplorerModel)
}

func TestBrowseStatePaging(t *testing.T) {
	s := NewBrowseState()
	assert.Equal(t, PageSize, s.Visible(45))
	assert.Equal(t, 5, s.Visible(5))

	assert.True(t, s.More(45))
	assert.Equal(t, 40, s.Visible(45))
	assert.True(t, s.More(45))
	assert.Equal(t, 45, s.Visible(45))
	assert.False(t, s.More(45))

	s.Selected = 30
	s.Reset()
	assert.Equal(t, PageSize, s.Window)
	assert.Zero(t, s.Selected)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "cafe", normalize("Café"))
	assert.Equal(t, "abc123", normalize("ＡＢＣ１２３"))
	assert.Equal(t, "印刷", normalize("印刷"))
}

func TestFilterLeads(t *testing.T) {
	leads := []storage.StoredLead{
		lead("Alpha Print", "印刷会社"),
		lead("Beta Café", "coffee"),
		lead("Gamma", "printing"),
	}

	assert.Len(t, filterLeads(leads, ""), 3)

	got := filterLeads(leads, "cafe")
	require.Len(t, got, 1)
	assert.Equal(t, "Beta Café", got[0].CompanyName)

	got = filterLeads(leads, "印刷")
	require.Len(t, got, 1)
	assert.Equal(t, "Alpha Print", got[0].CompanyName)

	assert.Empty(t, filterLeads(leads, "alpha coffee"))
}

func TestExplorerShowsFirstPageThenMore(t *testing.T) {
	state := NewBrowseState()
	m := loaded(t, NewExplorerModel("leads.db", state), manyLeads(45))

	assert.Len(t, m.table.Rows(), PageSize)
	assert.Contains(t, m.View(), "n: show 20 more")

	next, _ := m.Update(key("n"))
	m = next.(ExplorerModel)
	assert.Len(t, m.table.Rows(), 40)
	assert.Equal(t, 40, state.Window)

	next, _ = m.Update(key("n"))
	m = next.(ExplorerModel)
	assert.Len(t, m.table.Rows(), 45)
	assert.NotContains(t, m.View(), "n: show")
}

func TestExplorerRestoresCallerState(t *testing.T) {
	state := &BrowseState{Filter: "beta", Window: PageSize, Selected: 0}
	leads := []storage.StoredLead{lead("Alpha", "printing"), lead("Beta", "printing")}

	m := loaded(t, NewExplorerModel("leads.db", state), leads)
	require.Len(t, m.filtered, 1)
	assert.Equal(t, "beta", m.filter.Value())
	got, ok := m.selectedLead()
	require.True(t, ok)
	assert.Equal(t, "Beta", got.CompanyName)
}

func TestExplorerSelectionFollowsCursor(t *testing.T) {
	state := NewBrowseState()
	m := loaded(t, NewExplorerModel("leads.db", state), manyLeads(3))
	assert.Equal(t, "Company 00", m.cardLines[0])

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(ExplorerModel)
	assert.Equal(t, 1, state.Selected)
	assert.Equal(t, "Company 01", m.cardLines[0])
	assert.Contains(t, m.jsonRaw, `"company_name": "Company 01"`)
}

func TestExplorerEmptyFilterResult(t *testing.T) {
	state := NewBrowseState()
	m := loaded(t, NewExplorerModel("leads.db", state), manyLeads(3))
	m.state.Filter = "zzz"
	m.applyFilter()

	assert.Empty(t, m.filtered)
	assert.Equal(t, -1, state.Selected)
	assert.Nil(t, m.cardLines)
	assert.Contains(t, m.View(), "Select a lead")
}

func TestExplorerExportCSV(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "leadtap_1.db")
	m := loaded(t, NewExplorerModel(dbPath, nil), manyLeads(2))

	next, _ := m.Update(key("e"))
	m = next.(ExplorerModel)

	csvPath := filepath.Join(filepath.Dir(dbPath), "leadtap_1.csv")
	assert.Equal(t, "Exported 2 leads to "+csvPath, m.notice)
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Company 01")
}

func TestExplorerExportXLSX(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "leadtap_1.db")
	m := loaded(t, NewExplorerModel(dbPath, nil), manyLeads(2))

	next, _ := m.Update(key("x"))
	m = next.(ExplorerModel)

	xlsxPath := filepath.Join(filepath.Dir(dbPath), "leadtap_1.xlsx")
	assert.Equal(t, "Exported 2 leads to "+xlsxPath, m.notice)
	f, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.Sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"industry", "company_name"}, rows[0][:2])
	assert.Equal(t, "Company 00", rows[1][1])
	assert.Equal(t, "Company 01", rows[2][1])
}

func TestExplorerLoadsFromStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "leads.db")
	store, err := storage.NewStore(dbPath, "JP")
	require.NoError(t, err)
	runID, err := store.BeginRun(model.SearchRequest{Keyword: "Kyoto printing", MaxResults: 2})
	require.NoError(t, err)
	_, err = store.InsertLeads(runID, []model.LeadRecord{manyLeads(2)[0].LeadRecord, manyLeads(2)[1].LeadRecord})
	require.NoError(t, err)
	require.NoError(t, store.FinishRun(runID))
	require.NoError(t, store.Close())

	m := NewExplorerModel(dbPath, nil)
	msg := m.Init()()
	loadedMsg, ok := msg.(dbLoadedMsg)
	require.True(t, ok)
	require.NoError(t, loadedMsg.Err)
	assert.Len(t, loadedMsg.Leads, 2)
	assert.Equal(t, 1, loadedMsg.Runs)
	assert.Equal(t, runID, loadedMsg.Leads[0].RunID)
}

func TestBuildCardLines(t *testing.T) {
	l := lead("Alpha", "printing")
	l.Phone = "075-000-0000"
	l.PhoneE164 = "+81750000000"
	l.ContactForm = model.ContactFormPresent
	l.Lat, l.Lng = 35.01, 135.76
	l.Remarks = "website analysis error: timeout"

	lines := buildCardLines(l)
	assert.Equal(t, "Alpha", lines[0])
	assert.Equal(t, "printing", lines[1])
	assert.Contains(t, lines, "E.164:     +81750000000")
	assert.Contains(t, lines, "Form:      present")
	assert.Contains(t, lines, "Coords:    35.010000, 135.760000")
	assert.Equal(t, "website analysis error: timeout", lines[len(lines)-1])
}

func TestTruncateAndShift(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "", truncate("abc", 0))

	assert.Equal(t, "刷会社", shift("印刷会社", 1))
	assert.Equal(t, "", shift("ab", 5))
	assert.Equal(t, "ab", shift("ab", 0))
}
