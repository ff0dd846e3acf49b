package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rendis/leadtap/internal/model"
)

func sampleLeads() []model.LeadRecord {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return []model.LeadRecord{
		{
			CompanyName: "Alpha Print",
			Industry:    "印刷会社",
			Address:     "京都市中京区1-2",
			Phone:       "075-000-0000",
			WebsiteURL:  "https://alpha.example",
			ContactForm: model.ContactFormPresent,
			SocialLinks: "facebook.com, instagram.com",
			Catalog:     "PDF",
			CollectedAt: at,
			MapsURL:     "https://www.google.com/maps/place/Alpha",
			Lat:         35.01,
			Lng:         135.76,
		},
		{
			CompanyName: "Beta",
			Industry:    model.Unknown,
			Address:     model.Unknown,
			Phone:       model.Unknown,
			WebsiteURL:  model.None,
			ContactForm: model.NoneOrUnknown,
			SocialLinks: model.None,
			Catalog:     model.NoneOrUnknown,
			CollectedAt: at,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleLeads()))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, utf8BOM))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, utf8BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, header, records[0])
	assert.Equal(t, []string{
		"印刷会社", "Alpha Print", "https://alpha.example", "075-000-0000", "present",
		"facebook.com, instagram.com", "PDF", "京都市中京区1-2", "", "2024-05-01",
		"https://www.google.com/maps/place/Alpha", "35.010000", "135.760000",
	}, records[1])

	// No coordinates means empty cells, not zeros.
	assert.Equal(t, "", records[2][11])
	assert.Equal(t, "", records[2][12])
	assert.Equal(t, "none", records[2][2])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleLeads()))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Alpha Print", got[0]["company_name"])
	assert.Equal(t, "none/unknown", got[1]["catalog"])
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, CSV, f)

	f, err = ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, JSON, f)

	f, err = ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, XLSX, f)

	_, err = ParseFormat("xls")
	assert.Error(t, err)
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "leadtap_1.csv"), DefaultPath(filepath.Join("out", "leadtap_1.db"), CSV))
	assert.Equal(t, "leads.json", DefaultPath("leads.db", JSON))
}

func TestToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.json")
	require.NoError(t, ToFile(path, JSON, sampleLeads()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"company_name": "Beta"`)
}

func readSheet(t *testing.T, f *excelize.File) [][]string {
	t.Helper()
	rows, err := f.GetRows(Sheet)
	require.NoError(t, err)
	return rows
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleLeads()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows := readSheet(t, f)
	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, []string{
		"印刷会社", "Alpha Print", "https://alpha.example", "075-000-0000", model.ContactFormPresent,
		"facebook.com, instagram.com", "PDF", "京都市中京区1-2", "", "2024-05-01",
		"https://www.google.com/maps/place/Alpha", "35.01", "135.76",
	}, rows[1])
	// Trailing empty cells are not returned.
	assert.Equal(t, "Beta", rows[2][1])
	assert.Equal(t, model.None, rows[2][2])
	assert.LessOrEqual(t, len(rows[2]), len(header)-2)
}

func TestToFileXLSX(t *testing.T) {
	path := DefaultPath(filepath.Join(t.TempDir(), "leadtap_1.db"), XLSX)
	assert.Equal(t, ".xlsx", filepath.Ext(path))
	require.NoError(t, ToFile(path, XLSX, sampleLeads()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, readSheet(t, f), 3)
}
