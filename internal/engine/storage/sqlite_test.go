package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/leadtap/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "leads.db"), "jp")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func lead(name, phone string) model.LeadRecord {
	return model.NewLeadRecord(model.Details{
		Name:       name,
		Industry:   "Printing",
		Address:    "Kyoto",
		Phone:      phone,
		WebsiteURL: "https://" + name + ".example",
		Lat:        35.01,
		Lng:        135.76,
	}, model.WebsiteAnalysis{HasContactForm: true}, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)

	runID, err := s.BeginRun(model.SearchRequest{Keyword: "Kyoto printing", MaxResults: 3})
	require.NoError(t, err)

	n, err := s.InsertLeads(runID, []model.LeadRecord{lead("alpha", "03-1234-5678"), lead("beta", model.Unknown)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.InsertLeads(runID, []model.LeadRecord{lead("gamma", "not a phone")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.FinishRun(runID))

	leads, err := s.Leads(runID)
	require.NoError(t, err)
	require.Len(t, leads, 3)
	assert.Equal(t, "alpha", leads[0].CompanyName)
	assert.Equal(t, "beta", leads[1].CompanyName)
	assert.Equal(t, "gamma", leads[2].CompanyName)
	assert.Equal(t, "+81312345678", leads[0].PhoneE164)
	assert.Empty(t, leads[1].PhoneE164)
	assert.Empty(t, leads[2].PhoneE164)
	assert.Equal(t, runID, leads[0].RunID)
	assert.Equal(t, model.ContactFormPresent, leads[0].ContactForm)
	assert.Equal(t, model.None, leads[0].SocialLinks)
	assert.InDelta(t, 35.01, leads[0].Lat, 1e-9)
	assert.Equal(t, "2026-05-01", leads[0].CollectedDate())

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, "Kyoto printing", runs[0].Keyword)
	assert.Equal(t, 3, runs[0].Leads)
	assert.False(t, runs[0].FinishedAt.IsZero())

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestStoreLeadsAcrossRuns(t *testing.T) {
	s := newTestStore(t)

	first, err := s.BeginRun(model.SearchRequest{Keyword: "a", MaxResults: 1})
	require.NoError(t, err)
	second, err := s.BeginRun(model.SearchRequest{Keyword: "b", MaxResults: 1})
	require.NoError(t, err)

	_, err = s.InsertLeads(first, []model.LeadRecord{lead("one", "")})
	require.NoError(t, err)
	_, err = s.InsertLeads(second, []model.LeadRecord{lead("two", "")})
	require.NoError(t, err)

	all, err := s.Leads(uuid.Nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	only, err := s.Leads(second)
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "two", only[0].CompanyName)
}

func TestStoreRejectsUnknownRun(t *testing.T) {
	s := newTestStore(t)

	_, err := s.InsertLeads(uuid.New(), []model.LeadRecord{lead("orphan", "")})
	assert.Error(t, err)
}

func TestInsertLeadsAppendsBatches(t *testing.T) {
	s := newTestStore(t)
	runID, err := s.BeginRun(model.SearchRequest{Keyword: "Kyoto printing", MaxResults: 4})
	require.NoError(t, err)

	batch := []model.LeadRecord{lead("alpha", ""), lead("beta", "")}
	n, err := s.InsertLeads(runID, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = s.InsertLeads(runID, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	leads, err := s.Leads(runID)
	require.NoError(t, err)
	var names []string
	for _, l := range leads {
		names = append(names, l.CompanyName)
	}
	assert.Equal(t, []string{"alpha", "beta", "alpha", "beta"}, names)
}
