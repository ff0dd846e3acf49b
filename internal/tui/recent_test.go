package tui

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig := configDir
	configDir = func() (string, error) { return dir, nil }
	t.Cleanup(func() { configDir = orig })
	return dir
}

func TestRecentRoundTrip(t *testing.T) {
	dir := withConfigDir(t)
	assert.Nil(t, LoadRecent())

	db := filepath.Join(dir, "a.db")
	require.NoError(t, SaveRecent(db, "Kyoto printing"))

	entries := LoadRecent()
	require.Len(t, entries, 1)
	assert.Equal(t, db, entries[0].Path)
	assert.Equal(t, "Kyoto printing", entries[0].Keyword)
	assert.FileExists(t, filepath.Join(dir, "leadtap", "recent.json"))
}

func TestRecentMovesToTopAndKeepsKeyword(t *testing.T) {
	dir := withConfigDir(t)
	a, b := filepath.Join(dir, "a.db"), filepath.Join(dir, "b.db")

	require.NoError(t, SaveRecent(a, "Kyoto printing"))
	require.NoError(t, SaveRecent(b, "Osaka cafe"))
	require.NoError(t, SaveRecent(a, ""))

	entries := LoadRecent()
	require.Len(t, entries, 2)
	assert.Equal(t, a, entries[0].Path)
	assert.Equal(t, "Kyoto printing", entries[0].Keyword)
	assert.Equal(t, b, entries[1].Path)
}

func TestRecentIsCapped(t *testing.T) {
	dir := withConfigDir(t)
	for i := 0; i < maxRecent+3; i++ {
		require.NoError(t, SaveRecent(filepath.Join(dir, fmt.Sprintf("%d.db", i)), ""))
	}
	entries := LoadRecent()
	require.Len(t, entries, maxRecent)
	assert.Equal(t, filepath.Join(dir, fmt.Sprintf("%d.db", maxRecent+2)), entries[0].Path)
}

func TestForgetRecent(t *testing.T) {
	dir := withConfigDir(t)
	a, b := filepath.Join(dir, "a.db"), filepath.Join(dir, "b.db")
	require.NoError(t, SaveRecent(a, ""))
	require.NoError(t, SaveRecent(b, ""))

	require.NoError(t, ForgetRecent(a))
	entries := LoadRecent()
	require.Len(t, entries, 1)
	assert.Equal(t, b, entries[0].Path)

	require.NoError(t, ForgetRecent(filepath.Join(dir, "unknown.db")))
	assert.Len(t, LoadRecent(), 1)
}
