package tui

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const maxRecent = 10

type RecentEntry struct {
	Path     string    `json:"path"`
	Keyword  string    `json:"keyword,omitempty"`
	OpenedAt time.Time `json:"opened_at"`
}

// configDir is swapped in tests.
var configDir = os.UserConfigDir

func recentFilePath() string {
	cfg, _ := configDir()
	return filepath.Join(cfg, "leadtap", "recent.json")
}

func LoadRecent() []RecentEntry {
	data, err := os.ReadFile(recentFilePath())
	if err != nil {
		return nil
	}
	var entries []RecentEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	return entries
}

// SaveRecent moves dbPath to the top of the recent list. An empty keyword
// keeps the one remembered from an earlier visit.
func SaveRecent(dbPath, keyword string) error {
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		abs = dbPath
	}

	entries := LoadRecent()

	filtered := make([]RecentEntry, 0, len(entries)+1)
	for _, e := range entries {
		if e.Path == abs {
			if keyword == "" {
				keyword = e.Keyword
			}
			continue
		}
		filtered = append(filtered, e)
	}

	filtered = append([]RecentEntry{{Path: abs, Keyword: keyword, OpenedAt: time.Now()}}, filtered...)
	if len(filtered) > maxRecent {
		filtered = filtered[:maxRecent]
	}
	return writeRecent(filtered)
}

// ForgetRecent removes dbPath from the recent list.
func ForgetRecent(dbPath string) error {
	entries := LoadRecent()
	kept := entries[:0]
	for _, e := range entries {
		if e.Path != dbPath {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}
	return writeRecent(kept)
}

func writeRecent(entries []RecentEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(recentFilePath()), 0755); err != nil {
		return err
	}
	return os.WriteFile(recentFilePath(), data, 0644)
}
