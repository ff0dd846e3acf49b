package views

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/leadtap/internal/config"
)

func TestHomeShortcuts(t *testing.T) {
	tests := []struct {
		key  string
		want tea.Msg
	}{
		{"n", NavigateToSearch{}},
		{"l", NavigateToLoad{}},
		{"r", NavigateToRecent{}},
		{"q", tea.QuitMsg{}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			_, cmd := NewHomeModel("dev", nil).Update(key(tt.key))
			require.NotNil(t, cmd)
			assert.Equal(t, tt.want, cmd())
		})
	}
}

func TestHomeCursorSelect(t *testing.T) {
	var m tea.Model = NewHomeModel("dev", nil)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := m.Update(key("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, NavigateToRecent{}, cmd())
}

func TestHomeShowsSettings(t *testing.T) {
	cfg := &config.Config{Analyzer: config.AnalyzerStatic, Lang: "ja", Headless: true,
		Throttle: config.RateLimitConfig{Requests: 10, Interval: time.Minute}}
	view := NewHomeModel("v1.2.0", cfg).View()
	assert.Contains(t, view, "v1.2.0")
	assert.Contains(t, view, "websites: static")
	assert.Contains(t, view, "headless")
	assert.Contains(t, view, "throttle:")

	assert.NotContains(t, NewHomeModel("dev", nil).View(), "websites:")
}
