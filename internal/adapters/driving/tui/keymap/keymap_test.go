package keymap

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()

	require.NotNil(t, km)
}

func TestDefaultKeyMap_Bindings(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		name    string
		binding key.Binding
		keys    []string
	}{
		{"quit", km.Quit, []string{"ctrl+c"}},
		{"help", km.Help, []string{"f1"}},
		{"back", km.Back, []string{"esc"}},
		{"submit", km.Submit, []string{"enter"}},
		{"reset", km.Reset, []string{"ctrl+r"}},
		{"history", km.History, []string{"ctrl+o"}},
		{"up", km.Up, []string{"up", "k"}},
		{"down", km.Down, []string{"down", "j"}},
		{"scroll up", km.ScrollUp, []string{"pgup"}},
		{"scroll down", km.ScrollDown, []string{"pgdown"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.keys, tt.binding.Keys())
			assert.NotEmpty(t, tt.binding.Help().Desc)
		})
	}
}

func TestDefaultKeyMap_ChatKeysAreNotPrintable(t *testing.T) {
	km := DefaultKeyMap()

	for _, b := range km.ShortHelp() {
		if Matches("enter", b) {
			continue
		}
		for _, k := range b.Keys() {
			assert.Greater(t, len(k), 1, "printable key %q would swallow typed text", k)
		}
	}
}

func TestKeyMap_ShortHelp(t *testing.T) {
	km := DefaultKeyMap()

	help := km.ShortHelp()

	require.Len(t, help, 5)
	assert.Equal(t, km.Submit.Keys(), help[0].Keys())
}

func TestKeyMap_HistoryHelp(t *testing.T) {
	km := DefaultKeyMap()

	assert.Len(t, km.HistoryHelp(), 3)
}

func TestKeyMap_FullHelp(t *testing.T) {
	km := DefaultKeyMap()

	help := km.FullHelp()

	require.Len(t, help, 3)
	total := 0
	for _, group := range help {
		total += len(group)
	}
	assert.Equal(t, 8, total)
}

func TestMatches(t *testing.T) {
	km := DefaultKeyMap()

	assert.True(t, Matches("ctrl+r", km.Reset))
	assert.True(t, Matches("k", km.Up))
	assert.False(t, Matches("q", km.Quit))
	assert.False(t, Matches("", km.Submit))
}
