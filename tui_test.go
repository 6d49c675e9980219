package main

import (
	"testing"

	"github.com/buffos/go-weave/weave"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlayModel(t *testing.T, n int) playModel {
	t.Helper()
	sess, err := weave.NewSession(n, weave.WithLogger(discardLogger))
	require.NoError(t, err)
	return newPlayModel(defaultConfig(), sess)
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func send(t *testing.T, m playModel, msg tea.Msg) (playModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	pm, ok := next.(playModel)
	require.True(t, ok)
	return pm, cmd
}

func TestPlayDecisions(t *testing.T) {
	m := newTestPlayModel(t, 3)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m, _ = send(t, m, runeKey('j'))
	require.Equal(t, 2, m.sess.History().Len())
	assert.Equal(t, weave.Lower, m.sess.History().Commands()[1].Kind)

	m, _ = send(t, m, runeKey('u'))
	assert.Equal(t, 1, m.sess.History().Len())
	assert.Equal(t, "undone", m.status)

	m, _ = send(t, m, runeKey('r'))
	assert.Equal(t, 2, m.sess.History().Len())

	m, _ = send(t, m, runeKey('+'))
	assert.Equal(t, 4, m.sess.N())
	assert.Equal(t, 0, m.sess.History().Len(), "resizing starts a new pattern")

	m, _ = send(t, m, runeKey('-'))
	m, _ = send(t, m, runeKey('-'))
	m, _ = send(t, m, runeKey('-'))
	assert.Equal(t, 2, m.sess.N())
	assert.Equal(t, "grid is at least 2", m.status)
}

func TestPlayReplay(t *testing.T) {
	m := newTestPlayModel(t, 3)
	for _, r := range "kkjjk" {
		m, _ = send(t, m, runeKey(r))
	}
	want := m.sess.ApplyAll()

	m, cmd := send(t, m, runeKey('p'))
	require.NotNil(t, cmd)
	require.NotNil(t, m.replay)
	assert.False(t, m.sess.InputEnabled())

	// Decisions are refused while the replay runs.
	m, _ = send(t, m, runeKey('k'))
	assert.Equal(t, 5, m.sess.History().Len())

	for m.replay != nil {
		m, cmd = send(t, m, replayTickMsg{gen: m.gen})
		require.NotNil(t, cmd)
	}
	assert.True(t, want.Equal(m.sess.Snapshot()), "replay reproduces the pattern")
	assert.True(t, m.sess.InputEnabled())

	m, _ = send(t, m, replaySettledMsg{gen: m.gen})
	st := m.sess.Snapshot()
	assert.Equal(t, 0, st.Cursor(), "pattern is cleared after the settle delay")
	assert.Equal(t, 5, m.sess.History().Len(), "history survives the replay")
}

func TestPlayReplayAbort(t *testing.T) {
	m := newTestPlayModel(t, 3)
	for _, r := range "kjk" {
		m, _ = send(t, m, runeKey(r))
	}
	m, _ = send(t, m, runeKey('p'))
	staleGen := m.gen
	m, _ = send(t, m, replayTickMsg{gen: m.gen})

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, m.replay)
	assert.True(t, m.sess.InputEnabled())
	assert.Equal(t, "replay aborted", m.status)

	// A tick scheduled by the aborted replay is ignored.
	m, cmd := send(t, m, replayTickMsg{gen: staleGen})
	assert.Nil(t, cmd)
	assert.Equal(t, 0, m.sess.Snapshot().Cursor())
}

func TestPlayReplayNeedsHistory(t *testing.T) {
	m := newTestPlayModel(t, 3)
	m, cmd := send(t, m, runeKey('p'))
	assert.Nil(t, cmd)
	assert.Equal(t, "nothing to replay", m.status)
}

func TestPlayView(t *testing.T) {
	m := newTestPlayModel(t, 3)
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyUp})
	view := m.View()
	assert.Contains(t, view, "weave 3x3")
	assert.Contains(t, view, "commands 1")

	m, cmd := send(t, m, runeKey('q'))
	require.NotNil(t, cmd)
	assert.Equal(t, "", m.View())
}
