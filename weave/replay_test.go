package weave

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patternRecords(n int) []Record {
	records := make([]Record, n*n)
	for i := range records {
		records[i] = Record{Action: ActionUp, TimeStamp: int64(i + 1)}
		if (i/n+i)%2 == 1 {
			records[i].Action = ActionDown
		}
	}
	return records
}

func TestReplayerMatchesDirectApplication(t *testing.T) {
	s := newTestSession(t, 4)
	_, err := s.Load(patternRecords(5))
	require.NoError(t, err)
	want := s.ApplyAll()
	require.True(t, want.Complete())

	var sleeps []time.Duration
	var frames int
	rp := &Replayer{
		Pace:   250 * time.Millisecond,
		Settle: time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		},
		OnFrame: func(step int, st *State) {
			frames++
			assert.Equal(t, frames, step)
			assert.False(t, s.InputEnabled(), "input must stay disabled mid-replay")
			assert.False(t, s.Raise())
		},
	}

	got, err := rp.Run(context.Background(), s, s.History().Commands())
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
	assert.Equal(t, 25, frames)
	require.Len(t, sleeps, 26)
	assert.Equal(t, time.Second, sleeps[25])

	// Afterwards the pattern is empty and input is back.
	assert.True(t, s.InputEnabled())
	assert.True(t, s.Snapshot().Equal(mustState(t, 5, Blank)))
	assert.Equal(t, 25, s.History().Len())
}

func TestReplayerIsIdempotent(t *testing.T) {
	s := newTestSession(t, 4)
	_, err := s.Load(patternRecords(4))
	require.NoError(t, err)
	rp := &Replayer{Sleep: func(context.Context, time.Duration) error { return nil }}

	a, err := rp.Run(context.Background(), s, s.History().Commands())
	require.NoError(t, err)
	b, err := rp.Run(context.Background(), s, s.History().Commands())
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestReplayDiscardsUndoneCommands(t *testing.T) {
	s := newTestSession(t, 2)
	s.Raise()
	s.Raise()
	s.Raise()
	require.True(t, s.Undo())
	require.Equal(t, 1, s.History().RedoLen())
	want := s.Snapshot()

	rp := &Replayer{Sleep: func(context.Context, time.Duration) error { return nil }}
	final, err := rp.Run(context.Background(), s, s.History().Commands())
	require.NoError(t, err)
	assert.True(t, want.Equal(final))

	assert.Equal(t, 0, s.History().RedoLen())
	assert.False(t, s.Redo(), "nothing left to redo after a replay")
	assert.Equal(t, 2, s.History().Len())
}

func TestReplayerCancellation(t *testing.T) {
	s := newTestSession(t, 4)
	_, err := s.Load(patternRecords(4))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	rp := &Replayer{Sleep: func(ctx context.Context, _ time.Duration) error {
		calls++
		if calls == 3 {
			cancel()
		}
		return ctx.Err()
	}}

	got, err := rp.Run(ctx, s, s.History().Commands())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
	assert.True(t, s.InputEnabled())
	assert.True(t, s.Snapshot().Equal(mustState(t, 4, Blank)), "aborted replay leaves an empty pattern")

	// A context that is already done applies nothing.
	applied := 0
	rp = &Replayer{OnFrame: func(int, *State) { applied++ }}
	_, err = rp.Run(ctx, s, s.History().Commands())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, applied)
}

func TestDefaultSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepCtx(context.Background(), 0))
}

func TestFrames(t *testing.T) {
	s := newTestSession(t, 4)
	_, err := s.Load(patternRecords(3))
	require.NoError(t, err)
	cmds := s.History().Commands()

	frames := Frames(s, cmds)
	require.Len(t, frames, 10)
	assert.True(t, frames[0].Equal(mustState(t, 3, Blank)))
	assert.True(t, frames[9].Equal(s.Snapshot()))
	assert.True(t, s.InputEnabled())

	want := s.ApplyAll()
	assert.True(t, frames[9].Equal(want))
}

func TestReplayStepwise(t *testing.T) {
	s := newTestSession(t, 3)
	s.Raise()
	s.Lower()
	cmds := s.History().Commands()

	r := NewReplay(s, cmds)
	assert.Equal(t, 0, s.Snapshot().Cursor(), "replay starts from a reset pattern")
	assert.False(t, s.InputEnabled())
	for r.Next() {
	}
	assert.True(t, r.Done())
	assert.Equal(t, 2, r.Pos())
	r.Close()
	r.Close()
	assert.True(t, s.InputEnabled())
	assert.Equal(t, Under, s.Snapshot().Cell(2))
}
