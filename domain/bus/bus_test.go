package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logica-lang/logica/infrastructure/errors"
)

func TestCreateAssignsSequentialIDs(t *testing.T) {
	b := New()

	r1 := b.Create(1, 2, "grade:review", nil, nil)
	r2 := b.Create(2, 1, "grade:appeal", "please", nil)

	assert.Equal(t, 0, r1.RequestID)
	assert.Equal(t, 1, r2.RequestID)
	assert.Equal(t, StatusPending, r1.Status)
	assert.Equal(t, 2, b.PendingCount())
}

func TestGetSearchesPendingThenResolved(t *testing.T) {
	b := New()
	r := b.Create(1, 2, "act", nil, nil)

	got, ok := b.Get(r.RequestID)
	require.True(t, ok)
	assert.Equal(t, StatusPending, got.Status)

	_, err := b.Respond(r.RequestID, 2, true, nil)
	require.NoError(t, err)

	got, ok = b.Get(r.RequestID)
	require.True(t, ok, "resolved requests are retained for audit")
	assert.Equal(t, StatusAccepted, got.Status)

	_, ok = b.Get(99)
	assert.False(t, ok)
}

func TestRespond(t *testing.T) {
	t.Run("accept", func(t *testing.T) {
		b := New()
		r := b.Create(1, 2, "act", nil, nil)

		got, err := b.Respond(r.RequestID, 2, true, "done")
		require.NoError(t, err)
		assert.Equal(t, StatusAccepted, got.Status)
		assert.Equal(t, "done", got.ResponseData)
		assert.Equal(t, 0, b.PendingCount())
	})

	t.Run("refuse", func(t *testing.T) {
		b := New()
		r := b.Create(1, 2, "act", nil, nil)

		got, err := b.Respond(r.RequestID, 2, false, "no")
		require.NoError(t, err)
		assert.Equal(t, StatusRefused, got.Status)
	})

	t.Run("unknown request", func(t *testing.T) {
		b := New()
		_, err := b.Respond(7, 2, true, nil)
		assert.True(t, errors.Is(err, errors.ErrCodeRequestNotFound))
	})

	t.Run("wrong responder", func(t *testing.T) {
		b := New()
		r := b.Create(1, 2, "act", nil, nil)

		_, err := b.Respond(r.RequestID, 3, true, nil)
		assert.True(t, errors.Is(err, errors.ErrCodeTargetNotFound))

		got, _ := b.Get(r.RequestID)
		assert.Equal(t, StatusPending, got.Status, "failed respond must not resolve")
	})

	t.Run("already resolved", func(t *testing.T) {
		b := New()
		r := b.Create(1, 2, "act", nil, nil)
		_, err := b.Respond(r.RequestID, 2, true, nil)
		require.NoError(t, err)

		_, err = b.Respond(r.RequestID, 2, false, nil)
		assert.True(t, errors.Is(err, errors.ErrCodeRequestNotFound))
	})
}

func TestPendingViews(t *testing.T) {
	b := New()
	b.Create(1, 2, "a", nil, nil)
	b.Create(1, 3, "b", nil, nil)
	b.Create(3, 2, "c", nil, nil)

	forTwo := b.PendingFor(2)
	require.Len(t, forTwo, 2)
	assert.Equal(t, "a", forTwo[0].Action, "FIFO order")
	assert.Equal(t, "c", forTwo[1].Action)

	fromOne := b.PendingFrom(1)
	require.Len(t, fromOne, 2)
	assert.Equal(t, "a", fromOne[0].Action)
}

func TestCheckTimeouts(t *testing.T) {
	b := New()
	now := time.Now()

	past := now.Add(-time.Minute)
	exact := now
	future := now.Add(time.Minute)

	expired1 := b.Create(1, 2, "old", nil, &past)
	expired2 := b.Create(1, 2, "boundary", nil, &exact)
	b.Create(1, 2, "fresh", nil, &future)
	b.Create(1, 2, "eternal", nil, nil)

	expired := b.CheckTimeouts(now)
	require.Len(t, expired, 2)
	assert.Equal(t, StatusExpired, expired1.Status)
	assert.Equal(t, StatusExpired, expired2.Status, "expires_at <= now expires")
	assert.Equal(t, 2, b.PendingCount())

	// Expired requests remain readable.
	got, ok := b.Get(expired1.RequestID)
	require.True(t, ok)
	assert.Equal(t, StatusExpired, got.Status)

	// A second sweep finds nothing new.
	assert.Empty(t, b.CheckTimeouts(now))
}

func TestNewSweeper(t *testing.T) {
	b := New()

	t.Run("invalid schedule", func(t *testing.T) {
		_, err := NewSweeper(b, "not a schedule", nil, nil)
		assert.Error(t, err)
	})

	t.Run("valid schedule", func(t *testing.T) {
		s, err := NewSweeper(b, "@every 1h", nil, nil)
		require.NoError(t, err)
		s.Start()
		s.Stop()
	})
}

func TestSweeperSweep(t *testing.T) {
	b := New()
	past := time.Now().Add(-time.Hour)
	b.Create(1, 2, "stale", nil, &past)

	var batch []*Request
	s, err := NewSweeper(b, "@every 1h", nil, func(expired []*Request) {
		batch = expired
	})
	require.NoError(t, err)

	// Drive the sweep directly; the schedule is for hosts.
	s.sweep()
	require.Len(t, batch, 1)
	assert.Equal(t, StatusExpired, batch[0].Status)
}
