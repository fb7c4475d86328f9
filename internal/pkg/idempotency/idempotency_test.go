package idempotency

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "idempotency.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReserveCompleteReplay(t *testing.T) {
	s := newTestStore(t)

	res, err := s.Reserve("donor@example.com", "key-1", "contribution-42")
	require.NoError(t, err)
	assert.Equal(t, Reservation{ContributionID: "contribution-42"}, res)

	_, err = s.Reserve("donor@example.com", "key-1", "contribution-43")
	assert.ErrorIs(t, err, ErrInProgress)

	require.NoError(t, s.Complete("donor@example.com", "key-1", "contribution-42"))

	res, err = s.Reserve("donor@example.com", "key-1", "contribution-44")
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, "contribution-42", res.ContributionID)
}

func TestKeysAreScopedPerContributor(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Reserve("a@example.com", "same", "c-1")
	require.NoError(t, err)
	require.NoError(t, s.Complete("a@example.com", "same", "c-1"))

	res, err := s.Reserve("b@example.com", "same", "c-2")
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, "c-2", res.ContributionID)
}

func TestReleaseAllowsRetry(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Reserve("donor@example.com", "key-1", "c-1")
	require.NoError(t, err)
	require.NoError(t, s.Release("donor@example.com", "key-1"))

	res, err := s.Reserve("donor@example.com", "key-1", "c-2")
	require.NoError(t, err)
	assert.Equal(t, Reservation{ContributionID: "c-2"}, res)
}

func TestStalePendingIsReclaimedWithPlannedID(t *testing.T) {
	s := newTestStore(t)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return start })

	_, err := s.Reserve("donor@example.com", "key-1", "c-1")
	require.NoError(t, err)

	s.SetClock(func() time.Time { return start.Add(PendingTimeout + time.Second) })
	res, err := s.Reserve("donor@example.com", "key-1", "c-2")
	require.NoError(t, err)
	assert.True(t, res.Reclaimed)
	assert.False(t, res.Completed)
	assert.Equal(t, "c-1", res.ContributionID)

	// the reclaim refreshed the reservation
	_, err = s.Reserve("donor@example.com", "key-1", "c-3")
	assert.ErrorIs(t, err, ErrInProgress)
}
