package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/loyalty"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type fakeSnapshotter struct {
	months []string
	failOn string
}

func (f *fakeSnapshotter) SnapshotMonth(_ context.Context, month time.Time) (int, error) {
	key := loyalty.MonthKey(month)
	f.months = append(f.months, key)
	if key == f.failOn {
		return 0, errors.New("boom")
	}
	return 3, nil
}

func newLeaderboardJob(t *testing.T, snap *fakeSnapshotter, lookback int) *leaderboardJob {
	t.Helper()
	jobIface, err := NewLeaderboardJob(LeaderboardJobParams{
		Logger:         logger.New(logger.Options{ServiceName: "test"}),
		Loyalty:        snap,
		LookbackMonths: lookback,
	})
	require.NoError(t, err)
	job := jobIface.(*leaderboardJob)
	job.now = func() time.Time { return time.Date(2026, 3, 1, 0, 30, 0, 0, time.UTC) }
	return job
}

func TestLeaderboardJobSnapshotsPreviousMonth(t *testing.T) {
	snap := &fakeSnapshotter{}
	job := newLeaderboardJob(t, snap, 0)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{"2026-02"}, snap.months)
}

func TestLeaderboardJobContinuesPastFailures(t *testing.T) {
	snap := &fakeSnapshotter{failOn: "2026-01"}
	job := newLeaderboardJob(t, snap, 3)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2026-01")
	assert.Equal(t, []string{"2026-02", "2026-01", "2025-12"}, snap.months)
}

func TestNewLeaderboardJobValidates(t *testing.T) {
	_, err := NewLeaderboardJob(LeaderboardJobParams{})
	assert.Error(t, err)
}
