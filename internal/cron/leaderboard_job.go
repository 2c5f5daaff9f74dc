package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/internal/loyalty"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const defaultLookbackMonths = 1

type monthSnapshotter interface {
	SnapshotMonth(ctx context.Context, month time.Time) (int, error)
}

// LeaderboardJobParams configure the monthly leaderboard snapshot.
type LeaderboardJobParams struct {
	Logger         *logger.Logger
	Loyalty        monthSnapshotter
	LookbackMonths int
}

// NewLeaderboardJob materializes the monthly leaderboard for the most recent
// closed months. Snapshots upsert, so rerunning a month is harmless.
func NewLeaderboardJob(params LeaderboardJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Loyalty == nil {
		return nil, fmt.Errorf("loyalty service required")
	}
	lookback := params.LookbackMonths
	if lookback <= 0 {
		lookback = defaultLookbackMonths
	}
	return &leaderboardJob{
		logg:     params.Logger,
		loyalty:  params.Loyalty,
		lookback: lookback,
		now:      time.Now,
	}, nil
}

type leaderboardJob struct {
	logg     *logger.Logger
	loyalty  monthSnapshotter
	lookback int
	now      func() time.Time
}

func (j *leaderboardJob) Name() string { return "monthly-leaderboard" }

func (j *leaderboardJob) Run(ctx context.Context) error {
	var errs error
	month := loyalty.PreviousMonth(j.now())
	for i := 0; i < j.lookback; i++ {
		rows, err := j.loyalty.SnapshotMonth(ctx, month)
		key := loyalty.MonthKey(month)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("snapshot %s: %w", key, err))
		} else {
			j.logg.Info(j.logg.WithFields(ctx, map[string]any{
				"month": key,
				"rows":  rows,
			}), "leaderboard snapshot stored")
		}
		month = month.AddDate(0, -1, 0)
	}
	return errs
}
