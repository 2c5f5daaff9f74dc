package loyalty

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	monthLayout        = "2006-01"
	profileOrdersLimit = 5
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListReferredBy(ctx context.Context, referrerID uuid.UUID) ([]models.User, error)
}

type recentOrders interface {
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]orders.OrderDTO, error)
}

// Service serves the leaderboard, profile and monthly snapshots.
type Service interface {
	Leaderboard(ctx context.Context) (*LeaderboardDTO, error)
	TopUsers(ctx context.Context, limit int) ([]RankedUserDTO, error)
	Profile(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error)
	SnapshotMonth(ctx context.Context, month time.Time) (int, error)
	Monthly(ctx context.Context, key string) (*MonthlyDTO, error)
}

type service struct {
	repo   *Repository
	users  userReader
	orders recentOrders
	tx     txRunner
	cfg    config.LoyaltyConfig
}

func NewService(repo *Repository, userRepo userReader, orderSvc recentOrders, tx txRunner, cfg config.LoyaltyConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("loyalty repository required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cfg.LeaderboardSize <= 0 {
		cfg.LeaderboardSize = 10
	}
	return &service{repo: repo, users: userRepo, orders: orderSvc, tx: tx, cfg: cfg}, nil
}

func (s *service) Leaderboard(ctx context.Context) (*LeaderboardDTO, error) {
	top, err := s.TopUsers(ctx, s.cfg.LeaderboardSize)
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.Totals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "leaderboard totals")
	}
	return &LeaderboardDTO{Top: top, TotalUsers: totals.Users, TotalPoints: totals.Points}, nil
}

func (s *service) TopUsers(ctx context.Context, limit int) ([]RankedUserDTO, error) {
	rows, err := s.repo.TopUsers(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list top users")
	}
	points := make([]int, len(rows))
	for i, row := range rows {
		points[i] = row.Points
	}
	ranks := competitionRanks(points)
	out := make([]RankedUserDTO, 0, len(rows))
	for i, row := range rows {
		out = append(out, RankedUserDTO{Rank: ranks[i], PublicUserDTO: users.PublicFromModel(row)})
	}
	return out, nil
}

// Profile ranks the user as one plus the number of users holding more points.
func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	above, err := s.repo.CountAbove(ctx, user.Points)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rank user")
	}
	referred, err := s.users.ListReferredBy(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list referred users")
	}
	recent, err := s.orders.Recent(ctx, user.ID, profileOrdersLimit)
	if err != nil {
		return nil, err
	}

	profile := &ProfileDTO{
		User:           users.FromModel(user),
		Rank:           above + 1,
		ReferredUsers:  make([]users.PublicUserDTO, 0, len(referred)),
		ReferralPoints: len(referred),
		RecentOrders:   recent,
	}
	for _, r := range referred {
		profile.ReferredUsers = append(profile.ReferredUsers, users.PublicFromModel(r))
	}
	return profile, nil
}

// SnapshotMonth materializes each user's earnings for the calendar month that
// contains month. Reruns overwrite the same rows.
func (s *service) SnapshotMonth(ctx context.Context, month time.Time) (int, error) {
	start := MonthStart(month)
	end := start.AddDate(0, 1, 0)

	var written int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		earnings, err := repo.EarningsBetween(ctx, start, end)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum monthly earnings")
		}
		points := make([]int, len(earnings))
		for i, e := range earnings {
			points[i] = e.Points
		}
		ranks := competitionRanks(points)
		rows := make([]models.MonthlyLeaderboard, 0, len(earnings))
		for i, e := range earnings {
			rows = append(rows, models.MonthlyLeaderboard{Month: start, UserID: e.UserID, Points: e.Points, Rank: ranks[i]})
		}
		if err := repo.ReplaceMonth(ctx, start, rows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store monthly leaderboard")
		}
		written = len(rows)
		return nil
	})
	return written, err
}

func (s *service) Monthly(ctx context.Context, key string) (*MonthlyDTO, error) {
	month, err := ParseMonth(key)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListMonth(ctx, month, s.cfg.LeaderboardSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list monthly leaderboard")
	}
	out := &MonthlyDTO{Month: MonthKey(month), Entries: make([]MonthlyEntryDTO, 0, len(rows))}
	for _, row := range rows {
		entry := MonthlyEntryDTO{Rank: row.Rank, Points: row.Points}
		if row.User != nil {
			entry.Username = row.User.Username
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

// MonthStart truncates t to the first instant of its month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PreviousMonth is the month before the one containing now.
func PreviousMonth(now time.Time) time.Time {
	return MonthStart(now).AddDate(0, -1, 0)
}

func ParseMonth(key string) (time.Time, error) {
	month, err := time.Parse(monthLayout, key)
	if err != nil {
		return time.Time{}, pkgerrors.Newf(pkgerrors.CodeValidation, "month must look like YYYY-MM, got %q", key)
	}
	return month, nil
}

// competitionRanks ranks a descending points slice: each entry is one plus the
// number of entries with strictly more points.
func competitionRanks(points []int) []int {
	ranks := make([]int, len(points))
	for i := range points {
		if i > 0 && points[i] == points[i-1] {
			ranks[i] = ranks[i-1]
			continue
		}
		ranks[i] = i + 1
	}
	return ranks
}
