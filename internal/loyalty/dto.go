package loyalty

import (
	"time"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/users"
)

type RankedUserDTO struct {
	Rank int `json:"rank"`
	users.PublicUserDTO
}

// LeaderboardDTO is the all-time ranking.
type LeaderboardDTO struct {
	Top         []RankedUserDTO `json:"top"`
	TotalUsers  int64           `json:"total_users"`
	TotalPoints int64           `json:"total_points"`
}

type ProfileDTO struct {
	User           *users.UserDTO        `json:"user"`
	Rank           int64                 `json:"rank"`
	ReferredUsers  []users.PublicUserDTO `json:"referred_users"`
	ReferralPoints int                   `json:"referral_points"`
	RecentOrders   []orders.OrderDTO     `json:"recent_orders"`
}

type MonthlyEntryDTO struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Points   int    `json:"points"`
}

type MonthlyDTO struct {
	Month   string            `json:"month"`
	Entries []MonthlyEntryDTO `json:"entries"`
}

// MonthKey formats month as YYYY-MM.
func MonthKey(month time.Time) string {
	return month.Format(monthLayout)
}
