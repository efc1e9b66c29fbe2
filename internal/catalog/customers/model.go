package customers

import (
	"time"
)

// Tier grades customers by lifetime spend.
type Tier string

const (
	TierStandard Tier = "STANDARD"
	TierBronze   Tier = "BRONZE"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
)

// Spend thresholds for each tier, in whole currency units.
const (
	BronzeThreshold   = 500.0
	SilverThreshold   = 1000.0
	GoldThreshold     = 2500.0
	PlatinumThreshold = 5000.0
)

// TierFor returns the tier a lifetime spend qualifies for.
func TierFor(totalSpent float64) Tier {
	switch {
	case totalSpent >= PlatinumThreshold:
		return TierPlatinum
	case totalSpent >= GoldThreshold:
		return TierGold
	case totalSpent >= SilverThreshold:
		return TierSilver
	case totalSpent >= BronzeThreshold:
		return TierBronze
	default:
		return TierStandard
	}
}

// Customer represents a loyalty customer entity
type Customer struct {
	ID            int64     `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email"`
	Phone         *string   `json:"phone,omitempty"`
	Address       *string   `json:"address,omitempty"`
	TotalSpent    float64   `json:"total_spent"`
	LoyaltyPoints int64     `json:"loyalty_points"`
	Tier          Tier      `json:"tier"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
