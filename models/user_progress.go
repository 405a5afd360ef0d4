package models

import (
	"time"
)

// WalletProgress is the relational row for one wallet's ledger totals
// (denormalized so the leaderboard is a single indexed scan).
type WalletProgress struct {
	Wallet       string     `gorm:"primaryKey;size:64" json:"wallet"`
	TotalPoints  int64      `gorm:"not null;default:0;index" json:"total_points"`
	LastSpinAt   *time.Time `json:"last_spin_at,omitempty"`
	LastUpdated  time.Time  `json:"last_updated"`

	Timestamps
}

// TaskProgress stores completion state of one task for one wallet.
type TaskProgress struct {
	Wallet        string    `gorm:"primaryKey;size:64" json:"wallet"`
	TaskID        string    `gorm:"primaryKey;size:64" json:"task_id"`
	Completions   int       `gorm:"not null;default:0" json:"completions"`
	ActionClicked bool      `gorm:"default:false" json:"action_clicked"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SpinHistory is one persisted spin reward.
type SpinHistory struct {
	ID       string    `gorm:"primaryKey;size:36" json:"id"`
	Wallet   string    `gorm:"index;size:64;not null" json:"wallet"`
	RewardID string    `gorm:"size:32" json:"reward_id"`
	Label    string    `json:"label"`
	Points   int64     `json:"points"`
	SpunAt   time.Time `gorm:"index" json:"spun_at"`
}

// LeaderboardEntry is one ranked wallet.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	Wallet      string `json:"wallet"`
	TotalPoints int64  `json:"total_points"`
	Tier        string `json:"tier"`
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
