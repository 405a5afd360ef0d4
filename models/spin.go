package models

import "time"

// SpinReward is one slice of the daily reward wheel.
type SpinReward struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Points      int64   `json:"points"`
	Probability float64 `json:"probability"`
}

// SpinnerStatus is the per-wallet daily spin gate.
type SpinnerStatus struct {
	CanSpin      bool       `json:"canSpin"`
	SpinsToday   int        `json:"spinsToday"`
	LastSpinDate *time.Time `json:"lastSpinDate,omitempty"`
	NextSpinAt   *time.Time `json:"nextSpinAt,omitempty"`
}

// SpinOutcome is the resolved result of one spin. The reward is fixed when
// the spin is resolved; RevealAfterMs is only a presentation hint.
type SpinOutcome struct {
	ID            string    `json:"id"`
	RewardID      string    `json:"rewardId,omitempty"`
	Label         string    `json:"label"`
	Points        int64     `json:"points"`
	Description   string    `json:"description"`
	TotalPoints   int64     `json:"totalPoints"`
	SpunAt        time.Time `json:"spunAt"`
	RevealAfterMs int64     `json:"revealAfterMs"`
}
