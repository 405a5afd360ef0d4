package models

import "time"

// Referral links a referred wallet to the wallet that invited it. A wallet
// can only ever be referred once.
type Referral struct {
	ID             string `gorm:"primaryKey;size:36" json:"id"`
	ReferrerWallet string `gorm:"index;size:64;not null" json:"referrer_wallet"`
	ReferredWallet string `gorm:"uniqueIndex;size:64;not null" json:"referred_wallet"`

	PointsEarned int64      `json:"points_earned" gorm:"default:0"`
	BonusAwarded bool       `json:"bonus_awarded" gorm:"default:false"`
	AwardedAt    *time.Time `json:"awarded_at,omitempty"`

	Timestamps
}
