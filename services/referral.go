package services

import (
	"context"
	"errors"
	"fmt"

	"airdrop-campaign/models"
	"airdrop-campaign/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrSelfReferral is returned when a wallet tries to refer itself.
	ErrSelfReferral = errors.New("a wallet cannot refer itself")
	// ErrAlreadyReferred is returned when the referred wallet already has a referrer.
	ErrAlreadyReferred = errors.New("wallet was already referred")
)

type ReferralService struct {
	DB  *gorm.DB
	Hub *Hub
}

func NewReferralService(db *gorm.DB, hub *Hub) *ReferralService {
	return &ReferralService{DB: db, Hub: hub}
}

// Register records that referred joined through referrer's link and credits
// the referrer's invite task. Each wallet can be referred only once.
func (s *ReferralService) Register(ctx context.Context, referrer, referred string) (*models.Referral, error) {
	if referrer == referred {
		return nil, ErrSelfReferral
	}

	ref := models.Referral{
		ID:             uuid.NewString(),
		ReferrerWallet: referrer,
		ReferredWallet: referred,
	}
	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "referred_wallet"}}, DoNothing: true}).
		Create(&ref)
	if res.Error != nil {
		return nil, fmt.Errorf("create referral: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var existing models.Referral
		if err := s.DB.WithContext(ctx).Where("referred_wallet = ?", referred).First(&existing).Error; err != nil {
			return nil, fmt.Errorf("load existing referral: %w", err)
		}
		return &existing, ErrAlreadyReferred
	}

	session, err := s.Hub.Open(ctx, referrer)
	if err != nil {
		s.discard(ctx, &ref)
		return nil, fmt.Errorf("open referrer session: %w", err)
	}
	before := session.Progress().TotalPoints
	progress, applied, err := session.CreditReferral(ctx)
	if err != nil {
		// Drop the row so the referral can be registered again.
		s.discard(ctx, &ref)
		return nil, fmt.Errorf("credit referrer %s: %w", referrer, err)
	}
	if !applied {
		// Cap reached or the catalog has no referral task; the referral
		// still counts, it just earns nothing.
		return &ref, nil
	}

	now := s.Hub.Spinner().Now()
	ref.BonusAwarded = true
	ref.AwardedAt = &now
	ref.PointsEarned = progress.TotalPoints - before
	if err := s.DB.WithContext(ctx).Save(&ref).Error; err != nil {
		return &ref, fmt.Errorf("mark referral awarded: %w", err)
	}
	return &ref, nil
}

func (s *ReferralService) discard(ctx context.Context, ref *models.Referral) {
	if err := s.DB.WithContext(ctx).Delete(&models.Referral{}, "id = ?", ref.ID).Error; err != nil {
		utils.LogError("[REFERRAL] failed to drop uncredited referral %s: %v", ref.ID, err)
	}
}

// CountForReferrer returns how many wallets a referrer brought in.
func (s *ReferralService) CountForReferrer(ctx context.Context, referrer string) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Referral{}).Where("referrer_wallet = ?", referrer).Count(&n).Error
	return n, err
}
