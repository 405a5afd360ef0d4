package services

import (
	"context"
	"errors"
	"fmt"

	"airdrop-campaign/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists ledgers relationally: one wallet_progresses row, one
// task_progresses row per task and one spin_histories row per spin.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// Migrate creates the tables the store needs.
func (s *GormStore) Migrate() error {
	return s.DB.AutoMigrate(
		&models.WalletProgress{},
		&models.TaskProgress{},
		&models.SpinHistory{},
		&models.Referral{},
	)
}

func (s *GormStore) Load(ctx context.Context, wallet string) (*models.Ledger, error) {
	db := s.DB.WithContext(ctx)

	var prog models.WalletProgress
	if err := db.Where("wallet = ?", wallet).First(&prog).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("load progress for %s: %w", wallet, err)
	}

	var rows []models.TaskProgress
	if err := db.Where("wallet = ?", wallet).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load task progress for %s: %w", wallet, err)
	}

	var spins []models.SpinHistory
	if err := db.Where("wallet = ?", wallet).Order("spun_at ASC").Find(&spins).Error; err != nil {
		return nil, fmt.Errorf("load spins for %s: %w", wallet, err)
	}

	l := &models.Ledger{
		TotalPoints:  prog.TotalPoints,
		LastSpinDate: prog.LastSpinAt,
		LastUpdated:  prog.LastUpdated,
	}
	// Only progress is stored; MergeCatalog fills in task definitions.
	for _, r := range rows {
		l.Tasks = append(l.Tasks, models.Task{
			ID:            r.TaskID,
			Completions:   r.Completions,
			ActionClicked: r.ActionClicked,
		})
	}
	for _, sp := range spins {
		l.Spins = append(l.Spins, models.SpinRecord{
			ID:       sp.ID,
			RewardID: sp.RewardID,
			Label:    sp.Label,
			Points:   sp.Points,
			SpunAt:   sp.SpunAt,
		})
	}
	return l, nil
}

func (s *GormStore) Save(ctx context.Context, wallet string, l *models.Ledger) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prog := models.WalletProgress{
			Wallet:      wallet,
			TotalPoints: l.TotalPoints,
			LastSpinAt:  l.LastSpinDate,
			LastUpdated: l.LastUpdated,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "wallet"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_points", "last_spin_at", "last_updated", "updated_at"}),
		}).Create(&prog).Error; err != nil {
			return fmt.Errorf("upsert progress for %s: %w", wallet, err)
		}

		if len(l.Tasks) > 0 {
			rows := make([]models.TaskProgress, 0, len(l.Tasks))
			for _, t := range l.Tasks {
				rows = append(rows, models.TaskProgress{
					Wallet:        wallet,
					TaskID:        t.ID,
					Completions:   t.Completions,
					ActionClicked: t.ActionClicked,
				})
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "wallet"}, {Name: "task_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"completions", "action_clicked", "updated_at"}),
			}).Create(&rows).Error; err != nil {
				return fmt.Errorf("upsert task progress for %s: %w", wallet, err)
			}
		}

		// Spins are append-only except on reset, which clears the history.
		ids := make([]string, 0, len(l.Spins))
		for _, sp := range l.Spins {
			ids = append(ids, sp.ID)
		}
		del := tx.Where("wallet = ?", wallet)
		if len(ids) > 0 {
			del = del.Where("id NOT IN ?", ids)
		}
		if err := del.Delete(&models.SpinHistory{}).Error; err != nil {
			return fmt.Errorf("prune spins for %s: %w", wallet, err)
		}
		if len(l.Spins) > 0 {
			spins := make([]models.SpinHistory, 0, len(l.Spins))
			for _, sp := range l.Spins {
				spins = append(spins, models.SpinHistory{
					ID:       sp.ID,
					Wallet:   wallet,
					RewardID: sp.RewardID,
					Label:    sp.Label,
					Points:   sp.Points,
					SpunAt:   sp.SpunAt,
				})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&spins).Error; err != nil {
				return fmt.Errorf("insert spins for %s: %w", wallet, err)
			}
		}
		return nil
	})
}

// Leaderboard returns the top wallets by total points.
func (s *GormStore) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []models.WalletProgress
	if err := s.DB.WithContext(ctx).
		Order("total_points DESC").
		Order("wallet ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}

	entries := make([]models.LeaderboardEntry, len(rows))
	for i, r := range rows {
		entries[i] = models.LeaderboardEntry{
			Rank:        i + 1,
			Wallet:      r.Wallet,
			TotalPoints: r.TotalPoints,
			Tier:        DetermineTier(r.TotalPoints).Name,
		}
	}
	return entries, nil
}
