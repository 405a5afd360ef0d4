package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"airdrop-campaign/models"
	"airdrop-campaign/utils"
)

var (
	// ErrSnapshotNotFound means the wallet has no persisted progress yet.
	ErrSnapshotNotFound = errors.New("progress snapshot not found")
	// ErrCorruptSnapshot means persisted progress exists but cannot be decoded.
	ErrCorruptSnapshot = errors.New("progress snapshot is corrupt")
)

// SnapshotKeyPrefix is the fixed key namespace of persisted ledgers.
const SnapshotKeyPrefix = "airdrop-progress"

// SnapshotKey returns the object key of a wallet's ledger.
func SnapshotKey(wallet string) string {
	return SnapshotKeyPrefix + "/" + wallet + ".json"
}

// SnapshotStore persists whole ledger snapshots per wallet.
type SnapshotStore interface {
	Load(ctx context.Context, wallet string) (*models.Ledger, error)
	Save(ctx context.Context, wallet string, l *models.Ledger) error
}

// Bucket is a flat key/value object store (local disk, R2).
type Bucket interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// BlobSnapshotStore keeps each ledger as one JSON object in a Bucket.
type BlobSnapshotStore struct {
	Bucket Bucket
}

func NewBlobSnapshotStore(b Bucket) *BlobSnapshotStore {
	return &BlobSnapshotStore{Bucket: b}
}

func (s *BlobSnapshotStore) Load(ctx context.Context, wallet string) (*models.Ledger, error) {
	data, err := s.Bucket.Get(ctx, SnapshotKey(wallet))
	if errors.Is(err, utils.ErrObjectNotFound) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot for %s: %w", wallet, err)
	}
	return decodeSnapshot(data)
}

func (s *BlobSnapshotStore) Save(ctx context.Context, wallet string, l *models.Ledger) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encode snapshot for %s: %w", wallet, err)
	}
	if err := s.Bucket.Put(ctx, SnapshotKey(wallet), data); err != nil {
		return fmt.Errorf("save snapshot for %s: %w", wallet, err)
	}
	return nil
}

func decodeSnapshot(data []byte) (*models.Ledger, error) {
	var l models.Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return &l, nil
}
