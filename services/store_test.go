package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"airdrop-campaign/models"
	"airdrop-campaign/utils"
)

func newFileStore(t *testing.T) (*BlobSnapshotStore, string) {
	t.Helper()
	dir := t.TempDir()
	bucket, err := utils.NewFileBucket(dir)
	if err != nil {
		t.Fatalf("file bucket: %v", err)
	}
	return NewBlobSnapshotStore(bucket), dir
}

func TestSnapshotKey(t *testing.T) {
	if got := SnapshotKey("0xabc"); got != "airdrop-progress/0xabc.json" {
		t.Fatalf("SnapshotKey = %q", got)
	}
}

func TestBlobSnapshotStoreRoundTrip(t *testing.T) {
	store, _ := newFileStore(t)
	ctx := context.Background()

	if _, err := store.Load(ctx, "wallet1"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}

	l := NewLedger(DefaultCatalog, testNow)
	MarkActionClicked(l, "follow", testNow)
	CompleteTask(l, "follow", testNow)
	ApplySpinReward(l, models.SpinRecord{ID: "s1", RewardID: "small", Points: 5, SpunAt: testNow}, testNow)

	if err := store.Save(ctx, "wallet1", l); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx, "wallet1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TotalPoints != 10 || len(got.Spins) != 1 || got.LastSpinDate == nil {
		t.Fatalf("loaded ledger = %+v", got)
	}
	if i := got.TaskIndex("follow"); i < 0 || !got.Tasks[i].Completed {
		t.Fatalf("follow progress was not persisted")
	}
}

func TestBlobSnapshotStoreCorrupt(t *testing.T) {
	store, dir := newFileStore(t)
	path := filepath.Join(dir, "airdrop-progress", "wallet1.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Load(context.Background(), "wallet1"); !errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("expected ErrCorruptSnapshot, got %v", err)
	}
}

func TestFileBucketRejectsTraversal(t *testing.T) {
	bucket, err := utils.NewFileBucket(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := bucket.Put(context.Background(), "../escape.json", []byte("{}")); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
}
