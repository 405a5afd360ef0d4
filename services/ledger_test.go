package services

import (
	"errors"
	"testing"
	"time"

	"airdrop-campaign/models"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func checkLedgerConsistent(t *testing.T, l *models.Ledger) {
	t.Helper()
	if got := RecomputeTotal(l); got != l.TotalPoints {
		t.Fatalf("total %d does not match task sum plus spins %d", l.TotalPoints, got)
	}
	for _, task := range l.Tasks {
		if task.Completions < 0 || task.Completions > task.MaxCompletions {
			t.Fatalf("task %s completions %d outside [0,%d]", task.ID, task.Completions, task.MaxCompletions)
		}
		if task.Completed != (task.Completions == task.MaxCompletions) {
			t.Fatalf("task %s completed=%v with %d/%d", task.ID, task.Completed, task.Completions, task.MaxCompletions)
		}
	}
}

func TestCompleteFollowTask(t *testing.T) {
	l := NewLedger(DefaultCatalog, testNow)

	if !MarkActionClicked(l, "follow", testNow) {
		t.Fatalf("expected action click to apply")
	}
	if !CompleteTask(l, "follow", testNow) {
		t.Fatalf("expected completion to apply")
	}
	i := l.TaskIndex("follow")
	if l.Tasks[i].Completions != 1 || !l.Tasks[i].Completed {
		t.Fatalf("follow = %+v, want 1 completion and completed", l.Tasks[i])
	}
	if l.TotalPoints != 5 {
		t.Fatalf("total = %d, want 5", l.TotalPoints)
	}

	// Second attempt is a silent no-op.
	if CompleteTask(l, "follow", testNow) {
		t.Fatalf("expected capped completion to be rejected")
	}
	if l.TotalPoints != 5 || l.Tasks[i].Completions != 1 {
		t.Fatalf("ledger changed on rejected completion: %+v", l.Tasks[i])
	}
	checkLedgerConsistent(t, l)
}

func TestCompleteTaskRequiresActionClick(t *testing.T) {
	l := NewLedger(DefaultCatalog, testNow)
	if CompleteTask(l, "join-discord", testNow) {
		t.Fatalf("completion must wait for the action click")
	}
	if l.TotalPoints != 0 {
		t.Fatalf("total = %d, want 0", l.TotalPoints)
	}
}

func TestCompleteUnknownTask(t *testing.T) {
	l := NewLedger(DefaultCatalog, testNow)
	before := l.Clone()
	if MarkActionClicked(l, "nope", testNow) || CompleteTask(l, "nope", testNow) {
		t.Fatalf("unknown task must be a no-op")
	}
	if l.TotalPoints != before.TotalPoints || len(l.Tasks) != len(before.Tasks) {
		t.Fatalf("ledger changed for unknown task")
	}
}

func TestLimitedTaskStopsAtCap(t *testing.T) {
	l := NewLedger(DefaultCatalog, testNow)
	MarkActionClicked(l, "daily-check-in", testNow)

	applied := 0
	for range 10 {
		if CompleteTask(l, "daily-check-in", testNow) {
			applied++
		}
		checkLedgerConsistent(t, l)
	}
	if applied != 7 {
		t.Fatalf("applied %d completions, want 7", applied)
	}
	if l.TotalPoints != 14 {
		t.Fatalf("total = %d, want 14", l.TotalPoints)
	}
}

func TestActionClickGateStaysOpen(t *testing.T) {
	l := NewLedger(DefaultCatalog, testNow)
	MarkActionClicked(l, ReferralTaskID, testNow)
	CompleteTask(l, ReferralTaskID, testNow)
	if !CompleteTask(l, ReferralTaskID, testNow) {
		t.Fatalf("second completion of a limited task should not need another click")
	}
	if MarkActionClicked(l, ReferralTaskID, testNow) {
		t.Fatalf("clicking an open gate should report no change")
	}
}

func TestApplySpinRewardKeepsTasks(t *testing.T) {
	l := NewLedger(DefaultCatalog, testNow)
	MarkActionClicked(l, "follow", testNow)
	CompleteTask(l, "follow", testNow)
	tasksBefore := append([]models.Task(nil), l.Tasks...)

	ApplySpinReward(l, models.SpinRecord{ID: "s1", RewardID: "big", Points: 15, SpunAt: testNow}, testNow)

	if l.TotalPoints != 20 {
		t.Fatalf("total = %d, want 20", l.TotalPoints)
	}
	if l.LastSpinDate == nil || !l.LastSpinDate.Equal(testNow) {
		t.Fatalf("last spin date = %v, want %v", l.LastSpinDate, testNow)
	}
	for i := range tasksBefore {
		if tasksBefore[i] != l.Tasks[i] {
			t.Fatalf("spin touched task %s", l.Tasks[i].ID)
		}
	}
	checkLedgerConsistent(t, l)

	// A later completion re-sums and must not drop the spin points.
	MarkActionClicked(l, "retweet", testNow)
	CompleteTask(l, "retweet", testNow)
	if l.TotalPoints != 25 {
		t.Fatalf("total after completion = %d, want 25", l.TotalPoints)
	}
}

func TestRecomputeTotalIsIdempotent(t *testing.T) {
	l := NewLedger(DefaultCatalog, testNow)
	MarkActionClicked(l, "join-telegram", testNow)
	CompleteTask(l, "join-telegram", testNow)
	ApplySpinReward(l, models.SpinRecord{ID: "s1", Points: 5, SpunAt: testNow}, testNow)

	first := RecomputeTotal(l)
	if second := RecomputeTotal(l); first != second {
		t.Fatalf("recompute not idempotent: %d then %d", first, second)
	}
	if first != 15 {
		t.Fatalf("recompute = %d, want 15", first)
	}
}

func TestResetProgress(t *testing.T) {
	l := NewLedger(DefaultCatalog, testNow)
	MarkActionClicked(l, "follow", testNow)
	CompleteTask(l, "follow", testNow)
	ApplySpinReward(l, models.SpinRecord{ID: "s1", Points: 50, SpunAt: testNow}, testNow)

	if err := ResetProgress(l, false, testNow); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	if l.TotalPoints != 55 {
		t.Fatalf("unconfirmed reset changed total to %d", l.TotalPoints)
	}

	if err := ResetProgress(l, true, testNow); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if l.TotalPoints != 0 || len(l.Spins) != 0 {
		t.Fatalf("reset left total=%d spins=%d", l.TotalPoints, len(l.Spins))
	}
	for _, task := range l.Tasks {
		if task.Completions != 0 || task.Completed || task.ActionClicked {
			t.Fatalf("reset left task %+v", task)
		}
	}
	if l.LastSpinDate == nil {
		t.Fatalf("reset must keep the last spin date")
	}
	checkLedgerConsistent(t, l)
}

func TestMergeCatalog(t *testing.T) {
	l := &models.Ledger{Tasks: []models.Task{
		{ID: "follow", MaxCompletions: 1, Completions: 1, Completed: true, ActionClicked: true, Points: 5},
		{ID: "daily-check-in", MaxCompletions: 7, Completions: 6, ActionClicked: true, Points: 2},
		{ID: "retired", MaxCompletions: 1, Completions: 1, Points: 100},
	}}
	catalog := []models.Task{
		{ID: "follow", Type: models.TaskTypeOnce, Points: 5, MaxCompletions: 1},
		{ID: "daily-check-in", Type: models.TaskTypeDaily, Points: 2, MaxCompletions: 3},
		{ID: "brand-new", Type: models.TaskTypeOnce, Points: 10, MaxCompletions: 1},
	}

	MergeCatalog(l, catalog)

	if len(l.Tasks) != 3 {
		t.Fatalf("tasks = %d, want 3", len(l.Tasks))
	}
	if l.TaskIndex("retired") >= 0 {
		t.Fatalf("removed task survived the merge")
	}
	daily := l.Tasks[l.TaskIndex("daily-check-in")]
	if daily.Completions != 3 || !daily.Completed || !daily.ActionClicked {
		t.Fatalf("daily = %+v, want clamped to 3 and completed", daily)
	}
	fresh := l.Tasks[l.TaskIndex("brand-new")]
	if fresh.Completions != 0 || fresh.ActionClicked {
		t.Fatalf("new task should start empty: %+v", fresh)
	}
	if got := RecomputeTotal(l); got != 11 {
		t.Fatalf("recomputed total = %d, want 11", got)
	}
}

func TestLedgerCloneIsDeep(t *testing.T) {
	l := NewLedger(DefaultCatalog, testNow)
	ApplySpinReward(l, models.SpinRecord{ID: "s1", Points: 5, SpunAt: testNow}, testNow)

	c := l.Clone()
	c.Tasks[0].Completions = 1
	c.Spins[0].Points = 99
	*c.LastSpinDate = testNow.Add(time.Hour)

	if l.Tasks[0].Completions != 0 || l.Spins[0].Points != 5 || !l.LastSpinDate.Equal(testNow) {
		t.Fatalf("mutating the clone changed the original")
	}
}
