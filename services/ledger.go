package services

import (
	"errors"
	"time"

	"airdrop-campaign/models"
)

// ErrConfirmationRequired is returned when a reset is requested without the
// explicit confirmation flag.
var ErrConfirmationRequired = errors.New("reset requires explicit confirmation")

// NewLedger returns a zeroed ledger over a copy of the catalog.
func NewLedger(catalog []models.Task, now time.Time) *models.Ledger {
	l := &models.Ledger{LastUpdated: now}
	return MergeCatalog(l, catalog)
}

// MergeCatalog rebuilds l.Tasks from the catalog, keeping the progress of
// tasks that still exist. Completions are clamped to the current cap and
// removed tasks are dropped.
func MergeCatalog(l *models.Ledger, catalog []models.Task) *models.Ledger {
	tasks := make([]models.Task, 0, len(catalog))
	for _, def := range catalog {
		t := def
		t.Completions = 0
		t.ActionClicked = false
		if i := l.TaskIndex(def.ID); i >= 0 {
			t.Completions = l.Tasks[i].Completions
			t.ActionClicked = l.Tasks[i].ActionClicked
		}
		if t.Completions > t.MaxCompletions {
			t.Completions = t.MaxCompletions
		}
		if t.Completions < 0 {
			t.Completions = 0
		}
		t.Completed = t.Completions == t.MaxCompletions
		tasks = append(tasks, t)
	}
	l.Tasks = tasks
	return l
}

// RecomputeTotal re-derives the local point total from the task set and the
// spin history.
func RecomputeTotal(l *models.Ledger) int64 {
	var total int64
	for _, t := range l.Tasks {
		total += t.Earned()
	}
	for _, s := range l.Spins {
		total += s.Points
	}
	return total
}

// MarkActionClicked opens the action-click gate of a task. It reports
// whether the ledger changed.
func MarkActionClicked(l *models.Ledger, taskID string, now time.Time) bool {
	i := l.TaskIndex(taskID)
	if i < 0 || l.Tasks[i].ActionClicked {
		return false
	}
	l.Tasks[i].ActionClicked = true
	l.LastUpdated = now
	return true
}

// CompleteTask records one completion of a task and re-sums the total.
// Unknown tasks, capped tasks and tasks whose action was not clicked are
// left untouched and false is returned.
func CompleteTask(l *models.Ledger, taskID string, now time.Time) bool {
	i := l.TaskIndex(taskID)
	if i < 0 || !l.Tasks[i].CanComplete() {
		return false
	}
	t := &l.Tasks[i]
	t.Completions++
	t.Completed = t.Completions == t.MaxCompletions
	l.TotalPoints = RecomputeTotal(l)
	l.LastUpdated = now
	return true
}

// ApplySpinReward merges a spin reward into the total without touching any
// task.
func ApplySpinReward(l *models.Ledger, rec models.SpinRecord, now time.Time) {
	l.Spins = append(l.Spins, rec)
	l.TotalPoints += rec.Points
	spunAt := rec.SpunAt
	l.LastSpinDate = &spunAt
	l.LastUpdated = now
}

// ResetProgress zeroes every task and the spin history. The last spin date
// survives so a reset never grants an extra spin the same day.
func ResetProgress(l *models.Ledger, confirm bool, now time.Time) error {
	if !confirm {
		return ErrConfirmationRequired
	}
	for i := range l.Tasks {
		l.Tasks[i].Completions = 0
		l.Tasks[i].Completed = false
		l.Tasks[i].ActionClicked = false
	}
	l.Spins = nil
	l.TotalPoints = 0
	l.LastUpdated = now
	return nil
}
