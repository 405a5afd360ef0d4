package models

// TaskType classifies a campaign task. It does not change update logic
// beyond the completion cap.
type TaskType string

const (
	TaskTypeOnce    TaskType = "once"
	TaskTypeDaily   TaskType = "daily"
	TaskTypeLimited TaskType = "limited"
)

// Valid reports whether t is one of the known task types.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeOnce, TaskTypeDaily, TaskTypeLimited:
		return true
	}
	return false
}

// Task is one campaign action together with the user's progress on it.
type Task struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	URL            string   `json:"url,omitempty"` // external action link (social profile, post, invite page)
	Type           TaskType `json:"type"`
	Points         int64    `json:"points"`
	MaxCompletions int      `json:"maxCompletions"`

	Completions   int  `json:"completions"`
	Completed     bool `json:"completed"`
	ActionClicked bool `json:"actionClicked"`
}

// CanComplete reports whether one more completion is allowed right now.
func (t Task) CanComplete() bool {
	return t.ActionClicked && t.Completions < t.MaxCompletions
}

// Earned is the number of points the task contributes to the ledger.
func (t Task) Earned() int64 {
	return t.Points * int64(t.Completions)
}
