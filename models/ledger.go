package models

import "time"

// SpinRecord is a spin reward merged into a ledger. Spin points are not tied
// to any task.
type SpinRecord struct {
	ID       string    `json:"id"`
	RewardID string    `json:"rewardId"`
	Label    string    `json:"label"`
	Points   int64     `json:"points"`
	SpunAt   time.Time `json:"spunAt"`
}

// Ledger is the persisted snapshot of one wallet's campaign progress.
type Ledger struct {
	TotalPoints  int64        `json:"totalPoints"`
	Tasks        []Task       `json:"tasks"`
	Spins        []SpinRecord `json:"spins,omitempty"`
	LastSpinDate *time.Time   `json:"lastSpinDate,omitempty"`
	LastUpdated  time.Time    `json:"lastUpdated"`
}

// Clone returns a deep copy so callers can mutate it without touching l.
func (l *Ledger) Clone() *Ledger {
	out := *l
	out.Tasks = append([]Task(nil), l.Tasks...)
	out.Spins = append([]SpinRecord(nil), l.Spins...)
	if l.LastSpinDate != nil {
		t := *l.LastSpinDate
		out.LastSpinDate = &t
	}
	return &out
}

// TaskIndex returns the position of the task with the given id, or -1.
func (l *Ledger) TaskIndex(id string) int {
	for i := range l.Tasks {
		if l.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// Tier is a named reward bracket derived from total points.
type Tier struct {
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	MinPoints int64  `json:"minPoints"`
}

// Progress is the read model handed to HTTP clients and subscribers.
type Progress struct {
	Wallet      string        `json:"wallet"`
	Mode        string        `json:"mode"`
	TotalPoints int64         `json:"totalPoints"`
	Tier        Tier          `json:"tier"`
	Tasks       []Task        `json:"tasks"`
	Spinner     SpinnerStatus `json:"spinner"`
	LastUpdated time.Time     `json:"lastUpdated"`
	Error       string        `json:"error,omitempty"`
}
