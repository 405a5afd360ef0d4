package services

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"airdrop-campaign/models"

	"github.com/jonboulle/clockwork"
)

// ErrInvalidRewardTable is returned by NewRewardTable for tables that cannot
// be sampled fairly.
var ErrInvalidRewardTable = errors.New("invalid spin reward table")

// probabilityEpsilon is the tolerance on the sum of a table's probabilities.
const probabilityEpsilon = 1e-6

// DefaultRewards is the daily wheel.
var DefaultRewards = []models.SpinReward{
	{ID: "jackpot", Label: "Jackpot", Points: 50, Probability: 0.05},
	{ID: "mega", Label: "Mega Win", Points: 25, Probability: 0.10},
	{ID: "big", Label: "Big Win", Points: 15, Probability: 0.15},
	{ID: "normal", Label: "Nice Spin", Points: 10, Probability: 0.30},
	{ID: "small", Label: "Small Win", Points: 5, Probability: 0.40},
}

// RewardTable is a validated, ordered weighted reward table.
type RewardTable struct {
	entries []models.SpinReward
}

// NewRewardTable validates entries: non-empty, unique ids, every probability
// in (0,1], and a sum of 1 within probabilityEpsilon.
func NewRewardTable(entries []models.SpinReward) (*RewardTable, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrInvalidRewardTable)
	}
	seen := make(map[string]struct{}, len(entries))
	var sum float64
	for _, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("%w: entry with empty id", ErrInvalidRewardTable)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidRewardTable, e.ID)
		}
		seen[e.ID] = struct{}{}
		if e.Probability <= 0 || e.Probability > 1 {
			return nil, fmt.Errorf("%w: %q has probability %v outside (0,1]", ErrInvalidRewardTable, e.ID, e.Probability)
		}
		if e.Points < 0 {
			return nil, fmt.Errorf("%w: %q has negative points", ErrInvalidRewardTable, e.ID)
		}
		sum += e.Probability
	}
	if math.Abs(sum-1) > probabilityEpsilon {
		return nil, fmt.Errorf("%w: probabilities sum to %v, want 1", ErrInvalidRewardTable, sum)
	}
	return &RewardTable{entries: append([]models.SpinReward(nil), entries...)}, nil
}

// Entries returns a copy of the table in declared order.
func (t *RewardTable) Entries() []models.SpinReward {
	return append([]models.SpinReward(nil), t.entries...)
}

// Pick maps a uniform draw r in [0,1) to a reward.
func (t *RewardTable) Pick(r float64) models.SpinReward {
	return pickReward(t.entries, r)
}

// pickReward walks entries accumulating probability and returns the first
// entry whose cumulative probability reaches r. If float drift leaves the
// final cumulative below r, the last entry is returned.
func pickReward(entries []models.SpinReward, r float64) models.SpinReward {
	var cumulative float64
	for _, e := range entries {
		cumulative += e.Probability
		if r <= cumulative {
			return e
		}
	}
	return entries[len(entries)-1]
}

// RandomSource yields uniform values in [0,1).
type RandomSource interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Spinner resolves spins and owns the calendar-day eligibility gate.
type Spinner struct {
	table    *RewardTable
	rng      RandomSource
	clock    clockwork.Clock
	location *time.Location
}

// NewSpinner builds a spinner. A nil rng uses the process-wide generator,
// a nil clock the real clock and a nil location UTC.
func NewSpinner(table *RewardTable, rng RandomSource, clock clockwork.Clock, loc *time.Location) *Spinner {
	if rng == nil {
		rng = globalRand{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Spinner{table: table, rng: rng, clock: clock, location: loc}
}

// Table returns the reward table.
func (s *Spinner) Table() *RewardTable { return s.table }

// Location returns the time zone the daily gate is evaluated in.
func (s *Spinner) Location() *time.Location { return s.location }

// Now returns the spinner clock's current time.
func (s *Spinner) Now() time.Time { return s.clock.Now() }

// SameDay reports whether a and b fall on the same calendar date in the
// spinner's time zone.
func (s *Spinner) SameDay(a, b time.Time) bool {
	ay, am, ad := a.In(s.location).Date()
	by, bm, bd := b.In(s.location).Date()
	return ay == by && am == bm && ad == bd
}

// CanSpin reports whether no spin has been recorded today.
func (s *Spinner) CanSpin(lastSpin *time.Time) bool {
	return lastSpin == nil || !s.SameDay(*lastSpin, s.clock.Now())
}

// NextMidnight returns the start of the calendar day after now.
func (s *Spinner) NextMidnight() time.Time {
	now := s.clock.Now().In(s.location)
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, s.location)
}

// Status derives the gate for a wallet from its last spin and history.
func (s *Spinner) Status(lastSpin *time.Time, spins []models.SpinRecord) models.SpinnerStatus {
	now := s.clock.Now()
	status := models.SpinnerStatus{CanSpin: s.CanSpin(lastSpin), LastSpinDate: lastSpin}
	for _, rec := range spins {
		if s.SameDay(rec.SpunAt, now) {
			status.SpinsToday++
		}
	}
	// A reset clears the history but keeps the last spin date.
	if status.SpinsToday == 0 && lastSpin != nil && s.SameDay(*lastSpin, now) {
		status.SpinsToday = 1
	}
	if !status.CanSpin {
		next := s.NextMidnight()
		status.NextSpinAt = &next
	}
	return status
}

// Draw resolves one reward. It is pure with respect to the gate; callers
// check CanSpin first.
func (s *Spinner) Draw() models.SpinReward {
	return s.table.Pick(s.rng.Float64())
}
