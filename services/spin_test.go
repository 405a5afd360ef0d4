package services

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"airdrop-campaign/models"

	"github.com/jonboulle/clockwork"
)

func TestRewardTableDistribution(t *testing.T) {
	table, err := NewRewardTable(DefaultRewards)
	if err != nil {
		t.Fatalf("default table: %v", err)
	}
	spinner := NewSpinner(table, rand.New(rand.NewPCG(1, 2)), clockwork.NewFakeClock(), time.UTC)

	const draws = 100_000
	counts := make(map[string]int)
	for range draws {
		counts[spinner.Draw().ID]++
	}

	for _, r := range DefaultRewards {
		freq := float64(counts[r.ID]) / draws
		if math.Abs(freq-r.Probability) > 0.01 {
			t.Fatalf("%s drawn %.4f of the time, want %.2f ±0.01", r.ID, freq, r.Probability)
		}
	}
}

func TestRewardTablePickBoundaries(t *testing.T) {
	table, err := NewRewardTable(DefaultRewards)
	if err != nil {
		t.Fatalf("default table: %v", err)
	}
	cases := []struct {
		r    float64
		want string
	}{
		{0, "jackpot"},
		{0.05, "jackpot"},
		{0.0500001, "mega"},
		{0.15, "mega"},
		{0.3, "big"},
		{0.6, "normal"},
		{0.61, "small"},
		{0.999999, "small"},
	}
	for _, tc := range cases {
		if got := table.Pick(tc.r).ID; got != tc.want {
			t.Fatalf("Pick(%v) = %s, want %s", tc.r, got, tc.want)
		}
	}
}

func TestPickRewardFallsBackToLastEntry(t *testing.T) {
	// Sums to 0.999999: a draw past the final cumulative must still resolve.
	entries := []models.SpinReward{
		{ID: "a", Points: 1, Probability: 0.5},
		{ID: "b", Points: 2, Probability: 0.499999},
	}
	if got := pickReward(entries, 0.9999995); got.ID != "b" {
		t.Fatalf("fallback picked %s, want b", got.ID)
	}
}

func TestNewRewardTableValidation(t *testing.T) {
	cases := map[string][]models.SpinReward{
		"empty":        nil,
		"empty id":     {{ID: "", Probability: 1}},
		"duplicate id": {{ID: "a", Probability: 0.5}, {ID: "a", Probability: 0.5}},
		"zero weight":  {{ID: "a", Probability: 1}, {ID: "b", Probability: 0}},
		"over one":     {{ID: "a", Probability: 1.5}},
		"negative":     {{ID: "a", Probability: 1, Points: -1}},
		"short sum":    {{ID: "a", Probability: 0.5}, {ID: "b", Probability: 0.4}},
	}
	for name, entries := range cases {
		if _, err := NewRewardTable(entries); !errors.Is(err, ErrInvalidRewardTable) {
			t.Fatalf("%s: expected ErrInvalidRewardTable, got %v", name, err)
		}
	}

	// Float drift within tolerance is accepted.
	drift := []models.SpinReward{
		{ID: "a", Probability: 0.1},
		{ID: "b", Probability: 0.2},
		{ID: "c", Probability: 0.7000004},
	}
	if _, err := NewRewardTable(drift); err != nil {
		t.Fatalf("drift within tolerance rejected: %v", err)
	}
}

func TestRewardTableEntriesIsACopy(t *testing.T) {
	table, _ := NewRewardTable(DefaultRewards)
	entries := table.Entries()
	entries[0].Points = 1000
	if table.Entries()[0].Points != 50 {
		t.Fatalf("Entries exposed the table's backing array")
	}
}

func TestSpinnerCalendarDayGate(t *testing.T) {
	table, _ := NewRewardTable(DefaultRewards)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC))
	spinner := NewSpinner(table, nil, clock, time.UTC)

	if !spinner.CanSpin(nil) {
		t.Fatalf("a wallet that never spun must be able to spin")
	}

	last := clock.Now()
	if spinner.CanSpin(&last) {
		t.Fatalf("second spin on the same day must be refused")
	}
	status := spinner.Status(&last, []models.SpinRecord{{SpunAt: last}})
	if status.CanSpin || status.SpinsToday != 1 || status.NextSpinAt == nil {
		t.Fatalf("status = %+v", status)
	}
	if want := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC); !status.NextSpinAt.Equal(want) {
		t.Fatalf("next spin at %v, want %v", status.NextSpinAt, want)
	}
	if cleared := spinner.Status(&last, nil); cleared.SpinsToday != 1 {
		t.Fatalf("spin count with cleared history = %d, want 1", cleared.SpinsToday)
	}

	// Two minutes later is a new calendar day, well under 24 hours.
	clock.Advance(2 * time.Minute)
	if !spinner.CanSpin(&last) {
		t.Fatalf("spin must reopen after midnight")
	}
	status = spinner.Status(&last, []models.SpinRecord{{SpunAt: last}})
	if !status.CanSpin || status.SpinsToday != 0 || status.NextSpinAt != nil {
		t.Fatalf("status after midnight = %+v", status)
	}
}

func TestSpinnerUsesConfiguredZone(t *testing.T) {
	table, _ := NewRewardTable(DefaultRewards)
	zone := time.FixedZone("UTC+9", 9*60*60)
	// 14:30 UTC is 23:30 in UTC+9.
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC))
	spinner := NewSpinner(table, nil, clock, zone)

	last := clock.Now()
	clock.Advance(time.Hour) // 00:30 the next day in UTC+9, same day in UTC
	if !spinner.CanSpin(&last) {
		t.Fatalf("gate should follow the configured zone's midnight")
	}
}
