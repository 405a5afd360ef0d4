// services/scheduler.go
package services

import (
	"time"

	"airdrop-campaign/utils"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// NewScheduler returns a started gocron scheduler running in the spin time
// zone so daily jobs fire at the same midnight the spin gate uses.
func NewScheduler(loc *time.Location, clock clockwork.Clock) (gocron.Scheduler, error) {
	opts := []gocron.SchedulerOption{gocron.WithLocation(loc)}
	if clock != nil {
		opts = append(opts, gocron.WithClock(clock))
	}
	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, err
	}
	sched.Start()
	return sched, nil
}

// ScheduleSpinnerRollover pushes spinner.ready to live subscribers every
// midnight.
func (h *Hub) ScheduleSpinnerRollover(sched gocron.Scheduler) error {
	_, err := sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 0, 0))),
		gocron.NewTask(func() {
			n := h.BroadcastSpinnerReady()
			utils.LogInfo("[Scheduler] 🎡 daily spin reopened, notified %d session(s)", n)
		}),
		gocron.WithName("spinner-rollover"),
	)
	return err
}
