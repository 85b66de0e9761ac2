package store

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const staleRoomAge = 24 * time.Hour

// StartRoomSweeper schedules a periodic purge of room records that lingered
// in storage after a failed delete at match end. Returns the scheduler so the
// caller can shut it down.
func StartRoomSweeper(rooms RoomStore, interval time.Duration, logger *slog.Logger) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			purged, err := rooms.PurgeStale(time.Now().Add(-staleRoomAge))
			if err != nil {
				logger.Warn("room sweep failed", "error", err)
				return
			}
			if purged > 0 {
				logger.Info("purged stale rooms", "count", purged)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
