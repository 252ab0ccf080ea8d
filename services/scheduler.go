// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartCleanupScheduler runs the invitation cleanup sweep every hour. A
// failed sweep is fatal to that run only, never to the serving path.
func (s *InvitationService) StartCleanupScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			if _, err := s.RunCleanupSweep(); err != nil {
				log.Printf("[Scheduler] Invitation sweep failed: %v", err)
			}
		}),
	)
}

// StartAssignmentScheduler creates the day's challenge instances shortly
// after midnight. The job is idempotent, so a restart re-running it is safe.
func (s *ChallengeService) StartAssignmentScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 5, 0))),
		gocron.NewTask(func() {
			if _, err := s.AssignDailyChallenges(); err != nil {
				log.Printf("[Scheduler] Daily challenge assignment failed: %v", err)
			}
		}),
	)
}
