package services

import (
	"log"

	"golang.org/x/sync/errgroup"
)

// SocialEventDispatcher fans one domain event out to the badge engine and
// challenge auto-verification. Both run concurrently and independently —
// one failing never blocks the other. Dispatch waits only for the primary
// transactional grants; audit rows, notifications and recursive evaluation
// stay detached inside the engines.
type SocialEventDispatcher struct {
	Badges     *BadgeService
	Challenges *ChallengeService
}

func NewSocialEventDispatcher(badges *BadgeService, challenges *ChallengeService) *SocialEventDispatcher {
	return &SocialEventDispatcher{Badges: badges, Challenges: challenges}
}

// Dispatch evaluates badges and challenge auto-verification for the same
// (user, event) pair. Returns the first engine error for observability;
// callers on the serving path treat it as best-effort.
func (d *SocialEventDispatcher) Dispatch(userID, eventName string) error {
	var g errgroup.Group
	g.Go(func() error {
		if err := d.Badges.EvaluateBadges(userID, eventName); err != nil {
			log.Printf("⚠️ [DISPATCH] badge evaluation failed for %s/%s: %v", userID, eventName, err)
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := d.Challenges.EvaluateChallengeCompletion(userID, eventName); err != nil {
			log.Printf("⚠️ [DISPATCH] challenge verification failed for %s/%s: %v", userID, eventName, err)
			return err
		}
		return nil
	})
	return g.Wait()
}
