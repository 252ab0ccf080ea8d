package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"habit-reward-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvitationService struct {
	DB         *gorm.DB
	Notifier   Notifier
	Tasks      *TaskRunner
	Dispatcher *SocialEventDispatcher
}

func NewInvitationService(db *gorm.DB, notifier Notifier, tasks *TaskRunner, dispatcher *SocialEventDispatcher) *InvitationService {
	return &InvitationService{DB: db, Notifier: notifier, Tasks: tasks, Dispatcher: dispatcher}
}

// CreateInvitation proposes a challenge to a friend. Every rule is checked
// inside the creation transaction, so a violation writes nothing:
//   - sender and receiver must be friends
//   - the challenge must be active and assigned to the sender today
//   - the sender's instance must not itself come from a received invitation
//   - one invitation per (sender, receiver) per day
//   - one invitation per (sender, challenge) per day
//
// If the receiver already holds today's instance of the same challenge the
// invitation links to it at creation.
func (s *InvitationService) CreateInvitation(fromUserID, toUserID, challengeID, message string) (*models.ChallengeInvitation, error) {
	if fromUserID == toUserID {
		return nil, validationErr("cannot invite yourself")
	}

	var created models.ChallengeInvitation
	today := dateKey(time.Now())
	start, end := dayRange(time.Now())

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		friends, err := IsFriends(tx, fromUserID, toUserID)
		if err != nil {
			return err
		}
		if !friends {
			return validationErr("users are not friends")
		}

		var challenge models.Challenge
		if err := tx.Where("id = ?", challengeID).First(&challenge).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("challenge %s: %w", challengeID, ErrNotFound)
			}
			return err
		}
		if !challenge.IsActive {
			return validationErr("challenge is not active")
		}

		var senderInstance models.UserChallenge
		err = tx.Where("user_id = ? AND challenge_id = ? AND assigned_at >= ? AND assigned_at < ?",
			fromUserID, challengeID, start, end).
			First(&senderInstance).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return validationErr("you do not have this challenge assigned today")
		}
		if err != nil {
			return err
		}

		// No re-gifting: an instance created or linked by an invitation the
		// sender received cannot be forwarded.
		var receivedVia int64
		if err := tx.Model(&models.ChallengeInvitation{}).
			Where("to_user_id = ? AND user_challenge_id = ?", fromUserID, senderInstance.ID).
			Count(&receivedVia).Error; err != nil {
			return err
		}
		if receivedVia > 0 {
			return validationErr("cannot re-share a challenge you received through an invitation")
		}

		var sentToTarget int64
		if err := tx.Model(&models.ChallengeInvitation{}).
			Where("from_user_id = ? AND to_user_id = ? AND date = ?", fromUserID, toUserID, today).
			Count(&sentToTarget).Error; err != nil {
			return err
		}
		if sentToTarget > 0 {
			return validationErr("you already invited this friend today")
		}

		var sentForChallenge int64
		if err := tx.Model(&models.ChallengeInvitation{}).
			Where("from_user_id = ? AND challenge_id = ? AND date = ?", fromUserID, challengeID, today).
			Count(&sentForChallenge).Error; err != nil {
			return err
		}
		if sentForChallenge > 0 {
			return validationErr("you already used this challenge for an invitation today")
		}

		invitation := models.ChallengeInvitation{
			ID:          uuid.NewString(),
			FromUserID:  fromUserID,
			ToUserID:    toUserID,
			ChallengeID: challengeID,
			Status:      models.InvitationStatusPending,
			Message:     message,
			Date:        today,
		}

		// Link the receiver's existing instance instead of duplicating it later.
		var receiverInstance models.UserChallenge
		err = tx.Where("user_id = ? AND challenge_id = ? AND assigned_at >= ? AND assigned_at < ?",
			toUserID, challengeID, start, end).
			First(&receiverInstance).Error
		if err == nil {
			invitation.UserChallengeID = &receiverInstance.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(&invitation).Error; err != nil {
			return err
		}
		created = invitation
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✉️ [INVITE] %s → %s (challenge %s)", fromUserID, toUserID, challengeID)

	// Best-effort, independent of each other and of the committed row.
	s.Tasks.Go("invite-notify", func() error {
		return s.Notifier.SendToUser(toUserID, "Challenge invitation",
			"A friend invited you to a challenge!")
	})
	s.Tasks.Go("invite-sent-dispatch", func() error {
		return s.Dispatcher.Dispatch(fromUserID, models.EventChallengeInviteSent)
	})

	return &created, nil
}

// errAcceptRace aborts the accepting transaction when the guarded status
// flip finds the invitation no longer PENDING; the created instance (if any)
// rolls back with it.
var errAcceptRace = errors.New("invitation accepted concurrently")

// markAccepted flips a PENDING invitation to ACCEPTED with its instance link.
// The status predicate is re-evaluated at write time, so it arbitrates
// concurrent accepts: false means another transaction committed first.
func markAccepted(tx *gorm.DB, invitationID, userChallengeID string) (bool, error) {
	res := tx.Model(&models.ChallengeInvitation{}).
		Where("id = ? AND status = ?", invitationID, models.InvitationStatusPending).
		Updates(map[string]interface{}{
			"status":            models.InvitationStatusAccepted,
			"user_challenge_id": userChallengeID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AcceptInvitation marks the invitation accepted for the addressee, linking
// or creating their own challenge instance. Accepting an already-accepted
// invitation is a silent no-op (idempotency race, not an error).
func (s *InvitationService) AcceptInvitation(invitationID, userID string) (*models.ChallengeInvitation, error) {
	var accepted models.ChallengeInvitation
	alreadyAccepted := false

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var invitation models.ChallengeInvitation
		if err := tx.Where("id = ?", invitationID).First(&invitation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("invitation %s: %w", invitationID, ErrNotFound)
			}
			return err
		}
		if invitation.ToUserID != userID {
			return validationErr("only the invited user can accept this invitation")
		}
		if invitation.Status == models.InvitationStatusAccepted {
			accepted = invitation
			alreadyAccepted = true
			return nil
		}

		linkID := invitation.UserChallengeID
		if linkID == nil {
			start, end := dayRange(time.Now())
			var instance models.UserChallenge
			err := tx.Where("user_id = ? AND challenge_id = ? AND assigned_at >= ? AND assigned_at < ?",
				userID, invitation.ChallengeID, start, end).
				First(&instance).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				instance = models.UserChallenge{
					ID:          uuid.NewString(),
					UserID:      userID,
					ChallengeID: invitation.ChallengeID,
					Status:      models.UserChallengeStatusPending,
					AssignedAt:  time.Now(),
				}
				if err := tx.Create(&instance).Error; err != nil {
					return err
				}
			} else if err != nil {
				return err
			}
			linkID = &instance.ID
		}

		flipped, err := markAccepted(tx, invitationID, *linkID)
		if err != nil {
			return err
		}
		if !flipped {
			return errAcceptRace
		}
		invitation.Status = models.InvitationStatusAccepted
		invitation.UserChallengeID = linkID
		accepted = invitation
		return nil
	})
	if errors.Is(err, errAcceptRace) {
		// The concurrent accept committed its own link; hand that row back.
		if err := s.DB.Where("id = ?", invitationID).First(&accepted).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("invitation %s: %w", invitationID, ErrNotFound)
			}
			return nil, err
		}
		return &accepted, nil
	}
	if err != nil {
		return nil, err
	}

	if !alreadyAccepted {
		log.Printf("🤝 [INVITE] %s accepted invitation %s", userID, invitationID)
		s.Tasks.Go("invite-accept-notify", func() error {
			return s.Notifier.SendToUser(accepted.FromUserID, "Invitation accepted",
				"Your friend accepted your challenge invitation!")
		})
		s.Tasks.Go("invite-accepted-dispatch", func() error {
			return s.Dispatcher.Dispatch(userID, models.EventChallengeInviteAccepted)
		})
	}
	return &accepted, nil
}

// RejectInvitation deletes a pending invitation addressed to userID.
// Rejections carry no historical value, so the row is removed rather than
// marked.
func (s *InvitationService) RejectInvitation(invitationID, userID string) error {
	return s.deletePending(invitationID, userID, false)
}

// CancelInvitation is the sender-side twin of RejectInvitation.
func (s *InvitationService) CancelInvitation(invitationID, userID string) error {
	return s.deletePending(invitationID, userID, true)
}

func (s *InvitationService) deletePending(invitationID, userID string, bySender bool) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var invitation models.ChallengeInvitation
		if err := tx.Where("id = ?", invitationID).First(&invitation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("invitation %s: %w", invitationID, ErrNotFound)
			}
			return err
		}
		if bySender && invitation.FromUserID != userID {
			return validationErr("only the sender can cancel this invitation")
		}
		if !bySender && invitation.ToUserID != userID {
			return validationErr("only the invited user can reject this invitation")
		}
		if invitation.Status != models.InvitationStatusPending {
			return validationErr("invitation was already accepted")
		}
		return tx.Delete(&invitation).Error
	})
}

// ListPendingInvitations returns invitations awaiting userID's answer.
func (s *InvitationService) ListPendingInvitations(userID string) ([]models.ChallengeInvitation, error) {
	var invitations []models.ChallengeInvitation
	err := s.DB.Preload("Challenge").
		Where("to_user_id = ? AND status = ?", userID, models.InvitationStatusPending).
		Order("created_at DESC").
		Find(&invitations).Error
	return invitations, err
}

// InvitationList pairs the user's received and sent invitations.
type InvitationList struct {
	Received []models.ChallengeInvitation `json:"received"`
	Sent     []models.ChallengeInvitation `json:"sent"`
}

// ListInvitations returns both directions for userID.
func (s *InvitationService) ListInvitations(userID string) (*InvitationList, error) {
	list := &InvitationList{}
	if err := s.DB.Preload("Challenge").
		Where("to_user_id = ?", userID).
		Order("created_at DESC").
		Find(&list.Received).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Preload("Challenge").
		Where("from_user_id = ?", userID).
		Order("created_at DESC").
		Find(&list.Sent).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// SweepResult reports what one cleanup pass removed.
type SweepResult struct {
	ExpiredPending   int64 `json:"expired_pending"`
	CompletedCleaned int64 `json:"completed_cleaned"`
}

const invitationRetention = 7 * 24 * time.Hour

// RunCleanupSweep deletes accepted invitations whose linked challenge was
// completed more than 7 days ago, and pending invitations older than 7 days
// (silent expiry). Idempotent; safe to run on a schedule.
func (s *InvitationService) RunCleanupSweep() (*SweepResult, error) {
	cutoff := time.Now().Add(-invitationRetention)
	result := &SweepResult{}

	completed := s.DB.
		Where("status = ? AND user_challenge_id IN (?)",
			models.InvitationStatusAccepted,
			s.DB.Model(&models.UserChallenge{}).
				Select("id").
				Where("status = ? AND completed_at < ?", models.UserChallengeStatusCompleted, cutoff)).
		Delete(&models.ChallengeInvitation{})
	if completed.Error != nil {
		return nil, completed.Error
	}
	result.CompletedCleaned = completed.RowsAffected

	expired := s.DB.
		Where("status = ? AND created_at < ?", models.InvitationStatusPending, cutoff).
		Delete(&models.ChallengeInvitation{})
	if expired.Error != nil {
		return nil, expired.Error
	}
	result.ExpiredPending = expired.RowsAffected

	log.Printf("🧹 [SWEEP] Removed %d expired pending, %d completed invitation(s)",
		result.ExpiredPending, result.CompletedCleaned)
	return result, nil
}
