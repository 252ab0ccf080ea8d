package models

import "time"

type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "PENDING"
	InvitationStatusAccepted InvitationStatus = "ACCEPTED"
	// Rejection and expiry are modeled as deletion, not a stored status.
)

// ChallengeInvitation is one friend-to-friend challenge proposal. Date holds
// the creation day (YYYY-MM-DD) and is the key for the per-day quota checks.
type ChallengeInvitation struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	FromUserID  string    `gorm:"index;not null" json:"from_user_id"`
	ToUserID    string    `gorm:"index;not null" json:"to_user_id"`
	ChallengeID string    `gorm:"index;not null" json:"challenge_id"`
	Challenge   Challenge `gorm:"foreignKey:ChallengeID" json:"challenge,omitempty"`

	Status InvitationStatus `gorm:"type:varchar(16);index;default:'PENDING'" json:"status"`

	// Set when the receiver's own UserChallenge instance exists (at creation
	// if they already hold today's instance, otherwise on accept).
	UserChallengeID *string `gorm:"index" json:"user_challenge_id,omitempty"`

	Message   string    `gorm:"type:text" json:"message,omitempty"`
	Date      string    `gorm:"type:varchar(10);index;not null" json:"date"` // YYYY-MM-DD
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
