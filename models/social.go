package models

import "time"

// Local read-only mirrors of the social service's rows, upserted by the
// social sync worker. The reward engine reads them for the symmetric
// friendship check and for badge event counters; it never writes them on the
// serving path.

// Friendship is one confirmed friendship edge. The social service emits a
// single row per pair; symmetry is handled at query time.
type Friendship struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"uniqueIndex:idx_friendships_pair;not null" json:"user_id"`   // initiator
	FriendID  string    `gorm:"uniqueIndex:idx_friendships_pair;not null" json:"friend_id"` // receiver
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostLike mirrors one like given by UserID on a feed post.
type PostLike struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	PostID    string    `gorm:"index;not null" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PostComment mirrors one comment authored by UserID on a feed post.
type PostComment struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	PostID    string    `gorm:"index;not null" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
