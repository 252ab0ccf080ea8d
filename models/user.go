package models

import (
	"time"

	"gorm.io/gorm"
)

// User holds per-account progression state. XP, coins and level are mutated
// only by reward-granting transactions — never by profile endpoints. The sync
// worker that mirrors accounts from the profile service writes identity
// columns only.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"` // profile service UUID
	Username string `gorm:"index;not null" json:"username"`

	// Core progression
	XP    int64 `json:"xp" gorm:"default:0"`
	Level int   `json:"level" gorm:"default:1"` // never lowered once stored
	Coins int64 `json:"coins" gorm:"default:0"`

	// Streaks (day counters, maintained by challenge completion)
	CurrentStreak int `json:"current_streak" gorm:"default:0"`
	LongestStreak int `json:"longest_streak" gorm:"default:0"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
