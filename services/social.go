package services

import (
	"habit-reward-system/models"

	"gorm.io/gorm"
)

// IsFriends reports whether a confirmed friendship exists between the two
// users. The mirror stores one row per pair, so both orientations are
// checked.
func IsFriends(db *gorm.DB, userA, userB string) (bool, error) {
	var count int64
	err := db.Model(&models.Friendship{}).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
			userA, userB, userB, userA).
		Count(&count).Error
	return count > 0, err
}
