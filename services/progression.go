package services

import "math"

// Level curve: the cumulative XP needed to reach level L is
// 50*(L-1)*(L+5). LevelFromXP is the algebraic inverse (complete the
// square), so the two stay exact inverses including floor semantics —
// client progress bars depend on that.

const xpCurveFactor = 50

// XPForLevel returns the cumulative XP required to reach the given level.
// Level 1 (and below) costs nothing.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	return int64(xpCurveFactor) * int64(level-1) * int64(level+5)
}

// LevelFromXP converts total XP into a level, clamped to a minimum of 1.
// Negative input clamps too.
func LevelFromXP(totalXP int64) int {
	if totalXP < 0 {
		return 1
	}
	level := int(math.Floor(math.Sqrt(float64(totalXP)/float64(xpCurveFactor)+9) - 2))
	if level < 1 {
		return 1
	}
	return level
}

// displayLevel resolves the level used for progress-bar math. A stored level
// above the computed one wins: the 2023 curve migration left some accounts
// with a persisted level higher than the live formula yields, and a client
// must never see its level regress.
func displayLevel(totalXP int64, storedLevel int) int {
	level := LevelFromXP(totalXP)
	if storedLevel > level {
		return storedLevel
	}
	return level
}

// XPNeededForNextLevel returns how much XP is still missing until the next
// level. Never negative, even when storedLevel is ahead of the curve.
func XPNeededForNextLevel(totalXP int64, storedLevel int) int64 {
	needed := XPForLevel(displayLevel(totalXP, storedLevel)+1) - totalXP
	if needed < 0 {
		needed = 0
	}
	return needed
}

// XPProgressInLevel returns the XP gained within the current level and the
// full span of that level, clamped to [0, span].
func XPProgressInLevel(totalXP int64, storedLevel int) (current, span int64) {
	level := displayLevel(totalXP, storedLevel)
	floor := XPForLevel(level)
	span = XPForLevel(level+1) - floor
	current = totalXP - floor
	if current < 0 {
		current = 0
	}
	if current > span {
		current = span
	}
	return current, span
}
