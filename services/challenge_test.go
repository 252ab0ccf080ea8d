package services

import (
	"testing"
	"time"

	"habit-reward-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoVerificationCompletesOnce(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice")
	challenge := env.createChallenge(t, "Morning Run", 80, 20, "WORKOUT_LOGGED")
	instance := env.assignChallenge(t, user.ID, challenge.ID)

	require.NoError(t, env.challenges.EvaluateChallengeCompletion(user.ID, "WORKOUT_LOGGED"))

	var reloadedInstance models.UserChallenge
	require.NoError(t, env.db.Where("id = ?", instance.ID).First(&reloadedInstance).Error)
	assert.Equal(t, models.UserChallengeStatusCompleted, reloadedInstance.Status)
	assert.Equal(t, 100, reloadedInstance.Progress)
	assert.NotNil(t, reloadedInstance.CompletedAt)

	reloaded := env.reloadUser(t, user.ID)
	assert.Equal(t, int64(80), reloaded.XP)
	assert.Equal(t, int64(20), reloaded.Coins)

	// Ledger rows grouped by the instance id.
	var rows []models.RewardHistory
	require.NoError(t, env.db.Where("user_id = ?", user.ID).Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, instance.ID, r.SourceID)
		assert.Equal(t, models.SourceChallengeCompletion, r.Source)
	}

	// Second trigger of the same event grants nothing.
	require.NoError(t, env.challenges.EvaluateChallengeCompletion(user.ID, "WORKOUT_LOGGED"))
	reloaded = env.reloadUser(t, user.ID)
	assert.Equal(t, int64(80), reloaded.XP)
	assert.Equal(t, int64(20), reloaded.Coins)
}

func TestAutoVerificationSkipsWithoutPendingInstance(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice")
	env.createChallenge(t, "Morning Run", 80, 20, "WORKOUT_LOGGED")

	// No instance assigned today: not an error, nothing granted.
	require.NoError(t, env.challenges.EvaluateChallengeCompletion(user.ID, "WORKOUT_LOGGED"))
	assert.Equal(t, int64(0), env.reloadUser(t, user.ID).XP)
}

func TestCompleteChallengeRejectsRecompletion(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice")
	challenge := env.createChallenge(t, "Read 20 pages", 40, 10, "")
	instance := env.assignChallenge(t, user.ID, challenge.ID)

	completed, err := env.challenges.CompleteChallenge(user.ID, instance.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserChallengeStatusCompleted, completed.Status)
	assert.Equal(t, int64(40), env.reloadUser(t, user.ID).XP)

	_, err = env.challenges.CompleteChallenge(user.ID, instance.ID)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, int64(40), env.reloadUser(t, user.ID).XP) // no second grant
}

func TestCompleteChallengeOwnershipAndNotFound(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice")
	other := env.createUser(t, "bob")
	challenge := env.createChallenge(t, "Read 20 pages", 40, 10, "")
	instance := env.assignChallenge(t, other.ID, challenge.ID)

	_, err := env.challenges.CompleteChallenge(user.ID, instance.ID)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = env.challenges.CompleteChallenge(user.ID, uuid.NewString())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestLevelUpFromChallengeReward(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice")
	challenge := env.createChallenge(t, "Big Quest", 400, 0, "")
	instance := env.assignChallenge(t, user.ID, challenge.ID)

	_, err := env.challenges.CompleteChallenge(user.ID, instance.ID)
	require.NoError(t, err)

	reloaded := env.reloadUser(t, user.ID)
	assert.Equal(t, int64(400), reloaded.XP)
	assert.Equal(t, 2, reloaded.Level) // 400 >= XPForLevel(2) = 350
}

func TestStreakAdvancesAcrossDays(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice")
	user.CurrentStreak = 1
	user.LongestStreak = 1
	require.NoError(t, env.db.Save(user).Error)

	// Yesterday's completed instance, inserted directly.
	challenge := env.createChallenge(t, "Meditate", 10, 0, "")
	yesterday := time.Now().AddDate(0, 0, -1)
	require.NoError(t, env.db.Create(&models.UserChallenge{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		ChallengeID: challenge.ID,
		Status:      models.UserChallengeStatusCompleted,
		Progress:    100,
		AssignedAt:  yesterday,
		CompletedAt: &yesterday,
	}).Error)

	instance := env.assignChallenge(t, user.ID, challenge.ID)
	_, err := env.challenges.CompleteChallenge(user.ID, instance.ID)
	require.NoError(t, err)

	reloaded := env.reloadUser(t, user.ID)
	assert.Equal(t, 2, reloaded.CurrentStreak)
	assert.Equal(t, 2, reloaded.LongestStreak)
}

// The guarded status flip is the last line of defense: a completion that
// committed between our read and our write must turn the grant into a no-op,
// not a second reward.
func TestCompletionGuardCatchesStaleRead(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice")
	challenge := env.createChallenge(t, "Morning Run", 80, 20, "WORKOUT_LOGGED")
	instance := env.assignChallenge(t, user.ID, challenge.ID)

	// The row flips to COMPLETED behind our back; the in-memory instance
	// still says PENDING, like a stale read under a weaker isolation level.
	now := time.Now()
	require.NoError(t, env.db.Model(&models.UserChallenge{}).
		Where("id = ?", instance.ID).
		Updates(map[string]interface{}{
			"status":       models.UserChallengeStatusCompleted,
			"completed_at": now,
			"progress":     100,
		}).Error)

	granted, err := env.challenges.completeInstanceTx(env.db, instance, challenge)
	require.NoError(t, err)
	assert.False(t, granted)

	reloaded := env.reloadUser(t, user.ID)
	assert.Equal(t, int64(0), reloaded.XP)
	assert.Equal(t, int64(0), reloaded.Coins)

	var rows int64
	require.NoError(t, env.db.Model(&models.RewardHistory{}).
		Where("user_id = ?", user.ID).Count(&rows).Error)
	assert.Equal(t, int64(0), rows)
}

func TestAssignDailyChallengesIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")
	env.createUser(t, "bob")
	env.createChallenge(t, "Morning Run", 80, 20, "")
	env.createChallenge(t, "Meditate", 30, 5, "")
	inactive := env.createChallenge(t, "Retired", 10, 0, "")
	require.NoError(t, env.db.Model(inactive).Update("is_active", false).Error)

	created, err := env.challenges.AssignDailyChallenges()
	require.NoError(t, err)
	assert.Equal(t, 4, created) // 2 users × 2 active challenges

	created, err = env.challenges.AssignDailyChallenges()
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}
