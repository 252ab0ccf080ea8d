package services

import (
	"testing"
	"time"

	"habit-reward-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRewardHistoryFiltersAndPagination(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice")

	for i := 0; i < 5; i++ {
		require.NoError(t, env.ledger.Append(&models.RewardHistory{
			UserID: user.ID,
			Type:   models.RewardTypeXP,
			Amount: 10,
			Source: models.SourceChallengeCompletion,
		}))
	}
	require.NoError(t, env.ledger.Append(&models.RewardHistory{
		UserID: user.ID,
		Type:   models.RewardTypeCoins,
		Amount: 3,
		Source: models.SourceChallengeCompletion,
	}))

	xpType := models.RewardTypeXP
	entries, total, err := env.ledger.GetRewardHistory(user.ID, HistoryFilters{Type: &xpType})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, entries, 5)

	entries, total, err = env.ledger.GetRewardHistory(user.ID, HistoryFilters{Page: 2, Size: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	assert.Len(t, entries, 2)
}

func TestGetRewardStats(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice")

	rows := []models.RewardHistory{
		{UserID: user.ID, Type: models.RewardTypeXP, Amount: 100, Source: models.SourceChallengeCompletion},
		{UserID: user.ID, Type: models.RewardTypeXP, Amount: 50, Source: models.SourceBadgeEarned},
		{UserID: user.ID, Type: models.RewardTypeCoins, Amount: 25, Source: models.SourceChallengeCompletion},
		{UserID: user.ID, Type: models.RewardTypeBadge, Amount: 1, Source: models.SourceBadgeEarned},
	}
	for i := range rows {
		require.NoError(t, env.ledger.Append(&rows[i]))
	}

	stats, err := env.ledger.GetRewardStats(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), stats.TotalXP)
	assert.Equal(t, int64(25), stats.TotalCoins)
	assert.Equal(t, int64(1), stats.BadgesEarned)
	assert.Equal(t, int64(0), stats.ItemsGranted)
}

// Rows sharing a SourceID collapse into a single feed item with summed
// amounts; rows without one stay individual.
func TestFeedGroupsBySourceID(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice")

	sourceID := "instance-1"
	require.NoError(t, env.ledger.Append(&models.RewardHistory{
		UserID: user.ID, Type: models.RewardTypeXP, Amount: 80,
		Source: models.SourceChallengeCompletion, SourceID: sourceID,
		Description: "Completed \"Morning Run\"",
	}))
	require.NoError(t, env.ledger.Append(&models.RewardHistory{
		UserID: user.ID, Type: models.RewardTypeCoins, Amount: 20,
		Source: models.SourceChallengeCompletion, SourceID: sourceID,
	}))
	require.NoError(t, env.ledger.Append(&models.RewardHistory{
		UserID: user.ID, Type: models.RewardTypeXP, Amount: 5,
		Source: models.SourceAdminGrant,
	}))

	feed, err := env.ledger.GetRewardFeed(user.ID, 20)
	require.NoError(t, err)
	require.Len(t, feed, 2)

	var grouped *FeedItem
	for i := range feed {
		if feed[i].SourceID == sourceID {
			grouped = &feed[i]
		}
	}
	require.NotNil(t, grouped)
	assert.Equal(t, int64(80), grouped.XP)
	assert.Equal(t, int64(20), grouped.Coins)
	assert.Equal(t, "Completed \"Morning Run\"", grouped.Description)
}

// A group whose rows sit far apart in the history must still sum completely:
// the feed picks group keys first and then loads every row of those groups,
// so no amount is lost to a fetch-window boundary.
func TestFeedSumsRowsBeyondFetchWindow(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice")
	base := time.Now()

	sourceID := "instance-1"
	require.NoError(t, env.ledger.Append(&models.RewardHistory{
		UserID: user.ID, Type: models.RewardTypeCoins, Amount: 20,
		Source: models.SourceChallengeCompletion, SourceID: sourceID,
		CreatedAt: base.Add(-30 * time.Minute),
	}))
	for i := 0; i < 20; i++ {
		require.NoError(t, env.ledger.Append(&models.RewardHistory{
			UserID: user.ID, Type: models.RewardTypeXP, Amount: 1,
			Source:    models.SourceAdminGrant,
			CreatedAt: base.Add(-time.Duration(20-i) * time.Minute),
		}))
	}
	require.NoError(t, env.ledger.Append(&models.RewardHistory{
		UserID: user.ID, Type: models.RewardTypeXP, Amount: 80,
		Source: models.SourceChallengeCompletion, SourceID: sourceID,
		Description: "Completed \"Morning Run\"",
		CreatedAt:   base,
	}))

	feed, err := env.ledger.GetRewardFeed(user.ID, 5)
	require.NoError(t, err)
	require.Len(t, feed, 5)

	// The grouped item is the newest; both amounts are present even though
	// its coins row is older than every singleton in between.
	assert.Equal(t, sourceID, feed[0].SourceID)
	assert.Equal(t, int64(80), feed[0].XP)
	assert.Equal(t, int64(20), feed[0].Coins)
}
