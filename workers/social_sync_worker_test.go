package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"habit-reward-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSyncTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Friendship{},
		&models.PostLike{},
		&models.PostComment{},
	))
	return db
}

func TestGetChangesSendsTokenAndSince(t *testing.T) {
	var gotToken, gotSince string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Service-Token")
		gotSince = r.URL.Query().Get("since")
		json.NewEncoder(w).Encode(socialGraphResponse{})
	}))
	defer server.Close()

	client := &SocialSyncClient{
		BaseURL:    server.URL,
		Token:      "secret",
		HTTPClient: server.Client(),
		DB:         newSyncTestDB(t),
	}

	since := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	_, err := client.GetChanges(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, "secret", gotToken)
	assert.Equal(t, "2026-08-30T12:00:00Z", gotSince)
}

func TestGetChangesRejectsNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	client := &SocialSyncClient{
		BaseURL:    server.URL,
		Token:      "secret",
		HTTPClient: server.Client(),
	}

	_, err := client.GetChanges(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

// User sync updates the username only: progression columns stay untouched.
func TestApplyChangesPreservesProgressionColumns(t *testing.T) {
	db := newSyncTestDB(t)
	client := &SocialSyncClient{DB: db}

	existing := &models.User{
		ID:       uuid.NewString(),
		Username: "old-name",
		XP:       1200,
		Level:    3,
		Coins:    45,
	}
	require.NoError(t, db.Create(existing).Error)

	require.NoError(t, client.applyChanges(&socialGraphResponse{
		Users: []mirroredUser{
			{ID: existing.ID, Username: "new-name"},
			{ID: uuid.NewString(), Username: "fresh"},
		},
	}))

	var reloaded models.User
	require.NoError(t, db.Where("id = ?", existing.ID).First(&reloaded).Error)
	assert.Equal(t, "new-name", reloaded.Username)
	assert.Equal(t, int64(1200), reloaded.XP)
	assert.Equal(t, 3, reloaded.Level)
	assert.Equal(t, int64(45), reloaded.Coins)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestApplyChangesIsIdempotent(t *testing.T) {
	db := newSyncTestDB(t)
	client := &SocialSyncClient{DB: db}

	changes := &socialGraphResponse{
		Friendships: []models.Friendship{
			{ID: uuid.NewString(), UserID: "u1", FriendID: "u2"},
		},
		Likes: []models.PostLike{
			{ID: uuid.NewString(), UserID: "u1", PostID: "p1"},
		},
		Comments: []models.PostComment{
			{ID: uuid.NewString(), UserID: "u2", PostID: "p1"},
		},
	}

	require.NoError(t, client.applyChanges(changes))
	require.NoError(t, client.applyChanges(changes))

	var friendships, likes, comments int64
	require.NoError(t, db.Model(&models.Friendship{}).Count(&friendships).Error)
	require.NoError(t, db.Model(&models.PostLike{}).Count(&likes).Error)
	require.NoError(t, db.Model(&models.PostComment{}).Count(&comments).Error)
	assert.Equal(t, int64(1), friendships)
	assert.Equal(t, int64(1), likes)
	assert.Equal(t, int64(1), comments)
}
