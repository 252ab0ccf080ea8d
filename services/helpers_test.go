package services

import (
	"fmt"
	"testing"
	"time"

	"habit-reward-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
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
		&models.Challenge{},
		&models.UserChallenge{},
		&models.Badge{},
		&models.UserBadge{},
		&models.RewardHistory{},
		&models.ChallengeInvitation{},
		&models.Friendship{},
		&models.PostLike{},
		&models.PostComment{},
	))
	return db
}

type testEnv struct {
	db          *gorm.DB
	tasks       *TaskRunner
	ledger      *LedgerService
	badges      *BadgeService
	challenges  *ChallengeService
	dispatcher  *SocialEventDispatcher
	invitations *InvitationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	tasks := NewTaskRunner()
	ledger := NewLedgerService(db)
	badges := NewBadgeService(db, ledger, NoopNotifier{}, tasks)
	challenges := NewChallengeService(db, ledger)
	dispatcher := NewSocialEventDispatcher(badges, challenges)
	invitations := NewInvitationService(db, NoopNotifier{}, tasks, dispatcher)
	return &testEnv{
		db:          db,
		tasks:       tasks,
		ledger:      ledger,
		badges:      badges,
		challenges:  challenges,
		dispatcher:  dispatcher,
		invitations: invitations,
	}
}

func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{ID: uuid.NewString(), Username: username, Level: 1}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createChallenge(t *testing.T, title string, xp, coins int64, event string) *models.Challenge {
	t.Helper()
	challenge := &models.Challenge{
		ID:          uuid.NewString(),
		Title:       title,
		Category:    "fitness",
		XPReward:    xp,
		CoinsReward: coins,
		IsActive:    true,
	}
	if event != "" {
		challenge.AutoVerifiable = true
		challenge.VerificationEvent = event
	}
	require.NoError(t, e.db.Create(challenge).Error)
	return challenge
}

func (e *testEnv) createEventBadge(t *testing.T, name, event string, requiredCount, xp, coins int64) *models.Badge {
	t.Helper()
	badge := &models.Badge{
		ID:              uuid.NewString(),
		Name:            name,
		RequirementType: models.RequirementSpecial,
		Event:           event,
		RequiredCount:   requiredCount,
		XPReward:        xp,
		CoinsReward:     coins,
		IsActive:        true,
	}
	require.NoError(t, e.db.Create(badge).Error)
	return badge
}

func (e *testEnv) assignChallenge(t *testing.T, userID, challengeID string) *models.UserChallenge {
	t.Helper()
	instance := &models.UserChallenge{
		ID:          uuid.NewString(),
		UserID:      userID,
		ChallengeID: challengeID,
		Status:      models.UserChallengeStatusPending,
		AssignedAt:  time.Now(),
	}
	require.NoError(t, e.db.Create(instance).Error)
	return instance
}

func (e *testEnv) befriend(t *testing.T, userA, userB string) {
	t.Helper()
	require.NoError(t, e.db.Create(&models.Friendship{
		ID:       uuid.NewString(),
		UserID:   userA,
		FriendID: userB,
	}).Error)
}

func (e *testEnv) reloadUser(t *testing.T, userID string) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, e.db.Where("id = ?", userID).First(&user).Error)
	return &user
}
