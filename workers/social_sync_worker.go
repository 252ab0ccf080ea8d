package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"habit-reward-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SocialSyncClient mirrors the social service's users, friendships, likes
// and comments into local tables. The reward engine only reads the mirrors
// (friendship checks, badge event counters); it never writes them on the
// serving path.
type SocialSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewSocialSyncClient(db *gorm.DB) *SocialSyncClient {
	baseURL := os.Getenv("SOCIAL_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("SOCIAL_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("HABIT_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("HABIT_SERVICE_TOKEN environment variable is required for social sync")
	}

	return &SocialSyncClient{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// socialGraphResponse is the change feed served by the social service.
type socialGraphResponse struct {
	Users       []mirroredUser       `json:"users"`
	Friendships []models.Friendship  `json:"friendships"`
	Likes       []models.PostLike    `json:"likes"`
	Comments    []models.PostComment `json:"comments"`
}

// mirroredUser carries only identity columns. Progression fields never come
// from the social service and must never be overwritten by sync.
type mirroredUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *SocialSyncClient) GetChanges(ctx context.Context, since time.Time) (*socialGraphResponse, error) {
	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/social-graph", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call social service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("social service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response socialGraphResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode social service response: %w", err)
	}
	return &response, nil
}

func (c *SocialSyncClient) applyChanges(changes *socialGraphResponse) error {
	if len(changes.Users) > 0 {
		users := make([]models.User, len(changes.Users))
		for i, u := range changes.Users {
			users[i] = models.User{ID: u.ID, Username: u.Username, Level: 1}
		}
		// Identity columns only — xp/level/coins belong to the reward engine.
		if err := c.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "updated_at"}),
		}).Create(&users).Error; err != nil {
			return fmt.Errorf("upsert users: %w", err)
		}
	}

	if len(changes.Friendships) > 0 {
		if err := c.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "friend_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}).Create(&changes.Friendships).Error; err != nil {
			return fmt.Errorf("upsert friendships: %w", err)
		}
	}

	if len(changes.Likes) > 0 {
		if err := c.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(&changes.Likes).Error; err != nil {
			return fmt.Errorf("upsert likes: %w", err)
		}
	}

	if len(changes.Comments) > 0 {
		if err := c.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(&changes.Comments).Error; err != nil {
			return fmt.Errorf("upsert comments: %w", err)
		}
	}
	return nil
}

// PollSocialGraph keeps the mirrors fresh. On failure the window is retried
// next tick; lastSyncTime only advances after a successful upsert.
func PollSocialGraph(ctx context.Context, client *SocialSyncClient, pollInterval time.Duration) {
	log.Println("Starting social graph polling...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Social graph polling stopped.")
			return
		case <-ticker.C:
			tickTime := time.Now().UTC()

			changes, err := client.GetChanges(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling social graph: %v", err)
				continue
			}

			total := len(changes.Users) + len(changes.Friendships) + len(changes.Likes) + len(changes.Comments)
			if total == 0 {
				continue
			}

			if err := client.applyChanges(changes); err != nil {
				log.Printf("❌ Failed to apply %d social change(s): %v", total, err)
				continue
			}

			lastSyncTime = tickTime
			log.Printf("📥 Applied %d social change(s): %d user(s), %d friendship(s), %d like(s), %d comment(s)",
				total, len(changes.Users), len(changes.Friendships), len(changes.Likes), len(changes.Comments))
		}
	}
}
