package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Notifier sends a push notification to one user. Callers treat delivery as
// fire-and-forget: an error is logged by the task runner, never propagated.
type Notifier interface {
	SendToUser(userID, title, body string) error
}

// NotificationServiceClient talks to the notification service through the
// internal network with a service token.
type NotificationServiceClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewNotificationServiceClient(baseURL, token string) *NotificationServiceClient {
	return &NotificationServiceClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *NotificationServiceClient) SendToUser(userID, title, body string) error {
	url := fmt.Sprintf("%s/api/v1/notifications", c.BaseURL)

	payload, _ := json.Marshal(map[string]string{
		"user_id": userID,
		"title":   title,
		"body":    body,
	})

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("NotificationService returned %d: %s", resp.StatusCode, string(respBody))
		return fmt.Errorf("notification send failed: %d", resp.StatusCode)
	}
	return nil
}

// NoopNotifier drops notifications; used in tests and when the notification
// service is not configured.
type NoopNotifier struct{}

func (NoopNotifier) SendToUser(userID, title, body string) error { return nil }
