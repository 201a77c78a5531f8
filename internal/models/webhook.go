package models

import "time"

// WebhookEvent records a processed billing webhook delivery. The event id is
// the primary key, which is what makes duplicate deliveries detectable.
type WebhookEvent struct {
	EventID    string    `json:"event_id" badgerhold:"key"`
	EventType  string    `json:"event_type"`
	CustomerID string    `json:"customer_id" badgerholdIndex:"CustomerID"`
	ReceivedAt time.Time `json:"received_at"`
}

// AuthToken is a session/refresh token row, swept once expired by the
// cleanupAuthTokens job.
type AuthToken struct {
	ID        string    `json:"id" badgerhold:"key"`
	UserID    string    `json:"user_id" badgerholdIndex:"UserID"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
