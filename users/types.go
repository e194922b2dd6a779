// Package users persists per-user quota accounting and identity, keyed by
// Telegram user id.
package users

import (
	"context"
	"time"
)

// Record is the durable state for one Telegram user.
//
// MessageCount only increases except via Reset, which also clears
// QuotaNotified. FirstSeen is set once at first contact and never changes.
type Record struct {
	MessageCount  int       `json:"message_count"`
	QuotaNotified bool      `json:"quota_notified"`
	FirstSeen     time.Time `json:"first_seen"`
	Username      string    `json:"username,omitempty"`
	DisplayName   string    `json:"display_name,omitempty"`
}

// Store is the persistence seam for user records. Every mutating call is
// write-through: it reaches stable storage before returning.
type Store interface {
	// GetOrCreate returns the record for userID, creating and persisting a
	// default one (zero count, unnotified, FirstSeen=now) on first access.
	GetOrCreate(ctx context.Context, userID int64) (Record, error)

	// UpdateIdentity overwrites identity fields when non-empty values are given.
	UpdateIdentity(ctx context.Context, userID int64, username, displayName string) error

	// IncrementMessageCount adds one to the user's message count.
	IncrementMessageCount(ctx context.Context, userID int64) error

	// Reset sets MessageCount to zero and clears QuotaNotified.
	Reset(ctx context.Context, userID int64) error

	// SetQuotaNotified marks that the admin has been told this user exhausted
	// the demo quota, so the notification fires at most once per episode.
	SetQuotaNotified(ctx context.Context, userID int64) error
}
