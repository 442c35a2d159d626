// Package cache provides the list-view cache used by the API layer. The core
// services treat it as best effort: a failed set or invalidate is logged by
// the caller, never surfaced, and the fixed TTL bounds staleness when an
// invalidation is missed.
package cache

import (
	"context"
	"fmt"
	"time"
)

// ListTTL bounds staleness of cached list views.
const ListTTL = 5 * time.Minute

// Cache stores serialized list responses keyed by view.
type Cache interface {
	// Get returns the cached bytes, or (nil, nil) on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Cache key builders shared by handlers and the sweep job. List views are
// keyed by viewer; mutations by other users stay stale at most ListTTL.
func KeyCampaignList(userID string) string {
	return fmt.Sprintf("campaign_list_%s", userID)
}

func KeyMyCampaigns(userID string) string {
	return fmt.Sprintf("my_campaigns_%s", userID)
}

func KeyDonationList(userID string) string {
	return fmt.Sprintf("donation_list_%s", userID)
}

// Noop satisfies Cache with no storage. The core stays correct without a
// cache backend; every Get is a miss.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, error)              { return nil, nil }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) Invalidate(context.Context, ...string) error              { return nil }

var _ Cache = Noop{}
