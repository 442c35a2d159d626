package funding

import (
	"context"
	"fmt"

	"server/internal/adapter/cache"
)

// ExpireDue flips active and on-moderation campaigns whose deadline has
// passed to expired and returns the number of transitions. Terminal statuses
// are excluded by the repository filter, which makes repeated runs no-ops.
func (s *Service) ExpireDue(ctx context.Context) (int64, error) {
	count, ownerIDs, err := s.campaigns.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("expire due campaigns: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	var keys []string
	for _, id := range ownerIDs {
		keys = append(keys, cache.KeyCampaignList(id), cache.KeyMyCampaigns(id))
	}
	s.invalidate(ctx, keys...)

	s.logger.Info().Int64("count", count).Msg("campaigns expired")
	return count, nil
}
