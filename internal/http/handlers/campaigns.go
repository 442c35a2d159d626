package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"server/internal/adapter/cache"
	"server/internal/domain"
	"server/internal/funding"
	"server/internal/policy"
)

func campaignPayload(c *domain.Campaign) map[string]any {
	return map[string]any{
		"id":            c.ID,
		"owner_id":      c.OwnerID,
		"title":         c.Title,
		"description":   c.Description,
		"goal_amount":   c.GoalAmount.StringFixed(2),
		"raised_amount": c.RaisedAmount.StringFixed(2),
		"deadline":      c.Deadline,
		"status":        c.Status,
		"created_at":    c.CreatedAt,
	}
}

func campaignListPayload(items []domain.Campaign) map[string]any {
	out := make([]map[string]any, 0, len(items))
	for i := range items {
		out = append(out, campaignPayload(&items[i]))
	}
	return map[string]any{"items": out}
}

// CampaignsList returns campaigns visible to the caller, cached per viewer.
func (a *App) CampaignsList(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.cached(w, r, cache.KeyCampaignList(user.ID), func() (any, error) {
		items, err := a.Campaigns.ListVisible(r.Context(), user.ID)
		if err != nil {
			return nil, err
		}
		return campaignListPayload(items), nil
	})
}

// CampaignsMine returns the caller's own campaigns, cached per owner.
func (a *App) CampaignsMine(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.cached(w, r, cache.KeyMyCampaigns(user.ID), func() (any, error) {
		items, err := a.Campaigns.ListByOwner(r.Context(), user.ID)
		if err != nil {
			return nil, err
		}
		return campaignListPayload(items), nil
	})
}

// CampaignsGet returns a single campaign.
func (a *App) CampaignsGet(w http.ResponseWriter, r *http.Request) {
	campaign, err := a.Campaigns.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, campaignPayload(campaign))
}

type campaignCreateRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	GoalAmount  decimal.Decimal `json:"goal_amount"`
	Deadline    time.Time       `json:"deadline"`
}

// CampaignsCreate validates and persists a new campaign for the caller.
func (a *App) CampaignsCreate(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}

	var req campaignCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	campaign, err := a.Funding.CreateCampaign(r.Context(), user, funding.CreateCampaignInput{
		Title:       req.Title,
		Description: req.Description,
		GoalAmount:  req.GoalAmount,
		Deadline:    req.Deadline,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusCreated, campaignPayload(campaign))
}

// restrictedCampaignFields are readable but rejected on update; raised
// amount and status move only through donations and moderation.
var restrictedCampaignFields = []string{"raised_amount", "status", "owner_id", "created_at", "id"}

// CampaignsUpdate patches the editable fields of a campaign.
func (a *App) CampaignsUpdate(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	campaign, err := a.Campaigns.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	if d := policy.ForCampaign(user, campaign, policy.ActionUpdate); !d.Allowed {
		a.Logger.Warn().Str("user_id", user.ID).Str("campaign_id", campaign.ID).Str("reason", d.Reason).Msg("campaign update denied")
		a.fail(w, d.Err())
		return
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	for _, name := range restrictedCampaignFields {
		if _, ok := fields[name]; ok {
			a.Logger.Warn().Str("user_id", user.ID).Str("field", name).Msg("restricted field write attempt")
			a.fail(w, fmt.Errorf("%w: updating %s is not allowed", domain.ErrRestrictedField, name))
			return
		}
	}

	if raw, ok := fields["title"]; ok {
		if err := json.Unmarshal(raw, &campaign.Title); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "title must be a string")
			return
		}
	}
	if raw, ok := fields["description"]; ok {
		if err := json.Unmarshal(raw, &campaign.Description); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "description must be a string")
			return
		}
	}
	if raw, ok := fields["goal_amount"]; ok {
		if err := json.Unmarshal(raw, &campaign.GoalAmount); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "goal_amount must be a decimal")
			return
		}
	}
	deadlineSet := false
	if raw, ok := fields["deadline"]; ok {
		if err := json.Unmarshal(raw, &campaign.Deadline); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "deadline must be a timestamp")
			return
		}
		deadlineSet = true
	}

	// The future-deadline rule applies only when the request changes the
	// deadline; an edit of other fields on an already-expired campaign
	// must not be rejected.
	now := time.Now()
	if strings.TrimSpace(campaign.Title) == "" {
		a.fail(w, domain.ErrInvalidTitle)
		return
	}
	if campaign.GoalAmount.Sign() <= 0 {
		a.fail(w, domain.ErrInvalidAmount)
		return
	}
	if deadlineSet && !campaign.Deadline.After(now) {
		a.fail(w, domain.ErrInvalidDeadline)
		return
	}

	if err := a.Campaigns.Update(r.Context(), campaign); err != nil {
		a.fail(w, err)
		return
	}

	// Every save recomputes the status: lowering the goal beneath the
	// raised amount completes the campaign immediately.
	if next := campaign.NextStatus(now); next != campaign.Status {
		if err := a.Campaigns.SetStatus(r.Context(), campaign.ID, next); err != nil {
			a.fail(w, err)
			return
		}
		campaign.Status = next
	}

	a.invalidateCampaignViews(r, campaign.OwnerID, user.ID)
	a.json(w, http.StatusOK, campaignPayload(campaign))
}

// CampaignsDelete removes a campaign along with its documents and donations.
func (a *App) CampaignsDelete(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	campaign, err := a.Campaigns.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	if d := policy.ForCampaign(user, campaign, policy.ActionDelete); !d.Allowed {
		a.Logger.Warn().Str("user_id", user.ID).Str("campaign_id", campaign.ID).Str("reason", d.Reason).Msg("campaign delete denied")
		a.fail(w, d.Err())
		return
	}

	if err := a.Campaigns.Delete(r.Context(), campaign.ID); err != nil {
		a.fail(w, err)
		return
	}
	a.invalidateCampaignViews(r, campaign.OwnerID, user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// CampaignsApprove moves an on-moderation campaign to active.
func (a *App) CampaignsApprove(w http.ResponseWriter, r *http.Request) {
	a.moderate(w, r, a.Funding.Approve)
}

// CampaignsReject moves an on-moderation campaign to rejected.
func (a *App) CampaignsReject(w http.ResponseWriter, r *http.Request) {
	a.moderate(w, r, a.Funding.Reject)
}

func (a *App) moderate(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) (*domain.Campaign, error)) {
	user, err := a.currentUser(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	if d := policy.ForCampaign(user, nil, policy.ActionModerate); !d.Allowed {
		a.Logger.Warn().Str("user_id", user.ID).Str("reason", d.Reason).Msg("moderation denied")
		a.fail(w, d.Err())
		return
	}

	campaign, err := op(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, campaignPayload(campaign))
}

func (a *App) invalidateCampaignViews(r *http.Request, userIDs ...string) {
	seen := map[string]struct{}{}
	var keys []string
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, cache.KeyCampaignList(id), cache.KeyMyCampaigns(id))
	}
	if err := a.Cache.Invalidate(r.Context(), keys...); err != nil {
		a.Logger.Warn().Err(err).Msg("cache invalidation failed")
	}
}
