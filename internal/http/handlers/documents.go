package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/policy"
)

func documentPayload(d *domain.CampaignDocument) map[string]any {
	return map[string]any{
		"id":          d.ID,
		"campaign_id": d.CampaignID,
		"file_url":    d.FileURL,
		"uploaded_at": d.UploadedAt,
	}
}

// DocumentsList returns the document metadata attached to a campaign.
func (a *App) DocumentsList(w http.ResponseWriter, r *http.Request) {
	campaign, err := a.Campaigns.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	items, err := a.Documents.ListByCampaign(r.Context(), campaign.ID)
	if err != nil {
		a.fail(w, err)
		return
	}
	out := make([]map[string]any, 0, len(items))
	for i := range items {
		out = append(out, documentPayload(&items[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": out})
}

type documentCreateRequest struct {
	FileURL string `json:"file_url"`
}

// DocumentsCreate attaches document metadata to a campaign. Attaching follows
// the update rule: only the owner or an admin may do it.
func (a *App) DocumentsCreate(w http.ResponseWriter, r *http.Request) {
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
		a.Logger.Warn().Str("user_id", user.ID).Str("campaign_id", campaign.ID).Str("reason", d.Reason).Msg("document upload denied")
		a.fail(w, d.Err())
		return
	}

	var req documentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.FileURL) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "file_url is required")
		return
	}

	doc := &domain.CampaignDocument{
		ID:         uuid.NewString(),
		CampaignID: campaign.ID,
		FileURL:    req.FileURL,
		UploadedAt: time.Now(),
	}
	if err := a.Documents.Create(r.Context(), doc); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusCreated, documentPayload(doc))
}
