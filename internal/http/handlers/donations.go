package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"server/internal/adapter/cache"
	"server/internal/domain"
	"server/internal/middleware"
	"server/internal/receipt"
)

func donationPayload(d *domain.Donation) map[string]any {
	return map[string]any{
		"id":          d.ID,
		"donor_id":    d.DonorID,
		"campaign_id": d.CampaignID,
		"amount":      d.Amount.StringFixed(2),
		"created_at":  d.CreatedAt,
	}
}

// DonationsList returns the caller's donations, cached per donor.
func (a *App) DonationsList(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.cached(w, r, cache.KeyDonationList(user.ID), func() (any, error) {
		items, err := a.Donations.ListByDonor(r.Context(), user.ID)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(items))
		for i := range items {
			out = append(out, donationPayload(&items[i]))
		}
		return map[string]any{"items": out}, nil
	})
}

type donationCreateRequest struct {
	CampaignID string          `json:"campaign_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// DonationsCreate runs the donation unit of work and reports the resulting
// balances and campaign state.
func (a *App) DonationsCreate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req donationCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.CampaignID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "campaign_id is required")
		return
	}

	result, err := a.Funding.Donate(r.Context(), userID, req.CampaignID, req.Amount)
	if err != nil {
		a.fail(w, err)
		return
	}

	a.json(w, http.StatusCreated, map[string]any{
		"donation":        donationPayload(result.Donation),
		"new_balance":     result.NewBalance.StringFixed(2),
		"campaign_raised": result.CampaignRaised.StringFixed(2),
		"campaign_status": result.CampaignStatus,
	})
}

// DonationsReceipt streams a PDF receipt for one of the caller's donations.
// Only the donor may fetch it.
func (a *App) DonationsReceipt(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	donation, err := a.Donations.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	if donation.DonorID != user.ID {
		a.Logger.Warn().Str("user_id", user.ID).Str("donation_id", donation.ID).Msg("receipt access denied")
		a.fail(w, domain.ErrUnauthorized)
		return
	}
	campaign, err := a.Campaigns.GetByID(r.Context(), donation.CampaignID)
	if err != nil {
		a.fail(w, err)
		return
	}

	issuedAt := time.Now()
	pdf, err := receipt.Render(receipt.Data{
		DonationID:          donation.ID,
		DonorEmail:          user.Email,
		DonorName:           user.FullName(),
		CampaignTitle:       campaign.Title,
		CampaignDescription: campaign.Description,
		Amount:              donation.Amount,
		CreatedAt:           donation.CreatedAt,
		Locale:              middleware.LocaleFromContext(r.Context()),
	}, issuedAt)
	if err != nil {
		a.Logger.Error().Err(err).Str("donation_id", donation.ID).Msg("receipt render failed")
		a.error(w, http.StatusInternalServerError, "internal_error", "could not render receipt")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "receipt_"+donation.ID+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
