package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"server/internal/adapter/cache"
	"server/internal/domain"
	"server/internal/funding"
	"server/internal/ledger"
	"server/internal/middleware"
)

// App bundles the dependencies the HTTP handlers need.
type App struct {
	Users     domain.UserRepository
	Campaigns domain.CampaignRepository
	Donations domain.DonationRepository
	Documents domain.DocumentRepository
	Funding   *funding.Service
	Ledger    *ledger.Ledger
	Cache     cache.Cache
	Logger    zerolog.Logger
	JWTSecret string
	JWTTTL    time.Duration
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, msg string) {
	a.json(w, code, map[string]any{"error": errCode, "message": msg})
}

// fail maps domain errors to HTTP responses. Unexpected errors are logged
// and reported as internal.
func (a *App) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusForbidden, "forbidden", "operation not permitted")
	case errors.Is(err, domain.ErrInvalidAmount):
		a.error(w, http.StatusBadRequest, "invalid_amount", "amount must be positive")
	case errors.Is(err, domain.ErrInsufficientFunds):
		a.error(w, http.StatusBadRequest, "insufficient_funds", "insufficient balance")
	case errors.Is(err, domain.ErrInvalidDeadline):
		a.error(w, http.StatusBadRequest, "invalid_deadline", "deadline must be in the future")
	case errors.Is(err, domain.ErrInvalidTitle):
		a.error(w, http.StatusBadRequest, "invalid_title", "title must not be empty")
	case errors.Is(err, domain.ErrRestrictedField):
		a.error(w, http.StatusBadRequest, "restricted_field", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		a.error(w, http.StatusConflict, "invalid_transition", "campaign is not awaiting moderation")
	case errors.Is(err, domain.ErrDuplicateEmail):
		a.error(w, http.StatusConflict, "duplicate_email", "email already registered")
	default:
		a.Logger.Error().Err(err).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// currentUser loads the authenticated user from the request context.
func (a *App) currentUser(ctx context.Context) (*domain.User, error) {
	userID := middleware.UserIDFromContext(ctx)
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	return a.Users.GetByID(ctx, userID)
}

// cached splits a list endpoint into cache lookup and fill. The loader runs
// on a miss; its serialized payload is stored best effort with the list TTL.
func (a *App) cached(w http.ResponseWriter, r *http.Request, key string, load func() (any, error)) {
	ctx := r.Context()
	if data, err := a.Cache.Get(ctx, key); err != nil {
		a.Logger.Warn().Err(err).Str("key", key).Msg("cache get failed")
	} else if data != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	payload, err := load()
	if err != nil {
		a.fail(w, err)
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		a.fail(w, err)
		return
	}
	if err := a.Cache.Set(ctx, key, body, cache.ListTTL); err != nil {
		a.Logger.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
