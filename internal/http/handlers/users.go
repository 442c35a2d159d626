package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"server/internal/domain"
)

// userPayload is the user representation returned to clients. The password
// hash never leaves the server.
func userPayload(u *domain.User) map[string]any {
	return map[string]any{
		"id":         u.ID,
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"role":       u.Role,
		"balance":    u.Balance.StringFixed(2),
		"is_staff":   u.IsStaff,
		"created_at": u.CreatedAt,
	}
}

// Me returns the authenticated user.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, userPayload(user))
}

// restrictedUserFields are readable but rejected on update. Unknown fields
// are ignored.
var restrictedUserFields = []string{"balance", "role", "email", "is_staff", "id"}

// MeUpdate patches the caller's profile. Restricted field writes fail the
// whole request rather than being dropped silently.
func (a *App) MeUpdate(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	for _, name := range restrictedUserFields {
		if _, ok := fields[name]; ok {
			a.Logger.Warn().Str("user_id", user.ID).Str("field", name).Msg("restricted field write attempt")
			a.fail(w, fmt.Errorf("%w: updating %s is not allowed", domain.ErrRestrictedField, name))
			return
		}
	}

	if raw, ok := fields["first_name"]; ok {
		if err := json.Unmarshal(raw, &user.FirstName); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "first_name must be a string")
			return
		}
	}
	if raw, ok := fields["last_name"]; ok {
		if err := json.Unmarshal(raw, &user.LastName); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "last_name must be a string")
			return
		}
	}

	if err := a.Users.UpdateProfile(r.Context(), user); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, userPayload(user))
}

type topUpRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// MeTopUp credits the caller's wallet balance.
func (a *App) MeTopUp(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}

	var req topUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	balance, err := a.Ledger.Credit(r.Context(), user.ID, req.Amount)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"balance": balance.StringFixed(2)})
}
