package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"server/internal/domain"
	"server/internal/middleware"
)

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// Register creates a new account. The role may be donor or campaign_manager;
// admin accounts are provisioned out of band.
func (a *App) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		a.error(w, http.StatusBadRequest, "invalid_email", "a valid email is required")
		return
	}
	if len(req.Password) < 8 {
		a.error(w, http.StatusBadRequest, "weak_password", "password must be at least 8 characters")
		return
	}

	role := domain.UserRoleDonor
	switch req.Role {
	case "", string(domain.UserRoleDonor):
	case string(domain.UserRoleCampaignManager):
		role = domain.UserRoleCampaignManager
	default:
		a.error(w, http.StatusBadRequest, "invalid_role", "role must be donor or campaign_manager")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		a.fail(w, err)
		return
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hash),
		Role:         role,
		Balance:      decimal.Zero,
		IsActive:     true,
	}
	if err := a.Users.Create(r.Context(), user); err != nil {
		a.fail(w, err)
		return
	}

	a.Logger.Info().Str("user_id", user.ID).Msg("user registered")
	a.json(w, http.StatusCreated, map[string]any{
		"id":    user.ID,
		"email": user.Email,
		"role":  user.Role,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues a bearer token.
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	user, err := a.Users.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		// do not reveal whether the email exists
		a.error(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}
	if !user.IsActive {
		a.error(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		a.error(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}

	token, err := middleware.SignToken(a.JWTSecret, user.ID, string(user.Role), a.JWTTTL)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"token": token})
}
