package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"server/internal/domain"
	"server/internal/funding"
	"server/internal/ledger"
	"server/internal/middleware"
)

type fakeUsers struct {
	byID map[string]*domain.User
}

func (f *fakeUsers) Create(_ context.Context, u *domain.User) error {
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return domain.ErrDuplicateEmail
		}
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUsers) UpdateProfile(_ context.Context, u *domain.User) error {
	stored, ok := f.byID[u.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.FirstName = u.FirstName
	stored.LastName = u.LastName
	return nil
}

func (f *fakeUsers) CreditBalance(_ context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	u, ok := f.byID[userID]
	if !ok {
		return decimal.Zero, domain.ErrNotFound
	}
	u.Balance = u.Balance.Add(amount)
	return u.Balance, nil
}

func (f *fakeUsers) DebitBalance(_ context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	u, ok := f.byID[userID]
	if !ok {
		return decimal.Zero, domain.ErrNotFound
	}
	if u.Balance.LessThan(amount) {
		return decimal.Zero, domain.ErrInsufficientFunds
	}
	u.Balance = u.Balance.Sub(amount)
	return u.Balance, nil
}

type fakeCampaigns struct {
	byID map[string]*domain.Campaign
}

func (f *fakeCampaigns) Create(_ context.Context, c *domain.Campaign) error {
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeCampaigns) GetByID(_ context.Context, id string) (*domain.Campaign, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCampaigns) ListVisible(_ context.Context, viewerID string) ([]domain.Campaign, error) {
	var out []domain.Campaign
	for _, c := range f.byID {
		if c.OwnerID == viewerID || c.Status != domain.CampaignOnModeration && c.Status != domain.CampaignRejected {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCampaigns) ListByOwner(_ context.Context, ownerID string) ([]domain.Campaign, error) {
	var out []domain.Campaign
	for _, c := range f.byID {
		if c.OwnerID == ownerID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCampaigns) Update(_ context.Context, c *domain.Campaign) error {
	if _, ok := f.byID[c.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeCampaigns) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeCampaigns) SetStatus(_ context.Context, id string, status domain.CampaignStatus) error {
	c, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Status = status
	return nil
}

func (f *fakeCampaigns) ExpireDue(_ context.Context, now time.Time) (int64, []string, error) {
	var n int64
	var owners []string
	for _, c := range f.byID {
		if c.Deadline.Before(now) && (c.Status == domain.CampaignActive || c.Status == domain.CampaignOnModeration) {
			c.Status = domain.CampaignExpired
			n++
			owners = append(owners, c.OwnerID)
		}
	}
	return n, owners, nil
}

type fakeDonations struct {
	byID map[string]*domain.Donation
}

func (f *fakeDonations) GetByID(_ context.Context, id string) (*domain.Donation, error) {
	d, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDonations) ListByDonor(_ context.Context, donorID string) ([]domain.Donation, error) {
	var out []domain.Donation
	for _, d := range f.byID {
		if d.DonorID == donorID {
			out = append(out, *d)
		}
	}
	return out, nil
}

// fakeFundingStore runs the donation unit of work directly against the fakes.
// Handler tests cover the happy path; rollback behavior is covered by the
// funding package tests.
type fakeFundingStore struct {
	users     *fakeUsers
	campaigns *fakeCampaigns
	donations *fakeDonations
}

func (f *fakeFundingStore) WithinTx(_ context.Context, fn func(tx domain.FundingTx) error) error {
	return fn(f)
}

func (f *fakeFundingStore) IncrementRaised(ctx context.Context, campaignID string, amount decimal.Decimal) (*domain.Campaign, error) {
	c, ok := f.campaigns.byID[campaignID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c.RaisedAmount = c.RaisedAmount.Add(amount)
	cp := *c
	return &cp, nil
}

func (f *fakeFundingStore) SetStatus(ctx context.Context, campaignID string, status domain.CampaignStatus) error {
	return f.campaigns.SetStatus(ctx, campaignID, status)
}

func (f *fakeFundingStore) DebitBalance(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	return f.users.DebitBalance(ctx, userID, amount)
}

func (f *fakeFundingStore) InsertDonation(_ context.Context, d *domain.Donation) error {
	cp := *d
	f.donations.byID[d.ID] = &cp
	return nil
}

type memCache struct {
	data map[string][]byte
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	return m.data[key], nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memCache) Invalidate(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type testEnv struct {
	app       *App
	users     *fakeUsers
	campaigns *fakeCampaigns
	donations *fakeDonations
	cache     *memCache
}

func newTestEnv() *testEnv {
	users := &fakeUsers{byID: map[string]*domain.User{}}
	campaigns := &fakeCampaigns{byID: map[string]*domain.Campaign{}}
	donations := &fakeDonations{byID: map[string]*domain.Donation{}}
	store := &fakeFundingStore{users: users, campaigns: campaigns, donations: donations}
	c := &memCache{data: map[string][]byte{}}
	logger := zerolog.Nop()

	return &testEnv{
		app: &App{
			Users:     users,
			Campaigns: campaigns,
			Donations: donations,
			Funding:   funding.New(users, campaigns, store, c, logger),
			Ledger:    ledger.New(users),
			Cache:     c,
			Logger:    logger,
			JWTSecret: "test-secret",
			JWTTTL:    time.Hour,
		},
		users:     users,
		campaigns: campaigns,
		donations: donations,
		cache:     c,
	}
}

func (e *testEnv) addUser(id string, balance decimal.Decimal, role domain.UserRole, staff bool) *domain.User {
	u := &domain.User{
		ID:       id,
		Email:    id + "@example.com",
		Role:     role,
		Balance:  balance,
		IsStaff:  staff,
		IsActive: true,
	}
	e.users.byID[id] = u
	return u
}

func (e *testEnv) addCampaign(id, ownerID string, goal decimal.Decimal, status domain.CampaignStatus) *domain.Campaign {
	c := &domain.Campaign{
		ID:         id,
		OwnerID:    ownerID,
		Title:      "Test campaign " + id,
		GoalAmount: goal,
		Deadline:   time.Now().Add(24 * time.Hour),
		Status:     status,
	}
	e.campaigns.byID[id] = c
	return c
}

func request(userID, method, target, body string, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if userID != "" {
		req = req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	return req
}

func TestDonationsCreate(t *testing.T) {
	env := newTestEnv()
	env.addUser("donor", decimal.NewFromInt(500), domain.UserRoleDonor, false)
	env.addCampaign("c1", "owner", decimal.NewFromInt(1000), domain.CampaignActive)

	rec := httptest.NewRecorder()
	env.app.DonationsCreate(rec, request("donor", http.MethodPost, "/v1/donations",
		`{"campaign_id":"c1","amount":"200"}`, nil))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		NewBalance     string `json:"new_balance"`
		CampaignRaised string `json:"campaign_raised"`
		CampaignStatus string `json:"campaign_status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "300.00", resp.NewBalance)
	require.Equal(t, "200.00", resp.CampaignRaised)
	require.Equal(t, "active", resp.CampaignStatus)
}

func TestDonationsCreateInsufficientFunds(t *testing.T) {
	env := newTestEnv()
	env.addUser("donor", decimal.NewFromInt(50), domain.UserRoleDonor, false)
	env.addCampaign("c1", "owner", decimal.NewFromInt(1000), domain.CampaignActive)

	rec := httptest.NewRecorder()
	env.app.DonationsCreate(rec, request("donor", http.MethodPost, "/v1/donations",
		`{"campaign_id":"c1","amount":"200"}`, nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "insufficient_funds")
	require.Empty(t, env.donations.byID)
}

func TestCampaignsUpdateRestrictedField(t *testing.T) {
	env := newTestEnv()
	env.addUser("owner", decimal.Zero, domain.UserRoleCampaignManager, false)
	env.addCampaign("c1", "owner", decimal.NewFromInt(1000), domain.CampaignActive)

	rec := httptest.NewRecorder()
	env.app.CampaignsUpdate(rec, request("owner", http.MethodPatch, "/v1/campaigns/c1",
		`{"raised_amount":"9999"}`, map[string]string{"id": "c1"}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "restricted_field")
	require.True(t, env.campaigns.byID["c1"].RaisedAmount.IsZero())
}

func TestCampaignsUpdateIgnoresUnknownFields(t *testing.T) {
	env := newTestEnv()
	env.addUser("owner", decimal.Zero, domain.UserRoleCampaignManager, false)
	env.addCampaign("c1", "owner", decimal.NewFromInt(1000), domain.CampaignActive)

	rec := httptest.NewRecorder()
	env.app.CampaignsUpdate(rec, request("owner", http.MethodPatch, "/v1/campaigns/c1",
		`{"title":"Renamed","favorite_color":"green"}`, map[string]string{"id": "c1"}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Renamed", env.campaigns.byID["c1"].Title)
}

// Lowering the goal beneath the raised amount must complete the campaign on
// save, the same recompute a donation runs.
func TestCampaignsUpdateRecomputesStatus(t *testing.T) {
	env := newTestEnv()
	env.addUser("owner", decimal.Zero, domain.UserRoleCampaignManager, false)
	c := env.addCampaign("c1", "owner", decimal.NewFromInt(1000), domain.CampaignActive)
	c.RaisedAmount = decimal.NewFromInt(100)

	rec := httptest.NewRecorder()
	env.app.CampaignsUpdate(rec, request("owner", http.MethodPatch, "/v1/campaigns/c1",
		`{"goal_amount":"50.00"}`, map[string]string{"id": "c1"}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"completed"`)
	require.Equal(t, domain.CampaignCompleted, env.campaigns.byID["c1"].Status)
}

// Editing unrelated fields must not re-run the future-deadline rule; the
// recompute flips the overdue campaign to expired instead of rejecting it.
func TestCampaignsUpdateTitleAfterDeadline(t *testing.T) {
	env := newTestEnv()
	env.addUser("owner", decimal.Zero, domain.UserRoleCampaignManager, false)
	c := env.addCampaign("c1", "owner", decimal.NewFromInt(1000), domain.CampaignActive)
	c.Deadline = time.Now().Add(-24 * time.Hour)

	rec := httptest.NewRecorder()
	env.app.CampaignsUpdate(rec, request("owner", http.MethodPatch, "/v1/campaigns/c1",
		`{"title":"Renamed"}`, map[string]string{"id": "c1"}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Renamed", env.campaigns.byID["c1"].Title)
	require.Equal(t, domain.CampaignExpired, env.campaigns.byID["c1"].Status)

	// moving the deadline itself still demands a future timestamp
	rec = httptest.NewRecorder()
	env.app.CampaignsUpdate(rec, request("owner", http.MethodPatch, "/v1/campaigns/c1",
		`{"deadline":"2020-01-01T00:00:00Z"}`, map[string]string{"id": "c1"}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_deadline")
}

func TestCampaignsUpdateDeniedForStaff(t *testing.T) {
	env := newTestEnv()
	env.addUser("staff", decimal.Zero, domain.UserRoleDonor, true)
	env.addCampaign("c1", "owner", decimal.NewFromInt(1000), domain.CampaignActive)

	rec := httptest.NewRecorder()
	env.app.CampaignsUpdate(rec, request("staff", http.MethodPatch, "/v1/campaigns/c1",
		`{"title":"Hijacked"}`, map[string]string{"id": "c1"}))

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCampaignsDeleteAllowedForStaff(t *testing.T) {
	env := newTestEnv()
	env.addUser("staff", decimal.Zero, domain.UserRoleDonor, true)
	env.addCampaign("c1", "owner", decimal.NewFromInt(1000), domain.CampaignActive)

	rec := httptest.NewRecorder()
	env.app.CampaignsDelete(rec, request("staff", http.MethodDelete, "/v1/campaigns/c1",
		"", map[string]string{"id": "c1"}))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, env.campaigns.byID)
}

func TestCampaignsApproveRequiresAdmin(t *testing.T) {
	env := newTestEnv()
	env.addUser("owner", decimal.Zero, domain.UserRoleCampaignManager, false)
	env.addUser("admin", decimal.Zero, domain.UserRoleAdmin, false)
	env.addCampaign("c1", "owner", decimal.NewFromInt(1000), domain.CampaignOnModeration)

	rec := httptest.NewRecorder()
	env.app.CampaignsApprove(rec, request("owner", http.MethodPost, "/v1/campaigns/c1/approve",
		"", map[string]string{"id": "c1"}))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	env.app.CampaignsApprove(rec, request("admin", http.MethodPost, "/v1/campaigns/c1/approve",
		"", map[string]string{"id": "c1"}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, domain.CampaignActive, env.campaigns.byID["c1"].Status)
}

func TestCampaignsApproveConflictAfterModeration(t *testing.T) {
	env := newTestEnv()
	env.addUser("admin", decimal.Zero, domain.UserRoleAdmin, false)
	env.addCampaign("c1", "owner", decimal.NewFromInt(1000), domain.CampaignActive)

	rec := httptest.NewRecorder()
	env.app.CampaignsReject(rec, request("admin", http.MethodPost, "/v1/campaigns/c1/reject",
		"", map[string]string{"id": "c1"}))

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCampaignsListCached(t *testing.T) {
	env := newTestEnv()
	env.addUser("viewer", decimal.Zero, domain.UserRoleDonor, false)
	env.addCampaign("c1", "owner", decimal.NewFromInt(1000), domain.CampaignActive)

	rec := httptest.NewRecorder()
	env.app.CampaignsList(rec, request("viewer", http.MethodGet, "/v1/campaigns", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	first := rec.Body.String()
	require.Contains(t, first, "c1")

	// the second read is served from cache and does not see new rows
	env.addCampaign("c2", "owner", decimal.NewFromInt(500), domain.CampaignActive)
	rec = httptest.NewRecorder()
	env.app.CampaignsList(rec, request("viewer", http.MethodGet, "/v1/campaigns", "", nil))
	require.Equal(t, first, rec.Body.String())
	require.NotContains(t, rec.Body.String(), "c2")
}

func TestDonationsReceiptDonorOnly(t *testing.T) {
	env := newTestEnv()
	donor := env.addUser("donor", decimal.Zero, domain.UserRoleDonor, false)
	env.addUser("other", decimal.Zero, domain.UserRoleDonor, false)
	env.addCampaign("c1", "owner", decimal.NewFromInt(1000), domain.CampaignActive)
	env.donations.byID["d1"] = &domain.Donation{
		ID:         "d1",
		DonorID:    donor.ID,
		CampaignID: "c1",
		Amount:     decimal.NewFromInt(25),
		CreatedAt:  time.Now(),
	}

	rec := httptest.NewRecorder()
	env.app.DonationsReceipt(rec, request("other", http.MethodGet, "/v1/donations/d1/receipt",
		"", map[string]string{"id": "d1"}))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	env.app.DonationsReceipt(rec, request("donor", http.MethodGet, "/v1/donations/d1/receipt",
		"", map[string]string{"id": "d1"}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestMeUpdateRestrictedField(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1", decimal.NewFromInt(10), domain.UserRoleDonor, false)

	rec := httptest.NewRecorder()
	env.app.MeUpdate(rec, request("u1", http.MethodPatch, "/v1/me",
		`{"balance":"100000"}`, nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "restricted_field")
	require.True(t, env.users.byID["u1"].Balance.Equal(decimal.NewFromInt(10)))
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv()

	rec := httptest.NewRecorder()
	env.app.Register(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/register",
		bytes.NewReader([]byte(`{"email":"Ana@Example.com","password":"s3cretpass","role":"campaign_manager"}`))))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	env.app.Login(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		bytes.NewReader([]byte(`{"email":"ana@example.com","password":"s3cretpass"}`))))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "token")

	rec = httptest.NewRecorder()
	env.app.Login(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		bytes.NewReader([]byte(`{"email":"ana@example.com","password":"wrongpass"}`))))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
