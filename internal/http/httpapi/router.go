package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

// NewRouter wires the HTTP surface. Auth, campaign and donation routes sit
// behind the JWT middleware; health and the auth endpoints are public.
func NewRouter(app *handlers.App, logger zerolog.Logger, defaultLocale string, lookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.Locale(defaultLocale, lookup),
	)

	r.Get("/v1/healthz", app.Health)
	r.Post("/v1/auth/register", app.Register)
	r.Post("/v1/auth/login", app.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(app.JWTSecret))

		r.Route("/v1/me", func(r chi.Router) {
			r.Get("/", app.Me)
			r.Patch("/", app.MeUpdate)
			r.Post("/topup", app.MeTopUp)
		})

		r.Route("/v1/campaigns", func(r chi.Router) {
			r.Get("/", app.CampaignsList)
			r.Post("/", app.CampaignsCreate)
			r.Get("/my", app.CampaignsMine)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.CampaignsGet)
				r.Patch("/", app.CampaignsUpdate)
				r.Delete("/", app.CampaignsDelete)
				r.Post("/approve", app.CampaignsApprove)
				r.Post("/reject", app.CampaignsReject)
				r.Get("/documents", app.DocumentsList)
				r.Post("/documents", app.DocumentsCreate)
			})
		})

		r.Route("/v1/donations", func(r chi.Router) {
			r.Get("/", app.DonationsList)
			r.Post("/", app.DonationsCreate)
			r.Get("/{id}/receipt", app.DonationsReceipt)
		})
	})

	return r
}
