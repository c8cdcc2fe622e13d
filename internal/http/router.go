package http

import (
	"net/http"
	"time"

	"cardlink/backend/internal/config"
	"cardlink/backend/internal/domain/admin"
	"cardlink/backend/internal/domain/analytics"
	"cardlink/backend/internal/domain/billing"
	"cardlink/backend/internal/domain/cardholder"
	"cardlink/backend/internal/domain/session"
	"cardlink/backend/internal/handlers"
	"cardlink/backend/internal/httpjson"
	"cardlink/backend/internal/logging"
	"cardlink/backend/internal/metrics"
	"cardlink/backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Cfg           config.Config
	Log           *zap.Logger
	Metrics       *metrics.Metrics
	AuthClient    middleware.IDTokenVerifier
	AdminSvc      *admin.Service
	CardholderSvc *cardholder.Service
	SessionSvc    *session.Service
	AnalyticsSvc  *analytics.Service
	BillingSvc    *billing.Service
	Uploads       *handlers.Uploads
}

type server struct {
	RouterDeps
	log *zap.Logger
}

func NewRouter(d RouterDeps) http.Handler {
	s := &server{RouterDeps: d, log: logging.OrNop(d.Log)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer(s.log))
	r.Use(middleware.Logger(s.log, d.Metrics))
	r.Use(middleware.CORS(d.Cfg.AllowedOrigins, s.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpjson.OK(w, 200, map[string]any{"ok": true, "ts": time.Now().UTC().Format(time.RFC3339)})
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	// ===== Stripe webhook (signature auth) =====
	if d.BillingSvc != nil {
		r.Post("/v1/stripe/webhook", d.BillingSvc.HandleWebhook)
	}

	// ===== Public profile =====
	r.Route("/v1/public/profiles/{slug}", func(pr chi.Router) {
		pr.Get("/", s.getPublicProfile)
		pr.Post("/views", s.recordView)
		pr.Post("/contact-saves", s.recordContactSave)
		pr.Get("/vcard", s.downloadVCard)
	})

	// ===== Cardholder =====
	r.Route("/v1/cardholder", func(cr chi.Router) {
		cr.Post("/login", s.login)
		cr.Group(func(ar chi.Router) {
			ar.Use(middleware.WithCardholderAuth(d.SessionSvc))
			ar.Get("/me", s.getSelf)
			ar.Patch("/me", s.updateSelf)
			ar.Get("/analytics", s.getSelfAnalytics)
		})
	})

	// ===== Admin =====
	r.Route("/v1/admin", func(ar chi.Router) {
		ar.Use(middleware.WithAdminAuth(d.AuthClient, d.AdminSvc, s.log))

		ar.Get("/me", s.getAdminMe)
		ar.Get("/admins", s.listAdmins)
		ar.With(middleware.RequireOwner).Post("/admins", s.addAdmin)
		ar.With(middleware.RequireOwner).Post("/admins/{uid}/activate", s.setAdminActive(true))
		ar.With(middleware.RequireOwner).Post("/admins/{uid}/deactivate", s.setAdminActive(false))

		ar.Get("/cardholders", s.listCardholders)
		ar.Post("/cardholders", s.createCardholder)
		ar.Route("/cardholders/{id}", func(cr chi.Router) {
			cr.Get("/", s.getCardholder)
			cr.Patch("/", s.updateCardholder)
			cr.Delete("/", s.deleteCardholder)
			cr.Post("/password", s.setCardholderPassword)
			cr.Post("/activate", s.setCardholderActive(true))
			cr.Post("/deactivate", s.setCardholderActive(false))
			cr.Get("/analytics", s.getCardholderAnalytics)
			cr.Delete("/analytics", s.deleteCardholderAnalytics)
		})

		ar.Get("/analytics", s.getCompanyAnalytics)

		if d.Uploads != nil {
			ar.Post("/uploads/signed-url", d.Uploads.CreateSignedUploadURL)
		}

		if d.BillingSvc != nil {
			ar.Get("/billing", s.getBilling)
			ar.Group(func(or chi.Router) {
				or.Use(middleware.RequireOwner)
				or.Post("/billing/checkout", s.createCheckout)
				or.Post("/billing/portal", s.createPortal)
				or.Post("/billing/cancel", s.cancelSubscription)
				or.Post("/billing/resume", s.resumeSubscription)
			})
		}
	})

	return r
}
