package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zeni-bff/internal/config"
	"github.com/zeni-bff/internal/domain"
	"github.com/zeni-bff/internal/pkg/clock"
	"github.com/zeni-bff/internal/transport/http/handler"
	appmiddleware "github.com/zeni-bff/internal/transport/http/middleware"
	"github.com/zeni-bff/internal/transport/ws"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}

	otpRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	debug := cfg.IsDevelopment()
	healthH := handler.NewHealthHandler(deps.Live, clk)
	adminH := handler.NewAdminHandler(deps.AdminAuth, deps.Delivery, debug)
	notifH := handler.NewNotificationHandler(deps.Ledger, debug)

	r.Get("/", healthH.Root)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/ws", ws.NewHandler(deps.Live, cfg.AllowedOrigins, cfg.WSPingInterval))

	r.Route("/api", func(r chi.Router) {
		r.Route("/admin", func(r chi.Router) {
			r.With(otpRL.Limit).Post("/send-otp", adminH.SendOTP)
			r.With(otpRL.Limit).Post("/verify-otp", adminH.VerifyOTP)

			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.Auth(deps.Tokens))
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Post("/send-notification", adminH.SendNotification)
				r.Post("/test-push", adminH.TestPush)
				r.Get("/otp-stats", adminH.OTPStats)
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Post("/register-device", notifH.RegisterDevice)
			r.Get("/{userId}", notifH.List)
			r.Get("/{userId}/unread-count", notifH.UnreadCount)
			r.Patch("/{userId}/read-all", notifH.MarkAllRead)
			r.Patch("/{userId}/{notificationId}/read", notifH.MarkRead)
		})
	})

	return r
}
