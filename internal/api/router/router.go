package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pvanhorn/chatgate/internal/analytics"
	"github.com/pvanhorn/chatgate/internal/conversation"
	httpmiddleware "github.com/pvanhorn/chatgate/internal/http/middleware"
	"github.com/pvanhorn/chatgate/internal/webchat"
	"github.com/pvanhorn/chatgate/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	WebchatHandler      *webchat.Handler
	AnalyticsHandler    *analytics.Handler
	MetricsHandler      http.Handler
	AdminJWTSecret      string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.ConversationHandler != nil {
		r.Route("/chat", func(chat chi.Router) {
			chat.Post("/message", cfg.ConversationHandler.Message)
			chat.Get("/{sessionID}/history", cfg.ConversationHandler.History)
		})
	}
	if cfg.WebchatHandler != nil {
		r.Get("/webchat/ws", cfg.WebchatHandler.HandleWebSocket)
	}
	if cfg.AnalyticsHandler != nil {
		r.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminJWTSecret))
			admin.Get("/admin/moderation/report", cfg.AnalyticsHandler.Report)
		})
	}

	return r
}
