package rest

import (
	"context"
	"net/http"
	"time"

	"ahlan-reserve/internal/backend"
	"ahlan-reserve/internal/clients"
	"ahlan-reserve/internal/domain"
	"ahlan-reserve/internal/service"
	"ahlan-reserve/internal/transport/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Reservations interface {
	Open(ctx context.Context, sess backend.Session, apartmentID int64) (*service.Session, error)
	Get(ctx context.Context, id string) (*service.Session, error)
	Preview(ctx context.Context, id string, form service.Form) (service.Quote, error)
	Submit(ctx context.Context, sess backend.Session, id string, form service.Form) (*service.Session, error)
	Dismiss(ctx context.Context, id string) (*service.Session, error)
	Cancel(ctx context.Context, id string) error
	Contract(ctx context.Context, id string) (*service.Contract, error)
	JournalFor(ctx context.Context, apartmentID int64, limit int) ([]domain.JournalEntry, error)
}

type Artifacts interface {
	Render(ctx context.Context, sessionID string, kind service.ArtifactKind) (service.Artifact, error)
	PrintView(ctx context.Context, sessionID string) (string, error)
}

type Handler struct {
	reservations Reservations
	artifacts    Artifacts
	logger       *zap.Logger
}

func NewHandler(reservations Reservations, artifacts Artifacts, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		reservations: reservations,
		artifacts:    artifacts,
		logger:       logger.Named("http"),
	}
}

// RouterOptions carries the optional pieces mounted next to the API.
type RouterOptions struct {
	Auth    func(http.Handler) http.Handler
	Hub     *websocket.Hub
	Files   *clients.LocalStorage
	Metrics http.Handler
	Timeout time.Duration
}

func (h *Handler) InitRouter() *chi.Mux {
	return h.InitRouterWithOptions(RouterOptions{})
}

// InitRouterWithOptions builds the full router. /health, /metrics and /files
// stay public; the reservation API and /ws sit behind opts.Auth.
func (h *Handler) InitRouterWithOptions(opts RouterOptions) *chi.Mux {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(h.logger),
		middleware.Recoverer,
	)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		Success(w, "ok", nil)
	})
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}
	if opts.Files != nil {
		r.Get("/files/{file}", FilesHandler(opts.Files))
	}

	r.Group(func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth)
		}

		if opts.Hub != nil {
			r.Get("/ws", h.serveWebSocket(opts.Hub))
		}

		r.Route("/reservations", func(r chi.Router) {
			r.Use(middleware.Timeout(opts.Timeout))

			r.Post("/", h.openReservation)
			r.Get("/apartments/{apartment_id}/journal", h.journal)

			r.Route("/{session_id}", func(r chi.Router) {
				r.Get("/", h.getReservation)
				r.Delete("/", h.cancelReservation)
				r.Post("/quote", h.quote)
				r.Post("/submit", h.submit)
				r.Post("/dismiss", h.dismiss)
				r.Get("/contract", h.contract)
				r.Get("/contract/print", h.printContract)
				r.Post("/artifacts/{kind}", h.renderArtifact)
			})
		})
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(started)),
			)
		})
	}
}
