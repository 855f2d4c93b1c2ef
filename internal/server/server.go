// Package server provides the HTTP API for gijiroku.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/gijiroku/internal/config"
	"github.com/hyperjump/gijiroku/internal/extract"
	"github.com/hyperjump/gijiroku/internal/meetings"
	"github.com/hyperjump/gijiroku/internal/search"
)

// maxUploadBytes caps multipart transcript uploads.
const maxUploadBytes = 32 << 20

// Server is the HTTP server for the gijiroku API.
type Server struct {
	meetings  *meetings.Service
	engine    *search.Engine
	extractor *extract.Extractor
	config    config.ServerConfig
	logger    *zap.Logger
	handler   http.Handler
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	svc *meetings.Service,
	engine *search.Engine,
	cfg config.ServerConfig,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		meetings:  svc,
		engine:    engine,
		extractor: extract.NewExtractor(),
		config:    cfg,
		logger:    logger,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Route("/meetings", func(r chi.Router) {
			r.Get("/", s.handleListMeetings)
			r.Get("/search", s.handleSearch)
			r.Post("/summarize", s.handleSummarize)
			r.Get("/{id}", s.handleGetMeeting)
			r.Put("/{id}", s.handleUpdateMeeting)
			r.Delete("/{id}", s.handleDeleteMeeting)
			r.Post("/{id}/email", s.handleEmail)
		})
	})
	return otelhttp.NewHandler(r, "gijiroku")
}

// requestLogger logs one line per request with the chi request id.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		}()
		next.ServeHTTP(ww, r)
	})
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server and blocks until it stops. A graceful Stop is not
// reported as an error.
func (s *Server) Start() error {
	addr := s.config.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
