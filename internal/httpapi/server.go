package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"mergeanddown/internal/core/domain"
	"mergeanddown/internal/core/ports"
)

// Catalog is what the quality handler needs from the catalog service.
type Catalog interface {
	Classified(ctx context.Context, id domain.MediaID) (domain.Classified, error)
}

// MuxDownloader runs the fetch-and-mux pipeline.
type MuxDownloader interface {
	MuxDownload(ctx context.Context, req domain.MergeRequest, dst ports.Delivery) error
}

// DirectDownloader streams one encoding as is.
type DirectDownloader interface {
	Download(ctx context.Context, req domain.DirectRequest, dst ports.Delivery) error
}

// Options configures a Server.
type Options struct {
	Catalog Catalog
	Merger  MuxDownloader
	Direct  DirectDownloader
	Finder  ports.LinkFinder
	Logger  zerolog.Logger

	// RateLimit is the sustained number of download requests per second.
	// Zero disables limiting.
	RateLimit float64
	RateBurst int

	// Dependencies are reported by /healthz, keyed by name.
	Dependencies map[string]func() bool
}

// Server exposes the download pipeline over HTTP.
type Server struct {
	opts    Options
	logger  zerolog.Logger
	limiter *rate.Limiter
}

// New creates a new Server.
func New(opts Options) *Server {
	s := &Server{opts: opts, logger: opts.Logger}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/quality", s.handleQuality)
	r.Get("/search", s.handleSearch)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Get("/download-merge", s.handleMergeDownload)
		r.Get("/download", s.handleDirectDownload)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
