// Package api serves layout reconstruction, comparison and the displayed workspace over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/InjectiveLabs/coretracer"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	log "github.com/xlab/suplog"

	"github.com/InjectiveLabs/slotlens/cache"
	"github.com/InjectiveLabs/slotlens/layout/assembler"
	"github.com/InjectiveLabs/slotlens/layout/compare"
	"github.com/InjectiveLabs/slotlens/workspace"
)

const (
	HealthCheckURI = "/health"
	MetricsURI     = "/metrics"

	cacheControl = "s-maxage=86400, stale-while-revalidate"

	maxRequestBytes = 16 * 1024 * 1024
)

// Releases lists the published compiler releases.
type Releases interface {
	Releases(ctx context.Context) (map[string]string, error)
}

type Config struct {
	ListenAddr     string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

type Server struct {
	cfg *Config

	assembler  *assembler.Assembler
	comparator *compare.Comparator
	fetcher    *cache.Fetcher
	releases   Releases
	workspace  *workspace.Workspace
	cacheName  string

	router  *mux.Router
	server  *http.Server
	started time.Time

	logger  log.Logger
	svcTags coretracer.Tags
}

type Option func(s *Server)

// WithFetcher serves cached contract layouts, fetching them from the registry on a miss.
func WithFetcher(f *cache.Fetcher, backend string) Option {
	return func(s *Server) {
		s.fetcher = f
		s.cacheName = backend
	}
}

// WithReleases serves the compiler release list.
func WithReleases(r Releases) Option {
	return func(s *Server) {
		s.releases = r
	}
}

// WithComparator replaces the builtin comparator.
func WithComparator(c *compare.Comparator) Option {
	return func(s *Server) {
		if c != nil {
			s.comparator = c
		}
	}
}

// WithAssembler replaces the default assembler.
func WithAssembler(a *assembler.Assembler) Option {
	return func(s *Server) {
		if a != nil {
			s.assembler = a
		}
	}
}

func NewServer(cfg *Config, ws *workspace.Workspace, opts ...Option) *Server {
	s := &Server{
		cfg:        checkConfig(cfg),
		assembler:  assembler.New(),
		comparator: compare.NewComparator(nil),
		workspace:  ws,
		cacheName:  "none",
		started:    time.Now(),

		logger:  log.WithField("svc", "api"),
		svcTags: coretracer.NewTag("svc", "api"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.workspace == nil {
		s.workspace = workspace.New(s.assembler)
	}

	s.router = s.routes()
	return s
}

func checkConfig(cfg *Config) *Config {
	if cfg == nil {
		cfg = &Config{}
	}

	if len(cfg.ListenAddr) == 0 {
		cfg.ListenAddr = "0.0.0.0:8080"
	}

	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	return cfg
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/layouts/render", s.renderLayout).Methods(http.MethodPost)
	api.HandleFunc("/compatibility_report", s.compatibilityReport).Methods(http.MethodPost)
	api.HandleFunc("/cached_storage_layout", s.cachedStorageLayout).Methods(http.MethodPost)
	api.HandleFunc("/namespaces/{id}", s.namespace).Methods(http.MethodGet)
	api.HandleFunc("/solc_versions", s.solcVersions).Methods(http.MethodGet)
	api.HandleFunc("/workspace", s.listWorkspace).Methods(http.MethodGet)
	api.HandleFunc("/workspace", s.addToWorkspace).Methods(http.MethodPost)
	api.HandleFunc("/workspace/{id}", s.removeFromWorkspace).Methods(http.MethodDelete)

	r.HandleFunc(HealthCheckURI, s.health).Methods(http.MethodGet)
	r.Handle(MetricsURI, promhttp.Handler()).Methods(http.MethodGet)

	return r
}

// Handler returns the routes wrapped with CORS.
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(s.router)
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) ListenAndServe() error {
	s.server = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           http.TimeoutHandler(s.Handler(), s.cfg.RequestTimeout, `{"message":"request timed out"}`),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.WithField("addr", s.cfg.ListenAddr).Infoln("serving HTTP API")

	err := s.server.ListenAndServe()
	if err != nil && errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
