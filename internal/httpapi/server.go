package httpapi

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/subdex/subdex/internal/subdexlog"
	"github.com/subdex/subdex/pkg/lrucache"
)

// Config controls Server construction.
type Config struct {
	Addr string
	// SearchCacheBytes bounds the debug search-result response cache.
	SearchCacheBytes int
	// SearchCacheTTL is how long an identical /search query is served
	// from cache before being recomputed.
	SearchCacheTTL time.Duration
}

// Server is the debug/search HTTP surface: a gorilla/mux router behind
// the compress/recovery/CORS middleware stack, a lru response cache for
// repeated identical searches, and Prometheus metrics.
type Server struct {
	cfg     Config
	store   Store
	log     subdexlog.Logger
	router  *mux.Router
	http    *http.Server
	metrics *metrics

	searchCache    *lrucache.Cache
	searchCacheTTL time.Duration
}

func New(cfg Config, store Store, log subdexlog.Logger) *Server {
	if cfg.SearchCacheBytes <= 0 {
		cfg.SearchCacheBytes = 8 << 20
	}
	if cfg.SearchCacheTTL <= 0 {
		cfg.SearchCacheTTL = 5 * time.Second
	}
	s := &Server{
		cfg:            cfg,
		store:          store,
		log:            log,
		searchCache:    lrucache.New(cfg.SearchCacheBytes),
		searchCacheTTL: cfg.SearchCacheTTL,
	}
	s.metrics = newMetrics(prometheus.DefaultRegisterer, func() float64 {
		return float64(s.store.Stats().NodeCount)
	})

	router := mux.NewRouter()
	router.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)
	router.HandleFunc("/search/approx", s.handleSearchApprox).Methods(http.MethodGet)
	router.Handle("/stats", lrucache.NewMiddleware(1<<20, time.Second)(http.HandlerFunc(s.handleStats))).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	router.Use(handlers.CompressHandler)
	router.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true)))
	router.Use(handlers.CORS(
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.AllowedMethods([]string{"GET"}),
		handlers.AllowedOrigins([]string{"*"})))

	s.router = router
	return s
}

// Start begins serving in a background goroutine and returns once the
// listener is bound. Use Shutdown to stop it.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	logged := handlers.CustomLoggingHandler(io.Discard, s.router, func(_ io.Writer, params handlers.LogFormatterParams) {
		s.log.Log(context.Background(), subdexlog.LevelVerbose, "%s %s (%d, %dms)",
			params.Request.Method, params.URL.RequestURI(), params.StatusCode,
			time.Since(params.TimeStamp).Milliseconds())
	})
	s.http = &http.Server{
		Handler:      logged,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Log(context.Background(), subdexlog.LevelCritical, "httpapi server stopped: %v", err)
		}
	}()
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
