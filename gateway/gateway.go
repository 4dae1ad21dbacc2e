package gateway

import (
	"fmt"
	"net/http"

	"go.miragespace.co/nskv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DefaultStore is the store served at the root of the router.
const DefaultStore = "default"

type storeResolver func(r *http.Request) (*nskv.Store, error)

type Gateway struct {
	logger  *zap.Logger
	cfg     Config
	manager *nskv.Manager
	limiter *semaphore.Weighted
	router  chi.Router
}

var _ http.Handler = (*Gateway)(nil)

// New builds the HTTP surface over the stores in manager. The store named
// DefaultStore is served at "/", every store is reachable under
// "/stores/{store}".
func New(logger *zap.Logger, cfg Config, manager *nskv.Manager) (*Gateway, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	if manager == nil {
		return nil, fmt.Errorf("manager cannot be nil")
	}

	c := DefaultConfig()
	c.Merge(&cfg)

	if !nskv.ValidNamespace(c.DefaultNamespace) {
		return nil, fmt.Errorf("invalid default namespace %q", c.DefaultNamespace)
	}

	g := &Gateway{
		logger:  logger.With(zap.String("component", "gateway")),
		cfg:     c,
		manager: manager,
		limiter: semaphore.NewWeighted(c.MaxInflight),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(g.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", g.healthz)
	r.Route("/stores/{store}", func(r chi.Router) {
		g.mountStore(r, g.namedStore)
	})
	r.Group(func(r chi.Router) {
		g.mountStore(r, g.defaultStore)
	})

	g.router = r

	logger.Info("Gateway configured",
		zap.String("defaultNamespace", c.DefaultNamespace),
		zap.Int("maxBodyBytes", c.MaxBodyBytes),
		zap.Int64("maxInflight", c.MaxInflight),
	)

	return g, nil
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.router.ServeHTTP(w, r)
}

func (g *Gateway) mountStore(r chi.Router, resolve storeResolver) {
	r.Use(g.limit)
	r.Post("/", g.set(resolve))
	r.Get("/", g.get(resolve))
	r.Delete("/", g.del(resolve))
	r.Delete("/namespaces/{namespace}", g.destroy(resolve))
}

func (g *Gateway) defaultStore(r *http.Request) (*nskv.Store, error) {
	return g.manager.Store(DefaultStore)
}

func (g *Gateway) namedStore(r *http.Request) (*nskv.Store, error) {
	return g.manager.Store(chi.URLParam(r, "store"))
}

func (g *Gateway) namespace(ns string) string {
	if ns == "" {
		return g.cfg.DefaultNamespace
	}
	return ns
}
