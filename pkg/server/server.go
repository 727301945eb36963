// Package server provides the public entry point for initializing the
// Reef orchestrator server.
//
// It lives in pkg/ (not internal/) so the hosted deployment can import
// it and compose the full server with its own generator and middleware:
//
//	srv, err := server.New(ctx, server.WithGenerator(llm))
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/reefhq/reef/orchestrator/internal/api"
	"github.com/reefhq/reef/orchestrator/internal/api/handlers"
	"github.com/reefhq/reef/orchestrator/internal/collab"
	"github.com/reefhq/reef/orchestrator/internal/config"
	"github.com/reefhq/reef/orchestrator/internal/orchestrator"
	"github.com/reefhq/reef/orchestrator/internal/predictive"
	"github.com/reefhq/reef/orchestrator/internal/registry"
	"github.com/reefhq/reef/orchestrator/internal/store"
	"github.com/reefhq/reef/orchestrator/internal/telemetry"
	"github.com/reefhq/reef/orchestrator/pkg/models"
)

// Server holds the initialized orchestrator.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the data store (in-memory by default). Exposed so the
	// hosted deployment can wrap it.
	Store store.Store

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// Option customizes server construction.
type Option func(*options)

type options struct {
	generator orchestrator.Generator
	store     store.Store
	registry  *registry.Registry
}

// WithGenerator plugs in the external language-model collaborator.
// Without one the chat route degrades to cache and referral paths.
func WithGenerator(g orchestrator.Generator) Option {
	return func(o *options) { o.generator = g }
}

// WithStore replaces the default in-memory store.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithRegistry replaces the built-in agent roster and keyword index.
func WithRegistry(r *registry.Registry) Option {
	return func(o *options) { o.registry = r }
}

// New initializes all orchestrator components and returns a ready Server.
func New(ctx context.Context, opts ...Option) (*Server, error) {
	cfg := config.Load()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, err
	}

	dataStore := o.store
	if dataStore == nil {
		dataStore = store.NewMemoryStore()
	}

	reg := o.registry
	if reg == nil {
		reg = registry.Default()
	}
	log.Info().Int("agents", len(reg.List())).Msg("Agent registry loaded")

	cache := predictive.NewCache(dataStore, models.CacheThresholds{
		Similarity: cfg.Cache.SimilarityThreshold,
		Confidence: cfg.Cache.ConfidenceThreshold,
	})
	cm := collab.NewManager(dataStore, reg)
	orch := orchestrator.New(reg, cache, o.generator, cfg.Cache.ResponseTTL)

	h := handlers.New(reg, cm, cache, orch)
	router := api.NewRouter(cfg, h)

	return &Server{
		Handler:      router,
		Store:        dataStore,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}
