package main

import (
	"context"
	"net/http"

	"github.com/cardioml/ctrcd-risk/utils"
	"github.com/gorilla/mux"
)

// Server serves CTRCD risk predictions from a trained model artifact.
type Server struct {
	router    *mux.Router
	config    *utils.Config
	predictor *Predictor
	registry  *utils.ModelRegistry
}

// NewServer builds the server, loads the serving artifacts and wires the
// routes. A missing model is not fatal: the server starts degraded and
// /predict answers 503 until a model is trained.
func NewServer(cfg *utils.Config) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		config:    cfg,
		predictor: NewPredictor(cfg.Model.DefaultThreshold),
	}

	logger := utils.GetLogger()

	if err := s.predictor.LoadArtifacts(cfg.ModelPath(), cfg.FeaturesPath()); err != nil {
		logger.Warn("no serving model loaded",
			utils.String("model_path", cfg.ModelPath()),
			utils.String("reason", err.Error()),
			utils.Component("server"))
	} else {
		logger.Info("serving model loaded",
			utils.String("kind", s.predictor.ModelKind()),
			utils.Int("features", s.predictor.FeatureCount()),
			utils.Component("server"))
	}

	registry, err := utils.NewModelRegistry(cfg.Model.RegistryPath)
	if err != nil {
		logger.Warn("model registry unavailable",
			utils.String("path", cfg.Model.RegistryPath),
			utils.String("reason", err.Error()),
			utils.Component("server"))
	} else {
		s.registry = registry
	}

	s.setupRoutes()
	return s
}

// Router exposes the configured handler, wrapped by tests and by main.
func (s *Server) Router() http.Handler {
	return s.router
}

// Shutdown releases server-held resources.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.registry != nil {
		return s.registry.Close()
	}
	return nil
}
