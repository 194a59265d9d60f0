package main

import "net/http"

const apiVersion = "v1"

// setupRoutes wires the HTTP surface: the prediction shim plus a small
// model-inspection API.
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.errorRecoveryMiddleware)
	s.router.Use(s.versionMiddleware(apiVersion))

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/models", s.handleListModels).Methods(http.MethodGet)
	api.HandleFunc("/model", s.handleModelInfo).Methods(http.MethodGet)
}
