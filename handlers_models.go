package main

import (
	"net/http"
	"strconv"

	"github.com/cardioml/ctrcd-risk/utils"
)

// handleListModels returns the registry's trained models, newest first.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		writeServiceUnavailableResponse(w, "model registry unavailable")
		return
	}

	limit := parseLimit(r, 50)
	models, err := s.registry.ListModels(r.Context(), limit)
	if err != nil {
		utils.GetLogger().Error("failed to list models", err, utils.Component("models"))
		writeInternalServerErrorResponse(w, "failed to list models")
		return
	}
	if models == nil {
		models = []*utils.ModelRecord{}
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"models": models,
		"count":  len(models),
	})
}

// handleModelInfo describes the model currently loaded for serving.
func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if !s.predictor.Loaded() {
		writeServiceUnavailableResponse(w, "no model loaded")
		return
	}

	info := map[string]any{
		"kind":              s.predictor.ModelKind(),
		"feature_count":     s.predictor.FeatureCount(),
		"default_threshold": s.predictor.DefaultThreshold(),
	}

	if s.registry != nil {
		if rec, err := s.registry.SelectedModel(r.Context()); err == nil && rec != nil {
			info["name"] = rec.Name
			info["roc_auc"] = rec.ROCAUC
			info["pr_auc"] = rec.PRAUC
			info["trained_at"] = rec.CreatedAt
		}
	}

	writeJSONResponse(w, http.StatusOK, info)
}

// parseLimit extracts and validates a limit query parameter, returning the
// default if absent or invalid.
func parseLimit(r *http.Request, defaultLimit int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit
	}
	if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
		return limit
	}
	return defaultLimit
}
