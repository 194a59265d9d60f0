package main

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	clinical "github.com/cardioml/ctrcd-risk/pipelines/Clinical"
	"github.com/cardioml/ctrcd-risk/utils"
)

// handlePredict scores one patient record. The body is either
// {"data": {...}, "threshold": 0.25} or a flat JSON object of clinical
// fields; header aliases are honored, unknown fields ignored, and
// unparseable values treated as missing so a sparse record still gets a
// prediction.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if !s.predictor.Loaded() {
		writeServiceUnavailableResponse(w, "no model loaded; train one first")
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequestResponse(w, "request body must be a JSON object")
		return
	}
	if len(body) == 0 {
		writeBadRequestResponse(w, "request body is empty")
		return
	}

	threshold := s.predictor.DefaultThreshold()

	fields := body
	if data, ok := body["data"].(map[string]any); ok {
		fields = data
	}
	// A top-level threshold is honored in both body shapes; it is not a
	// clinical column, so the flat form cannot confuse it with a field.
	if raw, ok := body["threshold"]; ok {
		t, isNum := raw.(float64)
		if !isNum || t <= 0 || t >= 1 {
			writeBadRequestResponse(w, "threshold must be a number in (0,1)")
			return
		}
		threshold = t
	}

	record := recordFromJSON(fields)
	if len(record) == 0 {
		writeBadRequestResponse(w, "no recognized clinical fields in request")
		return
	}

	// The query parameter wins over a body threshold.
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil || t <= 0 || t >= 1 {
			writeBadRequestResponse(w, "threshold must be a number in (0,1)")
			return
		}
		threshold = t
	}

	result, err := s.predictor.Predict(record, threshold)
	if err != nil {
		utils.GetLogger().Error("prediction failed", err, utils.Component("predict"))
		writeInternalServerErrorResponse(w, "prediction failed")
		return
	}

	writeJSONResponse(w, http.StatusOK, result)
}

// recordFromJSON maps a decoded JSON object onto canonical clinical
// columns. Values may be numbers or numeric strings (decimal comma
// included); anything else is dropped as missing.
func recordFromJSON(body map[string]any) map[string]float64 {
	record := make(map[string]float64)
	for key, raw := range body {
		name := clinical.CanonicalColumn(key)
		if name == "" {
			continue
		}
		v := numericValue(raw)
		if math.IsNaN(v) {
			continue
		}
		record[name] = v
	}
	return record
}

func numericValue(raw any) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case string:
		return clinical.ParseCell(v)
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return math.NaN()
	}
}

// handleHealth reports liveness and whether a model is being served.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if !s.predictor.Loaded() {
		status = "degraded"
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":       status,
		"features":     s.predictor.FeatureCount(),
		"model_loaded": s.predictor.Loaded(),
		"model_kind":   s.predictor.ModelKind(),
		"version":      serviceVersion,
	})
}
