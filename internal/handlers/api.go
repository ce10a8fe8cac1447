package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/veil-waf/flowscan/internal/classify"
	"github.com/veil-waf/flowscan/internal/db"
	"github.com/veil-waf/flowscan/internal/history"
	"github.com/veil-waf/flowscan/internal/model"
	"github.com/veil-waf/flowscan/internal/ratelimit"
)

// ModelRankingSize is how many ranked features /api/models lists per mode.
const ModelRankingSize = 10

// maxBody bounds the JSON body of /v1/classify.
const maxBody = 64 << 10

// APIHandler serves the JSON endpoints.
type APIHandler struct {
	pipeline *classify.Pipeline
	recorder *history.Recorder
	logger   *slog.Logger
}

// NewAPIHandler creates the JSON API handler.
func NewAPIHandler(pipeline *classify.Pipeline, recorder *history.Recorder, logger *slog.Logger) *APIHandler {
	return &APIHandler{pipeline: pipeline, recorder: recorder, logger: logger}
}

// Classify handles POST /v1/classify.
func (h *APIHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req classify.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		jsonError(w, "body must be a JSON object with flow_data and analysis_mode", http.StatusBadRequest)
		return
	}

	res, err := h.pipeline.ClassifyForm(r.Context(), req.FlowData, req.AnalysisMode)
	if err != nil {
		writeJSON(w, statusFor(err), classify.NewResponse(nil, err))
		return
	}
	h.recorder.Record(r.Context(), res, ratelimit.ClientIP(r), history.SourceAPI)
	writeJSON(w, http.StatusOK, classify.NewResponse(res, nil))
}

func statusFor(err error) int {
	switch classify.KindOf(err) {
	case classify.KindValidation, classify.KindParse:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Samples handles GET /api/samples.
func (h *APIHandler) Samples(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, classify.Samples)
}

// ModelInfo describes one loaded bundle.
type ModelInfo struct {
	Mode        string                `json:"mode"`
	Features    int                   `json:"features"`
	Classes     []string              `json:"classes"`
	TopFeatures []model.RankedFeature `json:"top_features"`
}

// Models handles GET /api/models.
func (h *APIHandler) Models(w http.ResponseWriter, r *http.Request) {
	engine := h.pipeline.Engine()
	infos := lo.FilterMap(classify.Modes, func(m classify.Mode, _ int) (ModelInfo, bool) {
		b := engine.Bundle(m)
		if b == nil {
			return ModelInfo{}, false
		}
		return ModelInfo{
			Mode:        m.String(),
			Features:    b.NumFeatures(),
			Classes:     b.Labels,
			TopFeatures: b.Ranking[:min(ModelRankingSize, len(b.Ranking))],
		}, true
	})
	writeJSON(w, http.StatusOK, infos)
}

// History handles GET /api/history?limit=N.
func (h *APIHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	verdicts, err := h.recorder.Recent(r.Context(), limit)
	if err != nil {
		h.historyError(w, err)
		return
	}
	if verdicts == nil {
		verdicts = []db.Verdict{}
	}
	writeJSON(w, http.StatusOK, verdicts)
}

// HistoryStats handles GET /api/history/stats?window=24h.
func (h *APIHandler) HistoryStats(w http.ResponseWriter, r *http.Request) {
	window := 24 * time.Hour
	if s := r.URL.Query().Get("window"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			jsonError(w, "invalid window", http.StatusBadRequest)
			return
		}
		window = d
	}

	counts, err := h.recorder.Breakdown(r.Context(), window)
	if err != nil {
		h.historyError(w, err)
		return
	}
	attacks := lo.SumBy(lo.Filter(counts, func(c db.VerdictCount, _ int) bool {
		return c.Category == string(classify.CategoryAttack)
	}), func(c db.VerdictCount) int64 { return c.Count })
	writeJSON(w, http.StatusOK, map[string]any{
		"window":  window.String(),
		"total":   lo.SumBy(counts, func(c db.VerdictCount) int64 { return c.Count }),
		"attacks": attacks,
		"counts":  lo.Ternary(counts == nil, []db.VerdictCount{}, counts),
	})
}

func (h *APIHandler) historyError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrHistoryDisabled) {
		jsonError(w, "history is disabled", http.StatusNotFound)
		return
	}
	h.logger.Error("history query failed", "err", err)
	jsonError(w, "failed to fetch history", http.StatusInternalServerError)
}
