package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/veil-waf/flowscan/internal/classify"
	"github.com/veil-waf/flowscan/internal/history"
	"github.com/veil-waf/flowscan/internal/ratelimit"
)

//go:embed templates/*.html
var templates embed.FS

var indexTemplate = template.Must(template.ParseFS(templates, "templates/index.html"))

// UIHandler serves the analyzer form.
type UIHandler struct {
	pipeline *classify.Pipeline
	recorder *history.Recorder
	logger   *slog.Logger
}

// NewUIHandler creates the form handler.
func NewUIHandler(pipeline *classify.Pipeline, recorder *history.Recorder, logger *slog.Logger) *UIHandler {
	return &UIHandler{pipeline: pipeline, recorder: recorder, logger: logger}
}

// Index handles GET / with an empty form.
func (h *UIHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, NewView("", "", nil, nil))
}

// Analyze handles POST /. Every handled outcome, including rejected input,
// renders the page with status 200.
func (h *UIHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		jsonError(w, "invalid form body", http.StatusBadRequest)
		return
	}
	flowData := r.PostForm.Get("flow_data")
	mode := r.PostForm.Get("analysis_mode")

	res, err := h.pipeline.ClassifyForm(r.Context(), flowData, mode)
	if err == nil {
		h.recorder.Record(r.Context(), res, ratelimit.ClientIP(r), history.SourceForm)
	}
	h.render(w, NewView(flowData, mode, res, err))
}

// RateLimit applies the classify bucket to the form. A client over the limit
// gets the page back with an error verdict instead of a JSON 429.
func (h *UIHandler) RateLimit(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bucket, ok := l.Take(r, ratelimit.Classify)
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			retry := ratelimit.RetryAfter(bucket)
			msg := fmt.Sprintf("Rate limited. Try again in %d seconds.", retry)
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			h.render(w, NewErrorView(r.PostFormValue("flow_data"), r.PostFormValue("analysis_mode"), msg))
		})
	}
}

func (h *UIHandler) render(w http.ResponseWriter, v View) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, v); err != nil {
		h.logger.Error("render index failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
