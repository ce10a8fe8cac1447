package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/veil-waf/flowscan/internal/history"
	"github.com/veil-waf/flowscan/internal/sse"
)

// hydrateCount is how many stored verdicts open a new stream.
const hydrateCount = 20

// StreamHandler serves live verdict events over SSE.
type StreamHandler struct {
	hub       *sse.Hub
	recorder  *history.Recorder
	keepalive time.Duration
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(hub *sse.Hub, recorder *history.Recorder) *StreamHandler {
	return &StreamHandler{hub: hub, recorder: recorder, keepalive: 30 * time.Second}
}

// HandleSSE handles GET /api/stream/events?mode=binary|multi. Without a mode
// every verdict is streamed. When history is enabled the stream opens with
// the most recent stored verdicts, oldest first.
func (sh *StreamHandler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	topic := sse.TopicAll
	if m := r.URL.Query().Get("mode"); m != "" {
		if m != "binary" && m != "multi" {
			jsonError(w, "mode must be binary or multi", http.StatusBadRequest)
			return
		}
		topic = m
	}

	ch, cancel := sh.hub.Subscribe(topic)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if recent, err := sh.recorder.Recent(r.Context(), hydrateCount); err == nil {
		slices.Reverse(recent)
		for _, v := range recent {
			if topic != sse.TopicAll && v.Mode != topic {
				continue
			}
			data, _ := json.Marshal(v)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", sse.EventVerdict, data)
		}
	}
	flusher.Flush()

	keepalive := time.NewTicker(sh.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}
