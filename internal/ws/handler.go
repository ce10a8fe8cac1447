// Package ws classifies flow vectors sent over a websocket.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/veil-waf/flowscan/internal/classify"
	"github.com/veil-waf/flowscan/internal/history"
	"github.com/veil-waf/flowscan/internal/ratelimit"
)

const (
	writeWait = 5 * time.Second
	// readLimit leaves room for the JSON envelope around a maximal vector.
	readLimit = classify.MaxInputLength*4 + 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Manager tracks active connections and answers each text message with a
// classification.
type Manager struct {
	mu          sync.Mutex
	connections map[*websocket.Conn]struct{}
	pipeline    *classify.Pipeline
	recorder    *history.Recorder
	limiter     *ratelimit.Limiter
	logger      *slog.Logger
}

// NewManager creates a websocket manager.
func NewManager(pipeline *classify.Pipeline, recorder *history.Recorder, limiter *ratelimit.Limiter, logger *slog.Logger) *Manager {
	return &Manager{
		connections: make(map[*websocket.Conn]struct{}),
		pipeline:    pipeline,
		recorder:    recorder,
		limiter:     limiter,
		logger:      logger,
	}
}

// HandleWS upgrades the request and serves messages until the client leaves.
func (m *Manager) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Error("websocket upgrade failed", "err", err)
		return
	}
	conn.SetReadLimit(readLimit)
	ip := ratelimit.ClientIP(r)

	m.mu.Lock()
	m.connections[conn] = struct{}{}
	m.mu.Unlock()
	defer m.remove(conn)

	bucket := m.limiter.Bucket(ratelimit.Classify)
	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.logger.Warn("websocket read failed", "err", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		if !m.limiter.Allow(ratelimit.Classify+":"+ip, bucket) {
			if err := sendJSON(conn, map[string]any{"error": "Rate limited"}); err != nil {
				return
			}
			continue
		}

		if err := sendJSON(conn, m.classify(r, msg, ip)); err != nil {
			m.logger.Warn("websocket write failed", "err", err)
			return
		}
	}
}

func (m *Manager) classify(r *http.Request, msg []byte, ip string) classify.Response {
	var req classify.Request
	if err := json.Unmarshal(msg, &req); err != nil {
		return classify.Response{
			Verdict:   "Error: message must be a JSON object with flow_data and analysis_mode",
			Category:  classify.CategoryAttack,
			ErrorKind: classify.KindValidation.String(),
		}
	}
	res, err := m.pipeline.ClassifyForm(r.Context(), req.FlowData, req.AnalysisMode)
	if err == nil {
		m.recorder.Record(r.Context(), res, ip, history.SourceWebSocket)
	}
	return classify.NewResponse(res, err)
}

func (m *Manager) remove(conn *websocket.Conn) {
	m.mu.Lock()
	delete(m.connections, conn)
	m.mu.Unlock()
	conn.Close()
}

// Count returns the number of open connections.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.connections)
}

// CloseAll sends a going-away close frame to every client.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(m.connections))
	for c := range m.connections {
		conns = append(conns, c)
	}
	m.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, c := range conns {
		c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	}
}

func sendJSON(conn *websocket.Conn, v any) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, msg)
}
