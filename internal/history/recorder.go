// Package history records successful verdicts and announces them to live
// subscribers.
package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/veil-waf/flowscan/internal/classify"
	"github.com/veil-waf/flowscan/internal/db"
	"github.com/veil-waf/flowscan/internal/sse"
)

// Sources name the surface a verdict came from.
const (
	SourceForm      = "form"
	SourceAPI       = "api"
	SourceWebSocket = "ws"
)

// Store persists verdicts. *db.DB implements it.
type Store interface {
	InsertVerdict(ctx context.Context, v *db.Verdict) error
	RecentVerdicts(ctx context.Context, limit int) ([]db.Verdict, error)
	VerdictBreakdown(ctx context.Context, window time.Duration) ([]db.VerdictCount, error)
}

// Locator maps a client IP to a country code. *geoip.Service implements it.
type Locator interface {
	Country(ip string) string
}

// Recorder writes verdicts to the store when one is configured and to the
// hub otherwise. With a store, the insert trigger's NOTIFY reaches the hub
// through sse.PGListener instead.
type Recorder struct {
	store   Store
	hub     *sse.Hub
	locator Locator
	logger  *slog.Logger
}

// NewRecorder creates a recorder. store may be nil.
func NewRecorder(store Store, hub *sse.Hub, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, hub: hub, logger: logger}
}

// UseLocator annotates subsequent verdicts with the client's country.
func (r *Recorder) UseLocator(l Locator) { r.locator = l }

// Enabled reports whether verdicts are persisted.
func (r *Recorder) Enabled() bool { return r.store != nil }

// NewVerdict converts a result into its persisted form.
func NewVerdict(res *classify.Result, clientIP, source string) *db.Verdict {
	return &db.Verdict{
		ID:          uuid.New(),
		CreatedAt:   time.Now().UTC(),
		Mode:        res.Mode.String(),
		Verdict:     res.Verdict,
		Category:    string(res.Category),
		Confidence:  res.Confidence,
		Probability: res.Probability,
		Reason:      res.Reason,
		ClientIP:    clientIP,
		Source:      source,
	}
}

// Record stores or publishes res. Failures are logged and never affect the
// response already computed for the client.
func (r *Recorder) Record(ctx context.Context, res *classify.Result, clientIP, source string) {
	v := NewVerdict(res, clientIP, source)
	if r.locator != nil {
		v.Country = r.locator.Country(clientIP)
	}
	if r.store != nil {
		if err := r.store.InsertVerdict(ctx, v); err != nil {
			r.logger.Error("record verdict failed", "err", err, "verdict", v.Verdict)
		}
		return
	}
	if r.hub == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Error("marshal verdict failed", "err", err)
		return
	}
	r.hub.PublishVerdict(v.Mode, data)
}

// Recent returns up to limit verdicts, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]db.Verdict, error) {
	if r.store == nil {
		return nil, db.ErrHistoryDisabled
	}
	return r.store.RecentVerdicts(ctx, db.ClampLimit(limit))
}

// Breakdown returns verdict counts over window.
func (r *Recorder) Breakdown(ctx context.Context, window time.Duration) ([]db.VerdictCount, error) {
	if r.store == nil {
		return nil, db.ErrHistoryDisabled
	}
	return r.store.VerdictBreakdown(ctx, window)
}
