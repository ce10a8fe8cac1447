package db

import (
	"time"

	"github.com/google/uuid"
)

// Verdict is one persisted classification. Its JSON shape matches the
// payload sent on the verdict_stream channel. ClientIP is stored for
// rate and abuse review only and never leaves the server.
type Verdict struct {
	ID          uuid.UUID `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Mode        string    `json:"mode"`
	Verdict     string    `json:"verdict"`
	Category    string    `json:"category"`
	Confidence  string    `json:"confidence"`
	Probability float64   `json:"probability"`
	Reason      string    `json:"reason"`
	ClientIP    string    `json:"-"`
	Country     string    `json:"country"`
	Source      string    `json:"source"`
}

// VerdictCount is the number of verdicts with one label in a window.
type VerdictCount struct {
	Mode     string `json:"mode"`
	Verdict  string `json:"verdict"`
	Category string `json:"category"`
	Count    int64  `json:"count"`
}
