package handlers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/veil-waf/flowscan/internal/db"
)

// memStore is an in-memory history.Store.
type memStore struct {
	mu       sync.Mutex
	verdicts []db.Verdict
}

func (m *memStore) InsertVerdict(_ context.Context, v *db.Verdict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verdicts = append(m.verdicts, *v)
	return nil
}

func (m *memStore) RecentVerdicts(_ context.Context, limit int) ([]db.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]db.Verdict, 0, len(m.verdicts))
	for i := len(m.verdicts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.verdicts[i])
	}
	return out, nil
}

func (m *memStore) VerdictBreakdown(_ context.Context, window time.Duration) ([]db.VerdictCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-window)
	counts := map[[3]string]int64{}
	for _, v := range m.verdicts {
		if v.CreatedAt.After(cutoff) {
			counts[[3]string{v.Mode, v.Verdict, v.Category}]++
		}
	}
	var out []db.VerdictCount
	for k, n := range counts {
		out = append(out, db.VerdictCount{Mode: k[0], Verdict: k[1], Category: k[2], Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Mode != out[j].Mode {
			return out[i].Mode < out[j].Mode
		}
		return out[i].Verdict < out[j].Verdict
	})
	return out, nil
}
