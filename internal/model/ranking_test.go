package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRanking(t *testing.T) {
	req := require.New(t)

	r := NewRanking(
		[]string{"port", "duration", "bytes", "flags", "window", "idle"},
		[]float64{0.1, 0.3, 0.1, 0.05, 0.3, 0.15},
	)

	req.Equal([]string{"duration", "window", "idle", "port", "bytes", "flags"}, r.Top(6))
	req.Equal([]string{"duration", "window"}, r.Top(2))
	req.Len(r.Top(10), 6)
	req.InDelta(0.3, r[0].Importance, 1e-12)
}
