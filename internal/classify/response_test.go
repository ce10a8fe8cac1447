package classify

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewResponse(t *testing.T) {
	res := &Result{
		Verdict:     "Botnet",
		Category:    CategoryAttack,
		Confidence:  "54.64%",
		Probability: 0.5464,
		Reason:      "Flagged as Botnet due to high contribution from features like: a, b, c, d, e.",
		Mode:        Multi,
	}
	b, err := json.Marshal(NewResponse(res, nil))
	require.NoError(t, err)
	require.JSONEq(t, `{
		"verdict": "Botnet",
		"category": "attack",
		"confidence": "54.64%",
		"probability": 0.5464,
		"reason": "Flagged as Botnet due to high contribution from features like: a, b, c, d, e.",
		"mode": "multi"
	}`, string(b))
}

func TestNewResponse_Errors(t *testing.T) {
	_, err := Validate("", Binary, 3)
	resp := NewResponse(nil, err)
	require.Equal(t, "Error: Please enter a network flow vector to analyze.", resp.Verdict)
	require.Equal(t, CategoryAttack, resp.Category)
	require.Equal(t, "validation", resp.ErrorKind)
	require.Empty(t, resp.Confidence)
	require.Empty(t, resp.Reason)

	resp = NewResponse(nil, errors.New("open /srv/models/x.json: permission denied"))
	require.Equal(t, "Error: internal error", resp.Verdict)
	require.Equal(t, "inference", resp.ErrorKind)
}
