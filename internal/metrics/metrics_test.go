package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/veil-waf/flowscan/internal/classify"
)

func TestRecorder_ObserveResult(t *testing.T) {
	req := require.New(t)
	r := New()

	attack := &classify.Result{Verdict: "DoS-Hulk", Category: classify.CategoryAttack, Probability: 0.58, Mode: classify.Multi}
	benign := &classify.Result{Verdict: "Benign", Category: classify.CategoryBenign, Probability: 0.94, Mode: classify.Binary}

	r.ObserveResult(classify.Multi, attack, time.Millisecond)
	r.ObserveResult(classify.Multi, attack, time.Millisecond)
	r.ObserveResult(classify.Binary, benign, time.Millisecond)

	req.Equal(2.0, testutil.ToFloat64(r.verdicts.WithLabelValues("multi", "attack", "DoS-Hulk")))
	req.Equal(1.0, testutil.ToFloat64(r.verdicts.WithLabelValues("binary", "benign", "Benign")))
	req.Equal(2, testutil.CollectAndCount(r.latency))
}

func TestRecorder_ObserveRejection(t *testing.T) {
	r := New()
	r.ObserveRejection(classify.Binary, classify.KindValidation)
	r.ObserveRejection(0, classify.KindValidation)
	r.ObserveRejection(classify.Multi, classify.KindParse)

	require.Equal(t, 1.0, testutil.ToFloat64(r.rejections.WithLabelValues("binary", "validation")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.rejections.WithLabelValues("unknown", "validation")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.rejections.WithLabelValues("multi", "parse")))
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.ObserveRejection(classify.Binary, classify.KindParse)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `flowscan_rejections_total{kind="parse",mode="binary"} 1`)
	require.Contains(t, string(body), "go_goroutines")
}
