package classify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veil-waf/flowscan/internal/model"
)

func TestExplain(t *testing.T) {
	ranking := model.NewRanking(
		[]string{"f1", "f2", "f3", "f4", "f5", "f6", "f7"},
		[]float64{0.30, 0.05, 0.20, 0.15, 0.01, 0.25, 0.04},
	)

	tests := []struct {
		name    string
		mode    Mode
		verdict string
		want    string
	}{
		{"binary attack", Binary, "Attack", "Flagged due to high contribution from features like: f1, f6, f3, f4, f2."},
		{"multi family", Multi, "PortScan", "Flagged as PortScan due to high contribution from features like: f1, f6, f3, f4, f2."},
		{"benign", Binary, "Benign", ""},
		{"benign any case", Multi, "BENIGN", ""},
		{"benign substring", Multi, "Benign-Web", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Explain(tt.mode, tt.verdict, ranking))
		})
	}
}

func TestCategoryOf(t *testing.T) {
	require.Equal(t, CategoryBenign, CategoryOf("Benign"))
	require.Equal(t, CategoryBenign, CategoryOf("benign"))
	require.Equal(t, CategoryAttack, CategoryOf("Attack"))
	require.Equal(t, CategoryAttack, CategoryOf("DDoS"))
}

func TestParseMode(t *testing.T) {
	req := require.New(t)

	m, err := ParseMode("binary")
	req.NoError(err)
	req.Equal(Binary, m)

	m, err = ParseMode("multi")
	req.NoError(err)
	req.Equal(Multi, m)

	_, err = ParseMode("Binary")
	req.ErrorIs(err, ErrUnknownMode)

	var decoded Mode
	req.NoError(decoded.UnmarshalText([]byte("multi")))
	req.Equal(Multi, decoded)

	text, err := Multi.MarshalText()
	req.NoError(err)
	req.Equal("multi", string(text))

	_, err = Mode(0).MarshalText()
	req.Error(err)
}

func TestSamples(t *testing.T) {
	req := require.New(t)
	req.Equal([]string{"Benign", "Botnet", "DoS-Hulk", "Infiltration"}, []string{Samples[0].Name, Samples[1].Name, Samples[2].Name, Samples[3].Name})

	v, ok := SampleVector("Botnet")
	req.True(ok)
	req.Contains(v, "8080.0,6.0,11537.0")

	_, ok = SampleVector("Nope")
	req.False(ok)
}
