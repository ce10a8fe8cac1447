package handlers

import (
	"github.com/veil-waf/flowscan/internal/classify"
)

// Background images served from the static directory.
const (
	BackgroundDefault = "/static/first.jpeg"
	BackgroundBenign  = "/static/safe.jpeg"
	BackgroundAttack  = "/static/attack.jpeg"
)

// RefreshSeconds is how long a successful verdict stays on screen before the
// page returns to the empty form.
const RefreshSeconds = 20

// View is everything the form template renders.
type View struct {
	FlowData   string
	Mode       string
	HasResult  bool
	Error      bool
	Verdict    string
	Category   classify.Category
	Confidence string
	Reason     string
	Background string
	Refresh    bool
	Samples    []classify.Sample
}

// RefreshSeconds is exposed to the template.
func (View) RefreshSeconds() int { return RefreshSeconds }

// NewView maps a classification outcome to display attributes. res and err
// are both nil for the initial GET.
func NewView(flowData, mode string, res *classify.Result, err error) View {
	v := View{
		FlowData:   flowData,
		Mode:       mode,
		Background: BackgroundDefault,
		Samples:    classify.Samples,
	}
	if v.Mode == "" {
		v.Mode = classify.Binary.String()
	}

	switch {
	case err != nil:
		v.setError(classify.NewResponse(nil, err).Verdict)
	case res != nil:
		v.HasResult = true
		v.Verdict = res.Verdict
		v.Category = res.Category
		v.Confidence = res.Confidence
		v.Reason = res.Reason
		v.Refresh = true
		v.Background = BackgroundBenign
		if res.Category == classify.CategoryAttack {
			v.Background = BackgroundAttack
		}
	}
	return v
}

// NewErrorView renders a request the pipeline never saw, such as one
// refused by the rate limiter.
func NewErrorView(flowData, mode, message string) View {
	v := NewView(flowData, mode, nil, nil)
	v.setError("Error: " + message)
	return v
}

func (v *View) setError(verdict string) {
	v.HasResult = true
	v.Error = true
	v.Verdict = verdict
	v.Category = classify.CategoryAttack
	v.Background = BackgroundAttack
}
