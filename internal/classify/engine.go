package classify

import (
	"errors"
	"fmt"

	"github.com/veil-waf/flowscan/internal/model"
)

// Prediction is the raw outcome of one inference.
type Prediction struct {
	Index         int
	Label         string
	Probability   float64
	Probabilities []float64
}

// Engine runs scaled inference against the bundle of each mode. It only
// reads the model set and is safe for concurrent use.
type Engine struct {
	bundles map[Mode]*model.Bundle
}

// NewEngine binds each mode to its bundle.
func NewEngine(set *model.Set) (*Engine, error) {
	if set == nil || set.Binary == nil || set.Multi == nil {
		return nil, errors.New("model set is incomplete")
	}
	return &Engine{bundles: map[Mode]*model.Bundle{
		Binary: set.Binary,
		Multi:  set.Multi,
	}}, nil
}

// Bundle returns the bundle serving mode, or nil for an invalid mode.
func (e *Engine) Bundle(mode Mode) *model.Bundle {
	return e.bundles[mode]
}

// ExpectedFeatures is the vector length mode accepts.
func (e *Engine) ExpectedFeatures(mode Mode) int {
	if b := e.bundles[mode]; b != nil {
		return b.NumFeatures()
	}
	return 0
}

// Predict scales x, takes the class distribution and picks the most likely
// class. Ties go to the lowest class index.
func (e *Engine) Predict(mode Mode, x []float64) (*Prediction, error) {
	b := e.bundles[mode]
	if b == nil {
		return nil, inferenceError(fmt.Errorf("no model for mode %s", mode))
	}

	scaled, err := b.Scaler.Transform(x)
	if err != nil {
		return nil, inferenceError(err)
	}
	probs, err := b.Classifier.PredictProba(scaled)
	if err != nil {
		return nil, inferenceError(err)
	}
	if len(probs) != len(b.Labels) {
		return nil, inferenceError(fmt.Errorf("classifier returned %d classes, expected %d", len(probs), len(b.Labels)))
	}

	idx := argmax(probs)
	label := b.Labels[idx]
	if mode == Binary {
		label = model.BinaryLabels[0]
		if idx != 0 {
			label = model.BinaryLabels[1]
		}
	}

	return &Prediction{
		Index:         idx,
		Label:         label,
		Probability:   probs[idx],
		Probabilities: probs,
	}, nil
}

func inferenceError(err error) error {
	return &Error{Kind: KindInference, Message: err.Error(), Err: err}
}

// argmax returns the first index holding the largest value.
func argmax(p []float64) int {
	best := 0
	for i := 1; i < len(p); i++ {
		if p[i] > p[best] {
			best = i
		}
	}
	return best
}

// FormatConfidence renders a probability as a percentage with two decimals.
func FormatConfidence(p float64) string {
	return fmt.Sprintf("%.2f%%", p*100)
}
