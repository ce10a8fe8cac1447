package model

import (
	"errors"
	"io"
)

// Classifier produces a class distribution for a scaled vector.
type Classifier interface {
	PredictProba(x []float64) ([]float64, error)
	FeatureImportances() []float64
	NumFeatures() int
	NumClasses() int
}

// BinaryLabels are the implicit class names of the binary bundle.
var BinaryLabels = []string{"Benign", "Attack"}

// Bundle is everything needed to classify one mode: the fitted classifier,
// its scaler, the ordered feature names, the class labels and the
// importance ranking derived from the classifier. Immutable after Load.
type Bundle struct {
	Name       string
	Kind       string
	Classifier Classifier
	Scaler     Scaler
	Features   []string
	Labels     []string
	Ranking    Ranking
}

// NumFeatures is the expected input dimensionality.
func (b *Bundle) NumFeatures() int { return len(b.Features) }

// Set holds the two bundles loaded at startup.
type Set struct {
	Binary *Bundle
	Multi  *Bundle
}

// Close releases classifiers that hold native resources.
func (s *Set) Close() error {
	var errs []error
	for _, b := range []*Bundle{s.Binary, s.Multi} {
		if b == nil {
			continue
		}
		if c, ok := b.Classifier.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
