package model

import (
	"errors"
	"fmt"
)

// Scaler normalises a raw vector with parameters fixed at training time.
type Scaler interface {
	Transform(x []float64) ([]float64, error)
	Width() int
}

// StandardScaler applies (x - mean) / scale per feature.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

// Transform implements Scaler.
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("scaler expects %d features, got %d: %w", len(s.Mean), len(x), ErrDimension)
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out, nil
}

// Width implements Scaler.
func (s *StandardScaler) Width() int { return len(s.Mean) }

// MinMaxScaler applies x*scale + min per feature.
type MinMaxScaler struct {
	Min   []float64
	Scale []float64
}

// Transform implements Scaler.
func (s *MinMaxScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Min) {
		return nil, fmt.Errorf("scaler expects %d features, got %d: %w", len(s.Min), len(x), ErrDimension)
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v*s.Scale[i] + s.Min[i]
	}
	return out, nil
}

// Width implements Scaler.
func (s *MinMaxScaler) Width() int { return len(s.Min) }

type scalerFile struct {
	Kind  string    `json:"kind"`
	Mean  []float64 `json:"mean"`
	Min   []float64 `json:"min"`
	Scale []float64 `json:"scale"`
}

func (f scalerFile) build() (Scaler, error) {
	switch f.Kind {
	case "standard", "":
		if len(f.Mean) == 0 || len(f.Mean) != len(f.Scale) {
			return nil, fmt.Errorf("standard scaler: mean has %d entries, scale %d", len(f.Mean), len(f.Scale))
		}
		scale := make([]float64, len(f.Scale))
		for i, v := range f.Scale {
			// zero variance features pass through unscaled
			if v == 0 {
				v = 1
			}
			scale[i] = v
		}
		return &StandardScaler{Mean: f.Mean, Scale: scale}, nil
	case "minmax":
		if len(f.Min) == 0 || len(f.Min) != len(f.Scale) {
			return nil, fmt.Errorf("minmax scaler: min has %d entries, scale %d", len(f.Min), len(f.Scale))
		}
		return &MinMaxScaler{Min: f.Min, Scale: f.Scale}, nil
	default:
		return nil, errors.New("unsupported scaler kind " + f.Kind)
	}
}
