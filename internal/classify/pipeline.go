package classify

import (
	"context"
	"log/slog"
	"time"
)

// Observer is notified of every classification outcome.
type Observer interface {
	ObserveResult(mode Mode, res *Result, elapsed time.Duration)
	ObserveRejection(mode Mode, kind Kind)
}

// Pipeline chains validation, inference and explanation for one request.
type Pipeline struct {
	engine   *Engine
	observer Observer
	logger   *slog.Logger
}

// NewPipeline creates a pipeline over engine. observer may be nil.
func NewPipeline(engine *Engine, observer Observer, logger *slog.Logger) *Pipeline {
	return &Pipeline{engine: engine, observer: observer, logger: logger}
}

// Engine exposes the underlying engine.
func (p *Pipeline) Engine() *Engine { return p.engine }

// Classify validates text for mode and classifies it. Every failure is a
// *Error.
func (p *Pipeline) Classify(ctx context.Context, text string, mode Mode) (*Result, error) {
	if p.engine.Bundle(mode) == nil {
		return nil, p.reject(mode, unknownMode(mode.String()))
	}

	vector, err := Validate(text, mode, p.engine.ExpectedFeatures(mode))
	if err != nil {
		return nil, p.reject(mode, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, p.reject(mode, inferenceError(err))
	}

	start := time.Now()
	pred, err := p.engine.Predict(mode, vector)
	if err != nil {
		p.logger.Warn("inference failed", "mode", mode, "err", err)
		return nil, p.reject(mode, err)
	}

	res := &Result{
		Verdict:     pred.Label,
		Category:    CategoryOf(pred.Label),
		Confidence:  FormatConfidence(pred.Probability),
		Probability: pred.Probability,
		Reason:      Explain(mode, pred.Label, p.engine.Bundle(mode).Ranking),
		Mode:        mode,
	}
	elapsed := time.Since(start)
	p.logger.Debug("flow classified",
		"mode", mode,
		"verdict", res.Verdict,
		"confidence", res.Confidence,
		"elapsed", elapsed,
	)
	if p.observer != nil {
		p.observer.ObserveResult(mode, res, elapsed)
	}
	return res, nil
}

// ClassifyForm is Classify for the raw analysis_mode form value.
func (p *Pipeline) ClassifyForm(ctx context.Context, text, rawMode string) (*Result, error) {
	mode, err := ParseMode(rawMode)
	if err != nil {
		return nil, p.reject(0, err)
	}
	return p.Classify(ctx, text, mode)
}

func (p *Pipeline) reject(mode Mode, err error) error {
	if p.observer != nil {
		p.observer.ObserveRejection(mode, KindOf(err))
	}
	return err
}
