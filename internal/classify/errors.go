package classify

import "errors"

// Kind is the failure class of a rejected request.
type Kind int

const (
	// KindValidation covers input rejected before parsing.
	KindValidation Kind = iota + 1
	// KindParse covers a token that is not a number.
	KindParse
	// KindInference covers failures inside scaling or prediction.
	KindInference
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindParse:
		return "parse"
	case KindInference:
		return "inference"
	}
	return "unknown"
}

var (
	ErrEmptyInput        = errors.New("empty input")
	ErrInputTooLong      = errors.New("input too long")
	ErrInvalidCharacters = errors.New("invalid characters")
	ErrFeatureCount      = errors.New("wrong feature count")
	ErrUnknownMode       = errors.New("unknown analysis mode")
)

// Error is returned for every recovered request failure. Message is safe to
// show to the user; Err carries the cause for errors.Is.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or KindInference for foreign errors.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInference
}
