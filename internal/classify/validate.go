package classify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxInputLength is the largest accepted flow_data, in characters.
const MaxInputLength = 5000

// Validate turns raw flow_data into a vector of expected length. Checks run
// in a fixed order and the first failure is returned: empty, too long,
// invalid characters, feature count, number syntax.
func Validate(text string, mode Mode, expected int) ([]float64, error) {
	if trimSpace(text) == "" {
		return nil, &Error{Kind: KindValidation, Message: "Please enter a network flow vector to analyze.", Err: ErrEmptyInput}
	}
	if utf8.RuneCountInString(text) > MaxInputLength {
		return nil, &Error{Kind: KindValidation, Message: "Input data is too long.", Err: ErrInputTooLong}
	}
	if strings.IndexFunc(text, disallowed) >= 0 {
		return nil, &Error{Kind: KindValidation, Message: "Input contains invalid characters.", Err: ErrInvalidCharacters}
	}

	tokens := strings.Split(trimSpace(text), ",")
	if len(tokens) != expected {
		return nil, &Error{
			Kind:    KindValidation,
			Message: fmt.Sprintf("Incorrect number of features for %s. Expected %d, got %d.", mode.scanName(), expected, len(tokens)),
			Err:     ErrFeatureCount,
		}
	}

	values := make([]float64, len(tokens))
	for i, tok := range tokens {
		tok = trimSpace(tok)
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			cause := err
			var numErr *strconv.NumError
			if errors.As(err, &numErr) {
				cause = numErr.Err
			}
			return nil, &Error{
				Kind:    KindParse,
				Message: fmt.Sprintf("could not convert %q to a number: %v", tok, cause),
				Err:     err,
			}
		}
		values[i] = v
	}
	return values, nil
}

func disallowed(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return false
	case r == '.' || r == ',' || r == '-':
		return false
	case isSpace(r):
		return false
	}
	return true
}

// isSpace is unicode.IsSpace plus the ASCII information separators
// U+001C..U+001F, which are accepted as whitespace between values.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

func trimSpace(s string) string {
	return strings.TrimFunc(s, isSpace)
}
