package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		mode    Mode
		want    []float64
		kind    Kind
		sentErr error
		message string
	}{
		{name: "plain", text: "1,2.5,-3", mode: Binary, want: []float64{1, 2.5, -3}},
		{name: "whitespace around tokens", text: "  1 ,\t2.5,\n-3  ", mode: Binary, want: []float64{1, 2.5, -3}},
		{name: "information separators are whitespace", text: "\x1c1,\x1d2.5\x1e,-3\x1f", mode: Binary, want: []float64{1, 2.5, -3}},
		{name: "separators only", text: "\x1c\x1f", mode: Binary, kind: KindValidation, sentErr: ErrEmptyInput, message: "Please enter a network flow vector to analyze."},
		{name: "other control characters", text: "1,2\x07,3", mode: Binary, kind: KindValidation, sentErr: ErrInvalidCharacters, message: "Input contains invalid characters."},
		{name: "leading dot and trailing dot", text: ".5,5.,-.25", mode: Binary, want: []float64{0.5, 5, -0.25}},
		{name: "empty", text: "", mode: Binary, kind: KindValidation, sentErr: ErrEmptyInput, message: "Please enter a network flow vector to analyze."},
		{name: "whitespace only", text: " \n\t ", mode: Binary, kind: KindValidation, sentErr: ErrEmptyInput, message: "Please enter a network flow vector to analyze."},
		{name: "too long wins over bad characters", text: strings.Repeat("x", MaxInputLength+1), mode: Binary, kind: KindValidation, sentErr: ErrInputTooLong, message: "Input data is too long."},
		{name: "letters", text: "abc,123,xyz", mode: Binary, kind: KindValidation, sentErr: ErrInvalidCharacters, message: "Input contains invalid characters."},
		{name: "exponent is not allowed", text: "1e5,2,3", mode: Binary, kind: KindValidation, sentErr: ErrInvalidCharacters, message: "Input contains invalid characters."},
		{name: "semicolons", text: "1;2;3", mode: Binary, kind: KindValidation, sentErr: ErrInvalidCharacters, message: "Input contains invalid characters."},
		{name: "count binary", text: "1,2", mode: Binary, kind: KindValidation, sentErr: ErrFeatureCount, message: "Incorrect number of features for Binary Scan. Expected 3, got 2."},
		{name: "count multi", text: "1,2,3,4", mode: Multi, kind: KindValidation, sentErr: ErrFeatureCount, message: "Incorrect number of features for Detailed Analysis. Expected 3, got 4."},
		{name: "count wins over syntax", text: "1..2,3", mode: Binary, kind: KindValidation, sentErr: ErrFeatureCount, message: "Incorrect number of features for Binary Scan. Expected 3, got 2."},
		{name: "double dot", text: "1..2,3,4", mode: Binary, kind: KindParse, message: `could not convert "1..2" to a number: invalid syntax`},
		{name: "empty token", text: "1,,4", mode: Binary, kind: KindParse, message: `could not convert "" to a number: invalid syntax`},
		{name: "space inside number", text: "1 2,3,4", mode: Binary, kind: KindParse, message: `could not convert "1 2" to a number: invalid syntax`},
		{name: "lone minus", text: "-,3,4", mode: Binary, kind: KindParse, message: `could not convert "-" to a number: invalid syntax`},
		{name: "overflow", text: "1" + strings.Repeat("0", 400) + ",3,4", mode: Binary, kind: KindParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			got, err := Validate(tt.text, tt.mode, 3)
			if tt.kind == 0 {
				req.NoError(err)
				req.Equal(tt.want, got)
				return
			}
			req.Nil(got)
			var ce *Error
			req.ErrorAs(err, &ce)
			req.Equal(tt.kind, ce.Kind)
			if tt.sentErr != nil {
				req.ErrorIs(err, tt.sentErr)
			}
			if tt.message != "" {
				req.Equal(tt.message, err.Error())
			}
		})
	}
}

func TestValidate_LengthCountsCharacters(t *testing.T) {
	req := require.New(t)

	// 5000 characters, one feature per "1," pair
	text := strings.TrimSuffix(strings.Repeat("1,", 2500), ",") + " "
	req.Len(text, MaxInputLength)
	_, err := Validate(text, Binary, 2500)
	req.NoError(err)

	_, err = Validate(text+" ", Binary, 2500)
	req.ErrorIs(err, ErrInputTooLong)

	// multi-byte whitespace counts once per character
	nbsp := strings.Repeat("\u00a0", MaxInputLength-1) + "1"
	_, err = Validate(nbsp, Binary, 1)
	req.NoError(err)
}
