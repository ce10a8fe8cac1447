package classify

import "fmt"

// Mode selects which model bundle classifies a vector.
type Mode int

const (
	// Binary separates benign traffic from any attack.
	Binary Mode = iota + 1
	// Multi names the attack family.
	Multi
)

// Modes lists every valid mode in display order.
var Modes = []Mode{Binary, Multi}

// ParseMode maps the form value of analysis_mode to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "binary":
		return Binary, nil
	case "multi":
		return Multi, nil
	}
	return 0, unknownMode(s)
}

func unknownMode(s string) error {
	return &Error{
		Kind:    KindValidation,
		Message: fmt.Sprintf("Unknown analysis mode %q. Choose binary or multi.", s),
		Err:     ErrUnknownMode,
	}
}

func (m Mode) String() string {
	switch m {
	case Binary:
		return "binary"
	case Multi:
		return "multi"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// scanName is the user-facing name of the mode used in count errors.
func (m Mode) scanName() string {
	if m == Multi {
		return "Detailed Analysis"
	}
	return "Binary Scan"
}

// MarshalText encodes the mode as its form value.
func (m Mode) MarshalText() ([]byte, error) {
	if m != Binary && m != Multi {
		return nil, fmt.Errorf("invalid mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText accepts "binary" or "multi".
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
