package model

import "fmt"

// LabelEncoder maps class indices back to the labels seen at training time.
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

// Decode returns the label for class index i.
func (e *LabelEncoder) Decode(i int) (string, error) {
	if i < 0 || i >= len(e.Classes) {
		return "", fmt.Errorf("class index %d outside encoder range [0,%d)", i, len(e.Classes))
	}
	return e.Classes[i], nil
}
