package classify

import (
	"fmt"
	"strings"

	"github.com/veil-waf/flowscan/internal/model"
)

// TopFeatures is how many ranked features an explanation cites.
const TopFeatures = 5

// Category is the display class of a verdict.
type Category string

const (
	CategoryBenign Category = "benign"
	CategoryAttack Category = "attack"
)

// IsBenign reports whether verdict names benign traffic, case-insensitively.
func IsBenign(verdict string) bool {
	return strings.Contains(strings.ToLower(verdict), "benign")
}

// CategoryOf maps a verdict label to its display category.
func CategoryOf(verdict string) Category {
	if IsBenign(verdict) {
		return CategoryBenign
	}
	return CategoryAttack
}

// Explain cites the globally most important features of the mode's model
// for a non-benign verdict. The same features are cited for every flow in a
// mode: the ranking describes the model, not the vector.
func Explain(mode Mode, verdict string, ranking model.Ranking) string {
	if IsBenign(verdict) {
		return ""
	}
	features := strings.Join(ranking.Top(TopFeatures), ", ")
	if mode == Multi {
		return fmt.Sprintf("Flagged as %s due to high contribution from features like: %s.", verdict, features)
	}
	return fmt.Sprintf("Flagged due to high contribution from features like: %s.", features)
}
