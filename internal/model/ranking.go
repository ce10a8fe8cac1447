package model

import (
	"sort"

	"github.com/samber/lo"
)

// RankedFeature pairs a feature name with its global importance weight.
type RankedFeature struct {
	Name       string  `json:"name"`
	Importance float64 `json:"importance"`
}

// Ranking lists a bundle's features by descending importance. Equal weights
// keep their training column order.
type Ranking []RankedFeature

// NewRanking ranks names by the matching importance weights.
func NewRanking(names []string, importances []float64) Ranking {
	r := make(Ranking, len(names))
	for i, name := range names {
		r[i] = RankedFeature{Name: name, Importance: importances[i]}
	}
	sort.SliceStable(r, func(i, j int) bool {
		return r[i].Importance > r[j].Importance
	})
	return r
}

// Top returns the names of the n most important features.
func (r Ranking) Top(n int) []string {
	if n > len(r) {
		n = len(r)
	}
	return lo.Map(r[:n], func(f RankedFeature, _ int) string { return f.Name })
}
