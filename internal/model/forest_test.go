package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func stump(feature int, threshold float64, left, right []float64) Tree {
	root := make([]float64, len(left))
	for i := range left {
		root[i] = left[i] + right[i]
	}
	return Tree{
		ChildrenLeft:  []int{1, TreeLeaf, TreeLeaf},
		ChildrenRight: []int{2, TreeLeaf, TreeLeaf},
		Feature:       []int{feature, -2, -2},
		Threshold:     []float64{threshold, -2, -2},
		Value:         [][]float64{root, left, right},
	}
}

func TestForest_PredictProba(t *testing.T) {
	req := require.New(t)
	f := &Forest{
		Kind:        "random_forest",
		NFeatures:   2,
		NClasses:    2,
		Trees:       []Tree{stump(0, 0.5, []float64{8, 2}, []float64{1, 9}), stump(1, 0, []float64{5, 5}, []float64{0, 10})},
		Importances: []float64{0.6, 0.4},
	}
	req.NoError(f.init())

	tests := []struct {
		name string
		x    []float64
		want []float64
	}{
		{"both left", []float64{0, -1}, []float64{0.65, 0.35}},
		{"threshold is inclusive", []float64{0.5, 0}, []float64{0.65, 0.35}},
		{"split", []float64{1, -1}, []float64{0.3, 0.7}},
		{"both right", []float64{1, 1}, []float64{0.05, 0.95}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.PredictProba(tt.x)
			require.NoError(t, err)
			require.InDeltaSlice(t, tt.want, got, 1e-12)
		})
	}

	_, err := f.PredictProba([]float64{1})
	req.ErrorIs(err, ErrDimension)
}

func TestForest_MeanDecreaseImpurity(t *testing.T) {
	req := require.New(t)
	left := stump(0, 0.5, []float64{8, 2}, []float64{1, 9})
	left.Impurity = []float64{0.495, 0.32, 0.18}
	left.WeightedNodeSamples = []float64{20, 10, 10}

	deep := Tree{
		ChildrenLeft:        []int{1, TreeLeaf, 3, TreeLeaf, TreeLeaf},
		ChildrenRight:       []int{2, TreeLeaf, 4, TreeLeaf, TreeLeaf},
		Feature:             []int{1, -2, 2, -2, -2},
		Threshold:           []float64{0, -2, 1, -2, -2},
		Value:               [][]float64{{10, 10}, {10, 0}, {0, 10}, {0, 5}, {0, 5}},
		Impurity:            []float64{0.5, 0, 0, 0, 0},
		WeightedNodeSamples: []float64{20, 10, 10, 5, 5},
	}
	single := Tree{
		ChildrenLeft:        []int{TreeLeaf},
		ChildrenRight:       []int{TreeLeaf},
		Feature:             []int{-2},
		Threshold:           []float64{-2},
		Value:               [][]float64{{3, 1}},
		Impurity:            []float64{0.375},
		WeightedNodeSamples: []float64{4},
	}

	f := &Forest{Kind: "random_forest", NFeatures: 3, NClasses: 2, Trees: []Tree{left, deep, single}}
	req.NoError(f.init())

	// the single-leaf tree is ignored, the pure split on feature 2 adds nothing
	req.InDeltaSlice([]float64{0.5, 0.5, 0}, f.FeatureImportances(), 1e-12)
}

func TestForest_InitRejectsMalformedTrees(t *testing.T) {
	good := func() Tree {
		tr := stump(0, 0.5, []float64{1, 1}, []float64{1, 1})
		tr.Impurity = []float64{0.5, 0.5, 0.5}
		tr.WeightedNodeSamples = []float64{4, 2, 2}
		return tr
	}

	tests := []struct {
		name   string
		modify func(f *Forest)
	}{
		{"unknown kind", func(f *Forest) { f.Kind = "svm" }},
		{"no trees", func(f *Forest) { f.Trees = nil }},
		{"single class", func(f *Forest) { f.NClasses = 1 }},
		{"decision tree with two trees", func(f *Forest) { f.Kind = "decision_tree"; f.Trees = append(f.Trees, good()) }},
		{"ragged arrays", func(f *Forest) { f.Trees[0].Threshold = f.Trees[0].Threshold[:2] }},
		{"child points backwards", func(f *Forest) { f.Trees[0].ChildrenLeft[0] = 0 }},
		{"child out of range", func(f *Forest) { f.Trees[0].ChildrenRight[0] = 9 }},
		{"half leaf", func(f *Forest) { f.Trees[0].ChildrenRight[1] = 2 }},
		{"feature out of range", func(f *Forest) { f.Trees[0].Feature[0] = 3 }},
		{"wrong class width", func(f *Forest) { f.Trees[0].Value[1] = []float64{1} }},
		{"empty leaf", func(f *Forest) { f.Trees[0].Value[2] = []float64{0, 0} }},
		{"negative weight", func(f *Forest) { f.Trees[0].Value[2] = []float64{-1, 2} }},
		{"short importances", func(f *Forest) { f.Importances = []float64{1} }},
		{"no importance source", func(f *Forest) { f.Trees[0].Impurity = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Forest{Kind: "random_forest", NFeatures: 3, NClasses: 2, Trees: []Tree{good()}}
			tt.modify(f)
			require.Error(t, f.init())
		})
	}
}
