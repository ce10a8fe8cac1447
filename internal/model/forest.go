package model

import (
	"errors"
	"fmt"
)

// TreeLeaf marks a node without children, as in sklearn's tree export.
const TreeLeaf = -1

// ErrDimension is returned when a vector does not match the width a model
// component was fitted on.
var ErrDimension = errors.New("dimension mismatch")

// Tree is one fitted decision tree in sklearn's flattened array layout.
// Node 0 is the root; children always have a higher index than their parent.
type Tree struct {
	ChildrenLeft        []int       `json:"children_left"`
	ChildrenRight       []int       `json:"children_right"`
	Feature             []int       `json:"feature"`
	Threshold           []float64   `json:"threshold"`
	Value               [][]float64 `json:"value"`
	Impurity            []float64   `json:"impurity"`
	WeightedNodeSamples []float64   `json:"weighted_n_node_samples"`
}

func (t *Tree) nodeCount() int { return len(t.ChildrenLeft) }

func (t *Tree) hasImpurityStats() bool {
	n := t.nodeCount()
	return len(t.Impurity) == n && len(t.WeightedNodeSamples) == n
}

func (t *Tree) validate(nFeatures, nClasses int) error {
	n := t.nodeCount()
	if n == 0 {
		return errors.New("empty tree")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("node arrays differ in length (want %d)", n)
	}
	for k := 0; k < n; k++ {
		if len(t.Value[k]) != nClasses {
			return fmt.Errorf("node %d: value has %d classes, want %d", k, len(t.Value[k]), nClasses)
		}
		left, right := t.ChildrenLeft[k], t.ChildrenRight[k]
		if left == TreeLeaf {
			if right != TreeLeaf {
				return fmt.Errorf("node %d: only one child set", k)
			}
			var total float64
			for _, v := range t.Value[k] {
				if v < 0 {
					return fmt.Errorf("node %d: negative class weight", k)
				}
				total += v
			}
			if total <= 0 {
				return fmt.Errorf("node %d: leaf carries no class weight", k)
			}
			continue
		}
		if left <= k || right <= k || left >= n || right >= n {
			return fmt.Errorf("node %d: child index out of order", k)
		}
		if f := t.Feature[k]; f < 0 || f >= nFeatures {
			return fmt.Errorf("node %d: feature %d out of range", k, f)
		}
	}
	return nil
}

// leaf walks x down the tree: left when x[feature] <= threshold.
func (t *Tree) leaf(x []float64) int {
	k := 0
	for t.ChildrenLeft[k] != TreeLeaf {
		if x[t.Feature[k]] <= t.Threshold[k] {
			k = t.ChildrenLeft[k]
		} else {
			k = t.ChildrenRight[k]
		}
	}
	return k
}

func (t *Tree) predictProba(x []float64) []float64 {
	value := t.Value[t.leaf(x)]
	var total float64
	for _, v := range value {
		total += v
	}
	out := make([]float64, len(value))
	for i, v := range value {
		out[i] = v / total
	}
	return out
}

// impurityDecrease returns the per-feature weighted impurity decrease of the
// tree normalised to sum 1, or nil when the tree never splits.
func (t *Tree) impurityDecrease(nFeatures int) []float64 {
	imp := make([]float64, nFeatures)
	w, g := t.WeightedNodeSamples, t.Impurity
	for k := 0; k < t.nodeCount(); k++ {
		left := t.ChildrenLeft[k]
		if left == TreeLeaf {
			continue
		}
		right := t.ChildrenRight[k]
		imp[t.Feature[k]] += w[k]*g[k] - w[left]*g[left] - w[right]*g[right]
	}
	var total float64
	for i := range imp {
		imp[i] /= w[0]
		total += imp[i]
	}
	if total > 0 {
		for i := range imp {
			imp[i] /= total
		}
	}
	return imp
}

// Forest is a fitted tree ensemble. A single decision tree is a forest of one.
type Forest struct {
	Kind        string    `json:"kind"`
	NFeatures   int       `json:"n_features"`
	NClasses    int       `json:"n_classes"`
	Trees       []Tree    `json:"trees"`
	Importances []float64 `json:"feature_importances,omitempty"`

	importances []float64
}

func (f *Forest) init() error {
	switch f.Kind {
	case "random_forest", "extra_trees":
	case "decision_tree":
		if len(f.Trees) != 1 {
			return fmt.Errorf("decision_tree carries %d trees", len(f.Trees))
		}
	default:
		return fmt.Errorf("unsupported classifier kind %q", f.Kind)
	}
	if f.NFeatures <= 0 || f.NClasses < 2 {
		return fmt.Errorf("invalid shape: %d features, %d classes", f.NFeatures, f.NClasses)
	}
	if len(f.Trees) == 0 {
		return errors.New("no trees")
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(f.NFeatures, f.NClasses); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}

	if len(f.Importances) > 0 {
		if len(f.Importances) != f.NFeatures {
			return fmt.Errorf("feature_importances has %d entries, want %d", len(f.Importances), f.NFeatures)
		}
		f.importances = append([]float64(nil), f.Importances...)
		return nil
	}
	imp, err := f.meanDecreaseImpurity()
	if err != nil {
		return err
	}
	f.importances = imp
	return nil
}

// meanDecreaseImpurity averages per-tree importances over the trees that
// split at least once, then renormalises.
func (f *Forest) meanDecreaseImpurity() ([]float64, error) {
	sum := make([]float64, f.NFeatures)
	used := 0
	for i := range f.Trees {
		t := &f.Trees[i]
		if !t.hasImpurityStats() {
			return nil, fmt.Errorf("tree %d: no feature_importances and no impurity statistics", i)
		}
		if t.nodeCount() <= 1 {
			continue
		}
		for j, v := range t.impurityDecrease(f.NFeatures) {
			sum[j] += v
		}
		used++
	}
	if used == 0 {
		return sum, nil
	}
	var total float64
	for j := range sum {
		sum[j] /= float64(used)
		total += sum[j]
	}
	if total > 0 {
		for j := range sum {
			sum[j] /= total
		}
	}
	return sum, nil
}

// PredictProba returns the class distribution for an already scaled vector.
func (f *Forest) PredictProba(x []float64) ([]float64, error) {
	if len(x) != f.NFeatures {
		return nil, fmt.Errorf("classifier expects %d features, got %d: %w", f.NFeatures, len(x), ErrDimension)
	}
	out := make([]float64, f.NClasses)
	for i := range f.Trees {
		for j, p := range f.Trees[i].predictProba(x) {
			out[j] += p
		}
	}
	n := float64(len(f.Trees))
	for j := range out {
		out[j] /= n
	}
	return out, nil
}

// FeatureImportances returns a copy of the per-feature importance weights.
func (f *Forest) FeatureImportances() []float64 {
	return append([]float64(nil), f.importances...)
}

// NumFeatures reports the input width.
func (f *Forest) NumFeatures() int { return f.NFeatures }

// NumClasses reports the width of PredictProba's output.
func (f *Forest) NumClasses() int { return f.NClasses }
