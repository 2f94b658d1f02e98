package ml

import (
	"errors"
	"fmt"
)

// DecisionTree is a trained CART tree stored as a flat node list, root first.
type DecisionTree struct {
	Features []string   `json:"feature_names_in"`
	Labels   []int      `json:"classes"`
	Nodes    []TreeNode `json:"nodes"`
}

// TreeNode is one split or leaf. A split sends rows whose feature is
// <= Threshold to LeftChild. Leaves carry per-class sample counts in
// Labels order.
type TreeNode struct {
	Feature    string    `json:"feature,omitempty"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	Counts     []float64 `json:"counts,omitempty"`
	IsLeaf     bool      `json:"is_leaf"`
}

func (dt *DecisionTree) FeatureNames() []string { return dt.Features }

func (dt *DecisionTree) Classes() []int { return dt.Labels }

func (dt *DecisionTree) validate() error {
	if len(dt.Nodes) == 0 {
		return errors.New("decision tree has no nodes")
	}
	if len(dt.Labels) < 2 {
		return fmt.Errorf("decision tree needs at least 2 classes, got %d", len(dt.Labels))
	}
	known := make(map[string]bool, len(dt.Features))
	for _, f := range dt.Features {
		known[f] = true
	}
	for i, node := range dt.Nodes {
		if node.IsLeaf {
			if len(node.Counts) != len(dt.Labels) {
				return fmt.Errorf("leaf %d has %d counts for %d classes", i, len(node.Counts), len(dt.Labels))
			}
			continue
		}
		if !known[node.Feature] {
			return fmt.Errorf("node %d splits on unknown feature %q", i, node.Feature)
		}
		if node.LeftChild <= i || node.LeftChild >= len(dt.Nodes) || node.RightChild <= i || node.RightChild >= len(dt.Nodes) {
			return fmt.Errorf("node %d has invalid children", i)
		}
	}
	return nil
}

// PredictProba walks the tree and returns the class frequencies of the leaf
// reached.
func (dt *DecisionTree) PredictProba(row Row) ([]float64, error) {
	if len(dt.Nodes) == 0 {
		return nil, errors.New("model not trained")
	}
	x, err := row.Select(dt.Features)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(dt.Features))
	for i, f := range dt.Features {
		index[f] = i
	}

	idx := 0
	for {
		node := dt.Nodes[idx]
		if node.IsLeaf {
			return normalize(node.Counts), nil
		}
		if x[index[node.Feature]] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.Nodes) {
			return nil, errors.New("invalid tree state")
		}
	}
}

// RandomForest averages the class probabilities of its trees. Every tree
// must share the forest's classes.
type RandomForest struct {
	Features []string       `json:"feature_names_in"`
	Labels   []int          `json:"classes"`
	Trees    []DecisionTree `json:"trees"`
}

func (rf *RandomForest) FeatureNames() []string { return rf.Features }

func (rf *RandomForest) Classes() []int { return rf.Labels }

func (rf *RandomForest) validate() error {
	if len(rf.Trees) == 0 {
		return errors.New("random forest has no trees")
	}
	for i := range rf.Trees {
		tree := &rf.Trees[i]
		if len(tree.Features) == 0 {
			tree.Features = rf.Features
		}
		if len(tree.Labels) == 0 {
			tree.Labels = rf.Labels
		}
		if !sameInts(tree.Labels, rf.Labels) {
			return fmt.Errorf("tree %d classes differ from forest", i)
		}
		if err := tree.validate(); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func (rf *RandomForest) PredictProba(row Row) ([]float64, error) {
	out := make([]float64, len(rf.Labels))
	for i := range rf.Trees {
		dist, err := rf.Trees[i].PredictProba(row)
		if err != nil {
			return nil, err
		}
		for j, p := range dist {
			out[j] += p
		}
	}
	for j := range out {
		out[j] /= float64(len(rf.Trees))
	}
	return out, nil
}

func normalize(counts []float64) []float64 {
	var total float64
	for _, c := range counts {
		total += c
	}
	out := make([]float64, len(counts))
	if total == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = c / total
	}
	return out
}

func sameInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
