package ml

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeAsset(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	return path
}

func TestDecisionTreePredictProba(t *testing.T) {
	tree := &DecisionTree{
		Features: []string{"a", "b"},
		Labels:   []int{0, 1},
		Nodes: []TreeNode{
			{Feature: "a", Threshold: 0.5, LeftChild: 1, RightChild: 2},
			{IsLeaf: true, Counts: []float64{3, 1}},
			{IsLeaf: true, Counts: []float64{0, 4}},
		},
	}
	if err := tree.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dist, err := tree.PredictProba(Row{Names: []string{"b", "a"}, Values: []float64{9, 0.2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dist[1] != 0.25 {
		t.Fatalf("expected 0.25, got %v", dist)
	}

	if _, err := tree.PredictProba(Row{Names: []string{"b"}, Values: []float64{1}}); !errors.Is(err, ErrFeatureMissing) {
		t.Fatalf("expected ErrFeatureMissing, got %v", err)
	}
}

func TestRandomForestAverages(t *testing.T) {
	leaf := func(c0, c1 float64) DecisionTree {
		return DecisionTree{Nodes: []TreeNode{{IsLeaf: true, Counts: []float64{c0, c1}}}}
	}
	rf := &RandomForest{
		Features: []string{"a"},
		Labels:   []int{0, 1},
		Trees:    []DecisionTree{leaf(1, 1), leaf(0, 1)},
	}
	if err := rf.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dist, err := rf.PredictProba(Row{Names: []string{"a"}, Values: []float64{0}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dist[1] != 0.75 {
		t.Fatalf("expected 0.75, got %v", dist)
	}
}

func TestStandardScaler(t *testing.T) {
	s := &StandardScaler{Mean: []float64{1, 2}, Scale: []float64{2, 0}}
	out, err := s.Transform([]float64{3, 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != 1 || out[1] != 3 {
		t.Fatalf("unexpected output %v", out)
	}
	if _, err := s.Transform([]float64{1}); err == nil {
		t.Fatalf("expected length error")
	}
}

func TestMinMaxScalerZeroRange(t *testing.T) {
	s := &MinMaxScaler{DataMin: []float64{0, 5}, DataMax: []float64{10, 5}}
	out, err := s.Transform([]float64{5, 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != 0.5 || out[1] != 0 {
		t.Fatalf("unexpected output %v", out)
	}
}

func TestLoadClassifierAndScaler(t *testing.T) {
	dir := t.TempDir()
	model := writeAsset(t, dir, "model.json", `{
		"type": "logistic_regression",
		"feature_names_in": ["a", "b"],
		"classes": [0, 1],
		"coefficients": [0.5, -0.5],
		"intercept": 0
	}`)
	scaler := writeAsset(t, dir, "scaler.json", `{
		"type": "standard_scaler",
		"feature_names_in": ["a", "b"],
		"mean": [0, 0],
		"scale": [1, 1]
	}`)

	loader := &AssetLoader{ClassifierPath: model, ScalerPath: scaler}
	assets, err := loader.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols := assets.TrainCols(); len(cols) != 2 || cols[0] != "a" {
		t.Fatalf("unexpected train cols %v", cols)
	}
	dist, err := assets.Classifier.PredictProba(Row{Names: []string{"a", "b"}, Values: []float64{1, 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(dist[1]-0.5) > 1e-12 {
		t.Fatalf("expected 0.5, got %v", dist)
	}
}

func TestLoadAssetErrors(t *testing.T) {
	dir := t.TempDir()
	model := writeAsset(t, dir, "model.json", `{"type":"decision_tree","feature_names_in":["a","b"],"classes":[0,1],
		"nodes":[{"is_leaf":true,"counts":[1,1]}]}`)
	swapped := writeAsset(t, dir, "swapped.json", `{"type":"minmax_scaler","feature_names_in":["b","a"],"data_min":[0,0],"data_max":[1,1]}`)
	narrow := writeAsset(t, dir, "narrow.json", `{"type":"minmax_scaler","data_min":[0],"data_max":[1]}`)
	bogus := writeAsset(t, dir, "bogus.json", `{"type":"svm"}`)
	garbage := writeAsset(t, dir, "garbage.json", `not json`)
	noPositive := writeAsset(t, dir, "no_positive.json", `{"type":"logistic_regression","feature_names_in":["a","b"],"classes":[0,2],
		"coefficients":[0,0],"intercept":0}`)

	cases := []struct {
		name   string
		model  string
		scaler string
		want   error
	}{
		{"missing model", filepath.Join(dir, "nope.json"), swapped, ErrAssetMissing},
		{"missing scaler", model, filepath.Join(dir, "nope.json"), ErrAssetMissing},
		{"column order differs", model, swapped, ErrAssetMismatch},
		{"column count differs", model, narrow, ErrAssetMismatch},
		{"unsupported type", bogus, swapped, ErrAssetInvalid},
		{"not json", model, garbage, ErrAssetInvalid},
		{"no cancel class", noPositive, swapped, ErrAssetInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loader := &AssetLoader{ClassifierPath: tc.model, ScalerPath: tc.scaler}
			if _, err := loader.Load(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAssetLoaderRemembersFailure(t *testing.T) {
	dir := t.TempDir()
	loader := &AssetLoader{
		ClassifierPath: filepath.Join(dir, "model.json"),
		ScalerPath:     filepath.Join(dir, "scaler.json"),
	}
	if _, err := loader.Load(); !errors.Is(err, ErrAssetMissing) {
		t.Fatalf("expected ErrAssetMissing, got %v", err)
	}

	writeAsset(t, dir, "model.json", `{"type":"decision_tree","feature_names_in":["a"],"classes":[0,1],"nodes":[{"is_leaf":true,"counts":[1,0]}]}`)
	writeAsset(t, dir, "scaler.json", `{"type":"minmax_scaler","data_min":[0],"data_max":[1]}`)
	if _, err := loader.Load(); !errors.Is(err, ErrAssetMissing) {
		t.Fatalf("load outcome must be memoized, got %v", err)
	}
}
