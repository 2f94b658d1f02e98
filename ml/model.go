package ml

import (
	"errors"
	"fmt"
)

var (
	ErrAssetMissing    = errors.New("model asset missing")
	ErrAssetInvalid    = errors.New("model asset invalid")
	ErrAssetMismatch   = errors.New("classifier and scaler feature columns differ")
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidInput    = errors.New("invalid candidate ride")
	ErrFeatureMissing  = errors.New("feature missing from row")
)

// Row is a feature vector indexed by name. Names and Values are parallel.
type Row struct {
	Names  []string
	Values []float64
}

// Get returns the value of the named feature.
func (r Row) Get(name string) (float64, bool) {
	for i, n := range r.Names {
		if n == name {
			return r.Values[i], true
		}
	}
	return 0, false
}

// Select returns the values of names in that order, failing on the first
// name absent from the row.
func (r Row) Select(names []string) ([]float64, error) {
	index := make(map[string]int, len(r.Names))
	for i, n := range r.Names {
		index[n] = i
	}
	out := make([]float64, len(names))
	for i, name := range names {
		j, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrFeatureMissing, name)
		}
		out[i] = r.Values[j]
	}
	return out, nil
}

// Classifier is a trained model. FeatureNames is the training column order;
// PredictProba returns one probability per entry of Classes.
type Classifier interface {
	FeatureNames() []string
	Classes() []int
	PredictProba(row Row) ([]float64, error)
}

// Scaler maps a raw vector, in its FeatureNames order, to a normalized one.
// FeatureNames may be empty when the scaler was fit on bare arrays.
type Scaler interface {
	FeatureNames() []string
	Transform(values []float64) ([]float64, error)
}

// PositiveClass is the label meaning "will cancel".
const PositiveClass = 1

// positiveProbability picks the probability of PositiveClass out of dist.
func positiveProbability(c Classifier, dist []float64) (float64, error) {
	classes := c.Classes()
	if len(classes) != len(dist) {
		return 0, fmt.Errorf("classifier returned %d probabilities for %d classes", len(dist), len(classes))
	}
	for i, label := range classes {
		if label == PositiveClass {
			return dist[i], nil
		}
	}
	return 0, fmt.Errorf("classifier has no class %d", PositiveClass)
}
