package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

// Classifier and scaler files are JSON objects whose "type" field selects
// the concrete model.
const (
	TypeLogisticRegression = "logistic_regression"
	TypeDecisionTree       = "decision_tree"
	TypeRandomForest       = "random_forest"

	TypeStandardScaler = "standard_scaler"
	TypeMinMaxScaler   = "minmax_scaler"
)

type envelope struct {
	Type string `json:"type"`
}

func readAsset(path string) ([]byte, string, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: %s", ErrAssetMissing, path)
		}
		return nil, "", err
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrAssetInvalid, path, err)
	}
	return payload, env.Type, nil
}

func LoadClassifier(path string) (Classifier, error) {
	payload, kind, err := readAsset(path)
	if err != nil {
		return nil, err
	}

	var model interface {
		Classifier
		validate() error
	}
	switch kind {
	case TypeLogisticRegression:
		model = &LogisticRegression{}
	case TypeDecisionTree:
		model = &DecisionTree{}
	case TypeRandomForest:
		model = &RandomForest{}
	default:
		return nil, fmt.Errorf("%w: %s: unsupported model type %q", ErrAssetInvalid, path, kind)
	}
	if err := json.Unmarshal(payload, model); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetInvalid, path, err)
	}
	if err := model.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetInvalid, path, err)
	}
	if len(model.FeatureNames()) == 0 {
		return nil, fmt.Errorf("%w: %s: classifier has no feature_names_in", ErrAssetInvalid, path)
	}
	if !hasClass(model.Classes(), PositiveClass) {
		return nil, fmt.Errorf("%w: %s: classes %v lack positive class %d", ErrAssetInvalid, path, model.Classes(), PositiveClass)
	}
	return model, nil
}

func hasClass(classes []int, label int) bool {
	for _, c := range classes {
		if c == label {
			return true
		}
	}
	return false
}

func LoadScaler(path string) (Scaler, error) {
	payload, kind, err := readAsset(path)
	if err != nil {
		return nil, err
	}

	var scaler interface {
		Scaler
		validate() error
	}
	switch kind {
	case TypeStandardScaler:
		scaler = &StandardScaler{}
	case TypeMinMaxScaler:
		scaler = &MinMaxScaler{}
	default:
		return nil, fmt.Errorf("%w: %s: unsupported scaler type %q", ErrAssetInvalid, path, kind)
	}
	if err := json.Unmarshal(payload, scaler); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetInvalid, path, err)
	}
	if err := scaler.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetInvalid, path, err)
	}
	return scaler, nil
}

// Assets is a classifier paired with the scaler fit on the same columns.
type Assets struct {
	Classifier Classifier
	Scaler     Scaler
}

// TrainCols is the column order the classifier was trained on.
func (a *Assets) TrainCols() []string {
	return a.Classifier.FeatureNames()
}

// NewAssets pairs c with s. The scaler must cover exactly the classifier's
// training columns, in the same order when it records names.
func NewAssets(c Classifier, s Scaler) (*Assets, error) {
	cols := c.FeatureNames()
	if names := s.FeatureNames(); len(names) > 0 {
		if len(names) != len(cols) {
			return nil, fmt.Errorf("%w: scaler has %d columns, classifier %d", ErrAssetMismatch, len(names), len(cols))
		}
		for i := range names {
			if names[i] != cols[i] {
				return nil, fmt.Errorf("%w: column %d is %q in scaler, %q in classifier", ErrAssetMismatch, i, names[i], cols[i])
			}
		}
	} else if out, err := s.Transform(make([]float64, len(cols))); err != nil || len(out) != len(cols) {
		return nil, fmt.Errorf("%w: scaler does not accept %d columns", ErrAssetMismatch, len(cols))
	}
	return &Assets{Classifier: c, Scaler: s}, nil
}

// AssetLoader loads the classifier and scaler once per process. A failed
// load is remembered too, so callers see the same error on every call.
type AssetLoader struct {
	ClassifierPath string
	ScalerPath     string

	once   sync.Once
	assets *Assets
	err    error
}

func (l *AssetLoader) Load() (*Assets, error) {
	l.once.Do(func() {
		l.assets, l.err = l.load()
	})
	return l.assets, l.err
}

func (l *AssetLoader) load() (*Assets, error) {
	c, err := LoadClassifier(l.ClassifierPath)
	if err != nil {
		return nil, err
	}
	s, err := LoadScaler(l.ScalerPath)
	if err != nil {
		return nil, err
	}
	return NewAssets(c, s)
}
