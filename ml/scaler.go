package ml

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StandardScaler maps x to (x - mean) / scale.
type StandardScaler struct {
	FeatureNamesIn []string  `json:"feature_names_in,omitempty"`
	Mean           []float64 `json:"mean"`
	Scale          []float64 `json:"scale"`
}

func (s *StandardScaler) FeatureNames() []string { return s.FeatureNamesIn }

func (s *StandardScaler) validate() error {
	if len(s.Mean) == 0 || len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("standard scaler has %d means and %d scales", len(s.Mean), len(s.Scale))
	}
	return checkNames(s.FeatureNamesIn, len(s.Mean))
}

func (s *StandardScaler) Transform(values []float64) ([]float64, error) {
	if len(values) != len(s.Mean) {
		return nil, fmt.Errorf("scaler expects %d values, got %d", len(s.Mean), len(values))
	}
	x := mat.NewVecDense(len(values), append([]float64(nil), values...))
	x.SubVec(x, mat.NewVecDense(len(s.Mean), s.Mean))

	// 方差为 0 的列按 1 处理
	scale := make([]float64, len(s.Scale))
	for i, v := range s.Scale {
		if v == 0 {
			v = 1
		}
		scale[i] = v
	}
	x.DivElemVec(x, mat.NewVecDense(len(scale), scale))
	return x.RawVector().Data, nil
}

// MinMaxScaler maps x into [0, 1] using the training min and max. A column
// whose min equals its max maps to 0.
type MinMaxScaler struct {
	FeatureNamesIn []string  `json:"feature_names_in,omitempty"`
	DataMin        []float64 `json:"data_min"`
	DataMax        []float64 `json:"data_max"`
}

func (s *MinMaxScaler) FeatureNames() []string { return s.FeatureNamesIn }

func (s *MinMaxScaler) validate() error {
	if len(s.DataMin) == 0 || len(s.DataMin) != len(s.DataMax) {
		return fmt.Errorf("minmax scaler has %d mins and %d maxes", len(s.DataMin), len(s.DataMax))
	}
	return checkNames(s.FeatureNamesIn, len(s.DataMin))
}

func (s *MinMaxScaler) Transform(values []float64) ([]float64, error) {
	if len(values) != len(s.DataMin) {
		return nil, fmt.Errorf("scaler expects %d values, got %d", len(s.DataMin), len(values))
	}
	out := make([]float64, len(values))
	for i, v := range values {
		span := s.DataMax[i] - s.DataMin[i]
		if span == 0 {
			continue
		}
		out[i] = (v - s.DataMin[i]) / span
	}
	return out, nil
}

func checkNames(names []string, n int) error {
	if len(names) != 0 && len(names) != n {
		return errors.New("scaler feature_names_in length does not match its parameters")
	}
	return nil
}
