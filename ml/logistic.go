package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// LogisticRegression is a binary logistic model. Coefficients are stored in
// Features order.
type LogisticRegression struct {
	Features     []string  `json:"feature_names_in"`
	Labels       []int     `json:"classes"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

func (m *LogisticRegression) FeatureNames() []string { return m.Features }

func (m *LogisticRegression) Classes() []int { return m.Labels }

func (m *LogisticRegression) validate() error {
	if len(m.Features) == 0 {
		return errors.New("logistic regression has no features")
	}
	if len(m.Coefficients) != len(m.Features) {
		return fmt.Errorf("logistic regression has %d coefficients for %d features", len(m.Coefficients), len(m.Features))
	}
	if len(m.Labels) != 2 {
		return fmt.Errorf("logistic regression needs 2 classes, got %d", len(m.Labels))
	}
	return nil
}

// PredictProba returns [P(Labels[0]), P(Labels[1])].
func (m *LogisticRegression) PredictProba(row Row) ([]float64, error) {
	x, err := row.Select(m.Features)
	if err != nil {
		return nil, err
	}
	z := floats.Dot(m.Coefficients, x) + m.Intercept
	p := sigmoid(z)
	return []float64{1 - p, p}, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
