package ml

import (
	"fmt"
	"time"

	"ridesight/monitoring"
)

// Tier is the coarse risk label shown for a cancellation probability.
type Tier string

const (
	TierLow      Tier = "Low"
	TierModerate Tier = "Moderate"
	TierHigh     Tier = "High"
)

const (
	HighThreshold     = 0.70
	ModerateThreshold = 0.40
)

// TierFor maps p to a tier. Both thresholds are exclusive, so exactly 0.70
// is Moderate and exactly 0.40 is Low.
func TierFor(p float64) Tier {
	switch {
	case p > HighThreshold:
		return TierHigh
	case p > ModerateThreshold:
		return TierModerate
	default:
		return TierLow
	}
}

// Prediction is the scored outcome for one candidate ride.
type Prediction struct {
	Probability       float64  `json:"probability"`
	Percent           float64  `json:"percent"`
	Tier              Tier     `json:"tier"`
	Message           string   `json:"message"`
	UnknownCategories []string `json:"unknown_categories,omitempty"`
}

// Predictor scores candidate rides against a loaded classifier and scaler.
// With Strict set a category that has no training column is an error
// instead of an all-zero indicator.
type Predictor struct {
	Assets *Assets
	Strict bool
}

func NewPredictor(assets *Assets) *Predictor {
	return &Predictor{Assets: assets}
}

// Predict runs encode, align, scale and classify for c.
func (p *Predictor) Predict(c CandidateRide) (*Prediction, error) {
	start := time.Now()
	pred, err := p.predict(c)
	if err != nil {
		monitoring.PredictionFailed()
		return nil, err
	}
	monitoring.ObservePrediction(string(pred.Tier), time.Since(start))
	return pred, nil
}

func (p *Predictor) predict(c CandidateRide) (*Prediction, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cols := p.Assets.TrainCols()
	unknown := UnknownCategories(c, cols)
	if p.Strict && len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnknownCategory, unknown)
	}

	row := Align(Encode(c), cols)
	scaled, err := p.Assets.Scaler.Transform(row.Values)
	if err != nil {
		return nil, fmt.Errorf("scale features: %w", err)
	}
	dist, err := p.Assets.Classifier.PredictProba(Row{Names: cols, Values: scaled})
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	prob, err := positiveProbability(p.Assets.Classifier, dist)
	if err != nil {
		return nil, err
	}

	tier := TierFor(prob)
	return &Prediction{
		Probability:       prob,
		Percent:           prob * 100,
		Tier:              tier,
		Message:           FormatMessage(tier, prob),
		UnknownCategories: unknown,
	}, nil
}

// FormatMessage renders e.g. "High Risk of Cancellation: 85%".
func FormatMessage(tier Tier, p float64) string {
	return fmt.Sprintf("%s Risk of Cancellation: %.0f%%", tier, p*100)
}
