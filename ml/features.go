package ml

import (
	"fmt"
	"math"
	"strings"
)

// Numeric feature columns, named as in the dataset.
const (
	FeatureVTAT         = "v_tat"
	FeatureCTAT         = "c_tat"
	FeatureBookingValue = "booking_value"
	FeatureRideDistance = "ride_distance"
	FeatureHourOfDay    = "hour_of_day"
)

// Categorical fields expanded into field_value indicator columns.
const (
	FieldVehicleType   = "vehicle_type"
	FieldPaymentMethod = "payment_method"
)

var (
	VehicleTypes   = []string{"Auto", "Bike", "Mini", "Prime Plus", "Prime Sedan", "Prime SUV", "eBike"}
	PaymentMethods = []string{"Cash", "Credit Card", "Debit Card", "UPI"}
)

// CandidateRide is one hypothetical booking submitted for scoring.
type CandidateRide struct {
	VTAT          float64 `json:"v_tat"`
	CTAT          float64 `json:"c_tat"`
	BookingValue  float64 `json:"booking_value"`
	RideDistance  float64 `json:"ride_distance"`
	HourOfDay     int     `json:"hour_of_day"`
	VehicleType   string  `json:"vehicle_type"`
	PaymentMethod string  `json:"payment_method"`
}

// Range bounds one numeric input and gives its initial value.
type Range struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// InputRanges are the bounds the prediction form accepts.
var InputRanges = map[string]Range{
	FeatureVTAT:         {Min: 0, Max: 310, Default: 170},
	FeatureCTAT:         {Min: 0, Max: 150, Default: 85},
	FeatureBookingValue: {Min: 100, Max: 10000, Default: 550},
	FeatureRideDistance: {Min: 0, Max: 50, Default: 15},
	FeatureHourOfDay:    {Min: 0, Max: 23, Default: 18},
}

// DefaultCandidate is the form's initial state.
func DefaultCandidate() CandidateRide {
	return CandidateRide{
		VTAT:          InputRanges[FeatureVTAT].Default,
		CTAT:          InputRanges[FeatureCTAT].Default,
		BookingValue:  InputRanges[FeatureBookingValue].Default,
		RideDistance:  InputRanges[FeatureRideDistance].Default,
		HourOfDay:     int(InputRanges[FeatureHourOfDay].Default),
		VehicleType:   VehicleTypes[0],
		PaymentMethod: PaymentMethods[0],
	}
}

// Validate checks numeric inputs against InputRanges. Categories are not
// checked here; an unknown category is handled by alignment.
func (c CandidateRide) Validate() error {
	values := map[string]float64{
		FeatureVTAT:         c.VTAT,
		FeatureCTAT:         c.CTAT,
		FeatureBookingValue: c.BookingValue,
		FeatureRideDistance: c.RideDistance,
		FeatureHourOfDay:    float64(c.HourOfDay),
	}
	for _, name := range numericFeatures {
		r := InputRanges[name]
		v := values[name]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%v is not a finite number", ErrInvalidInput, name, v)
		}
		if v < r.Min || v > r.Max {
			return fmt.Errorf("%w: %s=%v outside [%v, %v]", ErrInvalidInput, name, v, r.Min, r.Max)
		}
	}
	if strings.TrimSpace(c.VehicleType) == "" || strings.TrimSpace(c.PaymentMethod) == "" {
		return fmt.Errorf("%w: vehicle_type and payment_method are required", ErrInvalidInput)
	}
	return nil
}

var numericFeatures = []string{FeatureVTAT, FeatureCTAT, FeatureBookingValue, FeatureRideDistance, FeatureHourOfDay}

// Features is a one-hot encoded record keyed by column name.
type Features map[string]float64

// IndicatorName is the one-hot column for value of field.
func IndicatorName(field, value string) string {
	return field + "_" + value
}

// Encode one-hot expands the categorical fields of c. Only the chosen
// category of each field gets a column.
func Encode(c CandidateRide) Features {
	return Features{
		FeatureVTAT:         c.VTAT,
		FeatureCTAT:         c.CTAT,
		FeatureBookingValue: c.BookingValue,
		FeatureRideDistance: c.RideDistance,
		FeatureHourOfDay:    float64(c.HourOfDay),
		IndicatorName(FieldVehicleType, c.VehicleType):     1,
		IndicatorName(FieldPaymentMethod, c.PaymentMethod): 1,
	}
}

// Align reindexes f onto cols: every column of cols is present in order,
// columns absent from f are 0 and columns of f outside cols are dropped.
func Align(f Features, cols []string) Row {
	row := Row{
		Names:  append([]string(nil), cols...),
		Values: make([]float64, len(cols)),
	}
	for i, name := range cols {
		row.Values[i] = f[name]
	}
	return row
}

// UnknownCategories lists the categorical values of c that have no
// indicator column in cols. Alignment zeroes those fields silently.
func UnknownCategories(c CandidateRide, cols []string) []string {
	known := make(map[string]bool, len(cols))
	for _, name := range cols {
		known[name] = true
	}
	var unknown []string
	for _, pair := range [][2]string{
		{FieldVehicleType, c.VehicleType},
		{FieldPaymentMethod, c.PaymentMethod},
	} {
		if name := IndicatorName(pair[0], pair[1]); !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// CategoriesOf returns the values of field that cols carries an indicator for.
func CategoriesOf(field string, cols []string) []string {
	prefix := field + "_"
	var values []string
	for _, name := range cols {
		if strings.HasPrefix(name, prefix) {
			values = append(values, strings.TrimPrefix(name, prefix))
		}
	}
	return values
}
