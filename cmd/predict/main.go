// Command predict scores one candidate ride against the model assets and
// prints the risk tier.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"ridesight/ml"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	defaults := ml.DefaultCandidate()

	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fs.SetOutput(stderr)
	modelPath := fs.String("model_path", "./models/cancellation_model.json", "classifier asset path")
	scalerPath := fs.String("scaler_path", "./models/scaler.json", "scaler asset path")
	vtat := fs.Float64("v_tat", defaults.VTAT, "vehicle arrival time (secs)")
	ctat := fs.Float64("c_tat", defaults.CTAT, "customer arrival time (secs)")
	value := fs.Float64("booking_value", defaults.BookingValue, "booking value (INR)")
	distance := fs.Float64("ride_distance", defaults.RideDistance, "ride distance (km)")
	hour := fs.Int("hour_of_day", defaults.HourOfDay, "hour of day (0-23)")
	vehicle := fs.String("vehicle_type", defaults.VehicleType, "vehicle type")
	payment := fs.String("payment_method", defaults.PaymentMethod, "payment method")
	strict := fs.Bool("strict", false, "fail on categories the model was not trained on")
	asJSON := fs.Bool("json", false, "print the prediction as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	loader := &ml.AssetLoader{ClassifierPath: *modelPath, ScalerPath: *scalerPath}
	assets, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load model assets: %w", err)
	}

	p := &ml.Predictor{Assets: assets, Strict: *strict}
	pred, err := p.Predict(ml.CandidateRide{
		VTAT:          *vtat,
		CTAT:          *ctat,
		BookingValue:  *value,
		RideDistance:  *distance,
		HourOfDay:     *hour,
		VehicleType:   *vehicle,
		PaymentMethod: *payment,
	})
	if err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(pred); err != nil {
			return fmt.Errorf("failed to encode prediction: %w", err)
		}
		return nil
	}
	fmt.Fprintln(stdout, pred.Message)
	for _, c := range pred.UnknownCategories {
		fmt.Fprintf(stderr, "warning: %s was not seen in training; treated as absent\n", c)
	}
	return nil
}
