package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ridesight/ml"
)

func RegisterPredictRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/predict/options", handlePredictOptions)
	mux.HandleFunc("POST /api/predict", handlePredict)
	mux.HandleFunc("GET /api/ws/predict", handlePredictWS)
}

// handlePredictOptions 返回表单的可选项、取值范围和默认值
func handlePredictOptions(w http.ResponseWriter, r *http.Request) {
	p, err := predictor()
	if err != nil {
		fail(w, r, err)
		return
	}
	cols := p.Assets.TrainCols()
	writeJSON(w, http.StatusOK, map[string]any{
		"vehicle_types":   ml.VehicleTypes,
		"payment_methods": ml.PaymentMethods,
		"trained": map[string][]string{
			ml.FieldVehicleType:   ml.CategoriesOf(ml.FieldVehicleType, cols),
			ml.FieldPaymentMethod: ml.CategoriesOf(ml.FieldPaymentMethod, cols),
		},
		"ranges":   ml.InputRanges,
		"defaults": ml.DefaultCandidate(),
	})
}

func handlePredict(w http.ResponseWriter, r *http.Request) {
	p, err := predictor()
	if err != nil {
		fail(w, r, err)
		return
	}

	candidate := ml.DefaultCandidate()
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", ml.ErrInvalidInput, err))
		return
	}

	pred, err := p.Predict(candidate)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pred)
}
