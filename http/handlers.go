package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"ridesight/dataset"
	"ridesight/db"
	"ridesight/logger"
	"ridesight/ml"
	"ridesight/queries"
)

// DatasetSource returns the current ride table.
type DatasetSource func() (*dataset.Table, error)

// AssetSource returns the loaded model assets.
type AssetSource func() (*ml.Assets, error)

var (
	depsMu           sync.RWMutex
	datasetSource    DatasetSource
	catalog          *queries.Catalog
	assetSource      AssetSource
	strictCategories bool
	httpLog          = zap.NewNop()
)

func SetDatasetSource(src DatasetSource) {
	depsMu.Lock()
	defer depsMu.Unlock()
	datasetSource = src
}

func SetCatalog(c *queries.Catalog) {
	depsMu.Lock()
	defer depsMu.Unlock()
	catalog = c
}

func SetAssetSource(src AssetSource) {
	depsMu.Lock()
	defer depsMu.Unlock()
	assetSource = src
}

// SetStrictCategories makes predictions with an unseen category fail.
func SetStrictCategories(strict bool) {
	depsMu.Lock()
	defer depsMu.Unlock()
	strictCategories = strict
}

func SetLogger(l *zap.Logger) {
	depsMu.Lock()
	defer depsMu.Unlock()
	httpLog = logger.OrNop(l)
}

func log() *zap.Logger {
	depsMu.RLock()
	defer depsMu.RUnlock()
	return httpLog
}

var errNotConfigured = errors.New("not configured")

func loadTable() (*dataset.Table, error) {
	depsMu.RLock()
	src := datasetSource
	depsMu.RUnlock()
	if src == nil {
		return nil, errNotConfigured
	}
	return src()
}

func currentCatalog() (*queries.Catalog, error) {
	depsMu.RLock()
	defer depsMu.RUnlock()
	if catalog == nil {
		return nil, errNotConfigured
	}
	return catalog, nil
}

func predictor() (*ml.Predictor, error) {
	depsMu.RLock()
	src, strict := assetSource, strictCategories
	depsMu.RUnlock()
	if src == nil {
		return nil, ml.ErrAssetMissing
	}
	assets, err := src()
	if err != nil {
		return nil, err
	}
	return &ml.Predictor{Assets: assets, Strict: strict}, nil
}

func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", handleHealth)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var queryErr *db.QueryError
	switch {
	case errors.As(err, &queryErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ml.ErrInvalidInput), errors.Is(err, ml.ErrUnknownCategory):
		return http.StatusBadRequest
	case errors.Is(err, queries.ErrAssetNotFound):
		return http.StatusNotFound
	case errors.Is(err, ml.ErrAssetMissing), errors.Is(err, ml.ErrAssetInvalid), errors.Is(err, ml.ErrAssetMismatch),
		errors.Is(err, dataset.ErrAssetNotFound), errors.Is(err, db.ErrNotInitialized), errors.Is(err, errNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status and logs server-side failures.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log().Warn("request failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeError(w, status, err)
}
