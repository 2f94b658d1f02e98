package http

import (
	"fmt"
	"net/http"

	"ridesight/analytics"
	"ridesight/dataset"
)

// chartBuilders maps the chart path segment to its builder.
var chartBuilders = map[string]func([]dataset.Ride) analytics.ChartSpec{
	"bookings_over_time":      analytics.BookingsOverTime,
	"status_breakdown":        analytics.BookingStatusBreakdown,
	"cancellations_by_hour":   analytics.CancellationsByHour,
	"revenue_by_payment":      analytics.RevenueByPaymentMethod,
	"ratings_by_vehicle_type": analytics.RatingsByVehicleType,
	"customer_reasons": func(rides []dataset.Ride) analytics.ChartSpec {
		customer, _ := analytics.CancellationReasons(rides)
		return customer
	},
	"driver_reasons": func(rides []dataset.Ride) analytics.ChartSpec {
		_, driver := analytics.CancellationReasons(rides)
		return driver
	},
}

func RegisterDashboardRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/dashboard", handleDashboard)
	mux.HandleFunc("GET /api/dashboard/kpis", handleDashboardKPIs)
	mux.HandleFunc("GET /api/dashboard/charts/{chart}", handleDashboardChart)
	mux.HandleFunc("GET /api/dataset/quality", handleDatasetQuality)
}

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	table, err := loadTable()
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.Dashboard(table.Rides))
}

func handleDashboardKPIs(w http.ResponseWriter, r *http.Request) {
	table, err := loadTable()
	if err != nil {
		fail(w, r, err)
		return
	}
	kpis := analytics.ComputeKPIs(table.Rides)

	labels := []string{analytics.LabelTotalBookings, analytics.LabelTotalRevenue, analytics.LabelAverageRating, analytics.LabelSuccessRate}
	display := kpis.Display()
	tiles := make([]map[string]string, len(labels))
	for i, label := range labels {
		tiles[i] = map[string]string{"label": label, "value": display[label]}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"kpis":  kpis,
		"tiles": tiles,
	})
}

func handleDashboardChart(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("chart")
	build, ok := chartBuilders[name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown chart %q", name))
		return
	}
	table, err := loadTable()
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, build(table.Rides))
}

func handleDatasetQuality(w http.ResponseWriter, r *http.Request) {
	table, err := loadTable()
	if err != nil {
		fail(w, r, err)
		return
	}
	issues := table.Issues
	if issues == nil {
		issues = []dataset.QualityIssue{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path":      table.Path,
		"rides":     table.Len(),
		"loaded_at": table.LoadedAt,
		"issues":    issues,
	})
}
