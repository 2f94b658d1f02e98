package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ridesight/dataset"
)

const timestampLayout = "2006-01-02 15:04:05"

// SeedRides creates the rides table when missing and fills it from the
// dataset if it is empty. It returns the number of inserted rows.
func SeedRides(ctx context.Context, rides []dataset.Ride) (int, error) {
	mu.Lock()
	defer mu.Unlock()
	if database == nil {
		return 0, ErrNotInitialized
	}

	floatType := "REAL"
	if driverName == "postgres" {
		floatType = "DOUBLE PRECISION"
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS rides (
        booking_id TEXT NOT NULL,
        booking_timestamp TEXT NOT NULL,
        booking_status TEXT NOT NULL,
        v_tat %[1]s,
        c_tat %[1]s,
        booking_value %[1]s,
        ride_distance %[1]s,
        vehicle_type TEXT,
        payment_method TEXT,
        customer_rating %[1]s,
        cancellation_reason TEXT,
        hour_of_day INTEGER
    )`, floatType)
	if _, err := database.ExecContext(ctx, ddl); err != nil {
		return 0, fmt.Errorf("create rides table failed: %w", err)
	}

	var count int
	if err := database.QueryRowContext(ctx, `SELECT COUNT(*) FROM rides`).Scan(&count); err != nil {
		return 0, err
	}
	if count > 0 || len(rides) == 0 {
		return 0, nil
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO rides (
        booking_id, booking_timestamp, booking_status, v_tat, c_tat,
        booking_value, ride_distance, vehicle_type, payment_method,
        customer_rating, cancellation_reason, hour_of_day
    ) VALUES (`+placeholders(driverName, 12)+`)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, r := range rides {
		var rating sql.NullFloat64
		if r.CustomerRating != nil {
			rating = sql.NullFloat64{Float64: *r.CustomerRating, Valid: true}
		}
		reason := sql.NullString{String: r.CancellationReason, Valid: r.CancellationReason != ""}

		_, err := stmt.ExecContext(ctx,
			r.BookingID,
			r.Timestamp.UTC().Format(timestampLayout),
			r.Status,
			r.VTAT,
			r.CTAT,
			r.BookingValue,
			r.RideDistance,
			r.VehicleType,
			r.PaymentMethod,
			rating,
			reason,
			r.HourOfDay,
		)
		if err != nil {
			return 0, fmt.Errorf("insert ride %s failed: %w", r.BookingID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	resultCache.Purge()
	return len(rides), nil
}

func placeholders(driver string, n int) string {
	marks := make([]string, n)
	for i := range marks {
		if driver == "postgres" {
			marks[i] = fmt.Sprintf("$%d", i+1)
		} else {
			marks[i] = "?"
		}
	}
	return strings.Join(marks, ", ")
}
