// Package dataset loads the ride booking dataset into an immutable table.
package dataset

import (
	"strings"
	"time"
)

const (
	StatusSuccess            = "Success"
	StatusCanceledByCustomer = "Canceled by Customer"
	StatusCanceledByDriver   = "Canceled by Driver"
	StatusDriverNotFound     = "Driver Not Found"
)

// Ride is one booking row.
type Ride struct {
	BookingID          string    `json:"booking_id"`
	Timestamp          time.Time `json:"booking_timestamp"`
	Status             string    `json:"booking_status"`
	VTAT               float64   `json:"v_tat"`
	CTAT               float64   `json:"c_tat"`
	BookingValue       float64   `json:"booking_value"`
	RideDistance       float64   `json:"ride_distance"`
	VehicleType        string    `json:"vehicle_type"`
	PaymentMethod      string    `json:"payment_method"`
	CustomerRating     *float64  `json:"customer_rating"`
	CancellationReason string    `json:"cancellation_reason,omitempty"`
	HourOfDay          int       `json:"hour_of_day"`
}

// Succeeded reports whether the booking completed.
func (r Ride) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Canceled matches any cancellation status, by customer or by driver.
func (r Ride) Canceled() bool {
	return strings.Contains(r.Status, "Canceled")
}

// Table is the loaded dataset. It is never mutated after Load returns.
type Table struct {
	Path     string         `json:"path"`
	ModTime  time.Time      `json:"mod_time"`
	LoadedAt time.Time      `json:"loaded_at"`
	Rides    []Ride         `json:"-"`
	Issues   []QualityIssue `json:"issues,omitempty"`
}

// Len returns the number of rides.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rides)
}
