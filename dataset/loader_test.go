package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleCSV = `booking_id,booking_timestamp,booking_status,v_tat,c_tat,booking_value,ride_distance,vehicle_type,payment_method,customer_rating,cancellation_reason,hour_of_day
CNR1,2024-07-01 08:15:00,Success,120,45,550,12,Prime Sedan,UPI,4.5,,8
CNR2,2024-07-01 18:40:00,Canceled by Customer,,,300,0,Auto,Cash,,Change of plans,18
CNR3,2024-07-02 09:05:00,Canceled by Driver,,,410,0,Mini,Cash,NaN,Personal & Car related issue,9
CNR4,2024-07-03 22:00:00,Success,200,60,1200,30,Prime SUV,Credit Card,3.9,,22
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadParsesRides(t *testing.T) {
	path := writeFile(t, "rides.csv", sampleCSV)

	table, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Len() != 4 {
		t.Fatalf("expected 4 rides, got %d", table.Len())
	}

	first := table.Rides[0]
	want := time.Date(2024, 7, 1, 8, 15, 0, 0, time.UTC)
	if !first.Timestamp.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", first.Timestamp, want)
	}
	if first.CustomerRating == nil || *first.CustomerRating != 4.5 {
		t.Fatalf("expected rating 4.5, got %v", first.CustomerRating)
	}
	if first.VTAT != 120 || first.BookingValue != 550 || first.HourOfDay != 8 {
		t.Fatalf("unexpected numeric fields: %+v", first)
	}

	canceled := table.Rides[1]
	if canceled.CustomerRating != nil {
		t.Fatalf("expected nil rating, got %v", *canceled.CustomerRating)
	}
	if canceled.CancellationReason != "Change of plans" {
		t.Fatalf("unexpected reason %q", canceled.CancellationReason)
	}
	if !canceled.Canceled() || canceled.Succeeded() {
		t.Fatalf("expected canceled ride")
	}
	if table.Rides[2].CustomerRating != nil {
		t.Fatal("NaN rating should load as null")
	}
}

func TestLoadDerivesHourWhenColumnMissing(t *testing.T) {
	path := writeFile(t, "rides.csv", `booking_id,booking_timestamp,booking_status,v_tat,c_tat,booking_value,ride_distance,vehicle_type,payment_method,customer_rating,cancellation_reason
CNR1,2024-07-01T17:30:00Z,Success,120,45,550,12,Bike,UPI,4.0,
`)
	table, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Rides[0].HourOfDay != 17 {
		t.Fatalf("expected derived hour 17, got %d", table.Rides[0].HourOfDay)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{
			name:    "missing column",
			content: "booking_id,booking_status\nCNR1,Success\n",
			want:    ErrSchema,
		},
		{
			name: "bad timestamp",
			content: `booking_id,booking_timestamp,booking_status,v_tat,c_tat,booking_value,ride_distance,vehicle_type,payment_method,customer_rating,cancellation_reason
CNR1,yesterday,Success,1,1,1,1,Bike,UPI,4,
`,
			want: ErrParse,
		},
		{
			name: "bad number",
			content: `booking_id,booking_timestamp,booking_status,v_tat,c_tat,booking_value,ride_distance,vehicle_type,payment_method,customer_rating,cancellation_reason
CNR1,2024-07-01 08:00:00,Success,fast,1,1,1,Bike,UPI,4,
`,
			want: ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "rides.csv", tt.content))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.csv"))
	if !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestLoaderMemoizes(t *testing.T) {
	path := writeFile(t, "rides.csv", sampleCSV)
	loader := NewLoader(nil, nil)

	first, err := loader.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := loader.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatal("expected the cached table on second load")
	}

	// A rewritten file with a new mtime is parsed again.
	shorter := sampleCSV[:len(sampleCSV)-len("CNR4,2024-07-03 22:00:00,Success,200,60,1200,30,Prime SUV,Credit Card,3.9,,22\n")]
	if err := os.WriteFile(path, []byte(shorter), 0o600); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	third, err := loader.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if third == first || third.Len() != 3 {
		t.Fatalf("expected a fresh table with 3 rides, got %d", third.Len())
	}
}

func TestLoaderRecordsQualityIssues(t *testing.T) {
	path := writeFile(t, "rides.csv", `booking_id,booking_timestamp,booking_status,v_tat,c_tat,booking_value,ride_distance,vehicle_type,payment_method,customer_rating,cancellation_reason
CNR1,2024-07-01 08:00:00,Success,10,5,-20,3,Bike,UPI,7,
CNR2,2024-07-01 09:00:00,Success,10,5,200,3,Bike,UPI,4,
`)
	loader := NewLoader(NewDataCleaner(), nil)
	table, err := loader.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("flagged rides must be kept, got %d", table.Len())
	}
	if len(table.Issues) != 2 {
		t.Fatalf("expected 2 issues, got %d: %+v", len(table.Issues), table.Issues)
	}
	if table.Issues[0].Row != 1 || table.Issues[0].BookingID != "CNR1" {
		t.Fatalf("unexpected issue: %+v", table.Issues[0])
	}
}
