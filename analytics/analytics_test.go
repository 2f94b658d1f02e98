package analytics

import (
	"math"
	"testing"
	"time"

	"ridesight/dataset"
)

func rating(v float64) *float64 { return &v }

func at(day, hour int) time.Time {
	return time.Date(2024, 7, day, hour, 0, 0, 0, time.UTC)
}

func fixture() []dataset.Ride {
	return []dataset.Ride{
		{BookingID: "1", Timestamp: at(1, 8), Status: dataset.StatusSuccess, BookingValue: 500, PaymentMethod: "UPI", VehicleType: "Auto", CustomerRating: rating(4), HourOfDay: 8},
		{BookingID: "2", Timestamp: at(1, 9), Status: dataset.StatusSuccess, BookingValue: 700, PaymentMethod: "Cash", VehicleType: "Auto", CustomerRating: rating(5), HourOfDay: 9},
		{BookingID: "3", Timestamp: at(3, 18), Status: dataset.StatusCanceledByCustomer, BookingValue: 10000, CancellationReason: "Change of plans", HourOfDay: 18},
		{BookingID: "4", Timestamp: at(3, 18), Status: dataset.StatusCanceledByCustomer, BookingValue: 200, CancellationReason: "Driver is not moving", HourOfDay: 18},
		{BookingID: "5", Timestamp: at(3, 7), Status: dataset.StatusCanceledByDriver, BookingValue: 300, CancellationReason: "Car issue", HourOfDay: 7},
		{BookingID: "6", Timestamp: at(3, 7), Status: dataset.StatusDriverNotFound, BookingValue: 150, VehicleType: "Mini", CustomerRating: rating(3), HourOfDay: 7},
	}
}

func TestComputeKPIs(t *testing.T) {
	k := ComputeKPIs(fixture())

	if k.TotalBookings != 6 {
		t.Fatalf("expected 6 bookings, got %d", k.TotalBookings)
	}
	if k.TotalRevenue != 1200 {
		t.Fatalf("revenue must only count successful rides, got %v", k.TotalRevenue)
	}
	if math.Abs(k.AverageRating-4) > 1e-9 {
		t.Fatalf("average rating covers all rated rides, got %v", k.AverageRating)
	}
	if math.Abs(k.SuccessRate-100*2.0/6.0) > 1e-9 {
		t.Fatalf("unexpected success rate %v", k.SuccessRate)
	}
}

func TestComputeKPIsDistinctBookings(t *testing.T) {
	rides := fixture()
	rides = append(rides, rides[0])
	k := ComputeKPIs(rides)
	if k.TotalBookings != 6 {
		t.Fatalf("duplicate booking ids must count once, got %d", k.TotalBookings)
	}
}

func TestComputeKPIsEmpty(t *testing.T) {
	k := ComputeKPIs(nil)
	if k.SuccessRate != 0 || k.TotalBookings != 0 {
		t.Fatalf("expected zero KPIs, got %+v", k)
	}
	display := k.Display()
	if display[LabelSuccessRate] != "0.0%" {
		t.Fatalf("unexpected success rate display %q", display[LabelSuccessRate])
	}
	if display[LabelAverageRating] != "n/a" {
		t.Fatalf("unexpected rating display %q", display[LabelAverageRating])
	}
}

func TestRevenueIgnoresNonSuccessRows(t *testing.T) {
	rides := fixture()
	base := ComputeKPIs(rides).TotalRevenue
	for i := range rides {
		if !rides[i].Succeeded() {
			rides[i].BookingValue *= 100
		}
	}
	if got := ComputeKPIs(rides).TotalRevenue; got != base {
		t.Fatalf("revenue changed with non-success values: %v != %v", got, base)
	}
}

func TestKPIDisplay(t *testing.T) {
	k := KPIs{TotalBookings: 103024, TotalRevenue: 35075310.4, AverageRating: 4.004, RatingCount: 10, SuccessRate: 62.09}
	display := k.Display()

	want := map[string]string{
		LabelTotalBookings: "103,024",
		LabelTotalRevenue:  "₹35,075,310",
		LabelAverageRating: "4.00 ⭐",
		LabelSuccessRate:   "62.1%",
	}
	for label, v := range want {
		if display[label] != v {
			t.Errorf("%s = %q, want %q", label, display[label], v)
		}
	}
}

func TestBookingsOverTimeFillsGaps(t *testing.T) {
	spec := BookingsOverTime(fixture())
	if spec.Kind != ChartLine {
		t.Fatalf("unexpected kind %s", spec.Kind)
	}
	want := []Point{
		{Category: "2024-07-01", Value: 2},
		{Category: "2024-07-02", Value: 0},
		{Category: "2024-07-03", Value: 4},
	}
	if len(spec.Points) != len(want) {
		t.Fatalf("expected %d points, got %+v", len(want), spec.Points)
	}
	for i := range want {
		if spec.Points[i] != want[i] {
			t.Errorf("point %d = %+v, want %+v", i, spec.Points[i], want[i])
		}
	}
}

func TestBookingStatusBreakdown(t *testing.T) {
	spec := BookingStatusBreakdown(fixture())
	if spec.Hole != 0.4 || spec.Kind != ChartPie {
		t.Fatalf("unexpected spec %+v", spec)
	}
	// Two-way tie at the top resolves by name.
	if spec.Points[0].Category != dataset.StatusCanceledByCustomer || spec.Points[1].Category != dataset.StatusSuccess {
		t.Fatalf("unexpected order %+v", spec.Points)
	}
}

func TestCancellationsByHour(t *testing.T) {
	spec := CancellationsByHour(fixture())
	want := []Point{{Category: "7", Value: 1}, {Category: "18", Value: 2}}
	if len(spec.Points) != 2 || spec.Points[0] != want[0] || spec.Points[1] != want[1] {
		t.Fatalf("unexpected points %+v", spec.Points)
	}
}

func TestCancellationReasonsTopFiveIndependent(t *testing.T) {
	var rides []dataset.Ride
	for i, n := range []int{6, 5, 4, 3, 2, 1} {
		for j := 0; j < n; j++ {
			rides = append(rides, dataset.Ride{
				Status:             dataset.StatusCanceledByCustomer,
				CancellationReason: string(rune('A' + i)),
			})
		}
	}
	rides = append(rides,
		dataset.Ride{Status: dataset.StatusCanceledByDriver, CancellationReason: "Z"},
		dataset.Ride{Status: dataset.StatusCanceledByDriver},
	)

	customer, driver := CancellationReasons(rides)
	if len(customer.Points) != TopReasons {
		t.Fatalf("expected %d customer reasons, got %d", TopReasons, len(customer.Points))
	}
	if customer.Points[0].Category != "A" || customer.Points[4].Category != "E" {
		t.Fatalf("unexpected customer reasons %+v", customer.Points)
	}
	if len(driver.Points) != 1 || driver.Points[0].Category != "Z" {
		t.Fatalf("driver reasons must be computed independently, got %+v", driver.Points)
	}
}

func TestRevenueByPaymentMethod(t *testing.T) {
	spec := RevenueByPaymentMethod(fixture())
	if len(spec.Points) != 2 {
		t.Fatalf("expected 2 methods, got %+v", spec.Points)
	}
	if spec.Points[0] != (Point{Category: "UPI", Value: 500}) || spec.Points[1] != (Point{Category: "Cash", Value: 700}) {
		t.Fatalf("unexpected points %+v", spec.Points)
	}
}

func TestRatingsByVehicleType(t *testing.T) {
	rides := []dataset.Ride{
		{VehicleType: "Bike", CustomerRating: rating(1)},
		{VehicleType: "Bike", CustomerRating: rating(2)},
		{VehicleType: "Bike", CustomerRating: rating(3)},
		{VehicleType: "Bike", CustomerRating: rating(4)},
		{VehicleType: "Bike"},
		{VehicleType: "Auto", CustomerRating: rating(5)},
	}
	spec := RatingsByVehicleType(rides)
	if len(spec.Boxes) != 2 || spec.Boxes[0].Category != "Auto" {
		t.Fatalf("unexpected boxes %+v", spec.Boxes)
	}
	bike := spec.Boxes[1]
	if bike.Count != 4 || bike.Min != 1 || bike.Max != 4 {
		t.Fatalf("unexpected bike box %+v", bike)
	}
	if bike.Q1 != 1.75 || bike.Median != 2.5 || bike.Q3 != 3.25 {
		t.Fatalf("unexpected quartiles %+v", bike)
	}
}

func TestDashboard(t *testing.T) {
	overview := Dashboard(fixture())
	if overview.KPIs.TotalBookings != 6 {
		t.Fatalf("unexpected KPIs %+v", overview.KPIs)
	}
	if overview.Display[LabelTotalBookings] != "6" {
		t.Fatalf("unexpected display %+v", overview.Display)
	}
	if overview.CustomerReasons.Title != "Top 5 Customer Reasons" {
		t.Fatalf("unexpected reasons chart %+v", overview.CustomerReasons)
	}
}
