package analytics

import (
	"sort"
	"strconv"
	"time"

	"ridesight/dataset"
)

// ChartKind is the plot type a ChartSpec describes.
type ChartKind string

const (
	ChartLine ChartKind = "line"
	ChartPie  ChartKind = "pie"
	ChartBar  ChartKind = "bar"
	ChartBox  ChartKind = "box"
)

// Point is one category/value pair on a chart.
type Point struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

// BoxStats summarizes one box of a box plot.
type BoxStats struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Min      float64 `json:"min"`
	Q1       float64 `json:"q1"`
	Median   float64 `json:"median"`
	Q3       float64 `json:"q3"`
	Max      float64 `json:"max"`
}

// ChartSpec is a renderer-agnostic chart description.
type ChartSpec struct {
	Kind          ChartKind  `json:"kind"`
	Title         string     `json:"title"`
	XLabel        string     `json:"x_label,omitempty"`
	YLabel        string     `json:"y_label,omitempty"`
	Orientation   string     `json:"orientation,omitempty"` // "h" for horizontal bars
	Hole          float64    `json:"hole,omitempty"`
	CategoryOrder string     `json:"category_order,omitempty"`
	Points        []Point    `json:"points,omitempty"`
	Boxes         []BoxStats `json:"boxes,omitempty"`
}

// BookingsOverTime counts bookings per calendar day. Days without bookings
// between the first and last booking appear with a zero count.
func BookingsOverTime(rides []dataset.Ride) ChartSpec {
	spec := ChartSpec{
		Kind:   ChartLine,
		Title:  "Booking Volume Over Time",
		XLabel: "Date",
		YLabel: "Number of Bookings",
		Points: []Point{},
	}
	if len(rides) == 0 {
		return spec
	}

	counts := make(map[string]int)
	first, last := day(rides[0].Timestamp), day(rides[0].Timestamp)
	for _, r := range rides {
		d := day(r.Timestamp)
		counts[d.Format(time.DateOnly)]++
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := d.Format(time.DateOnly)
		spec.Points = append(spec.Points, Point{Category: key, Value: float64(counts[key])})
	}
	return spec
}

// BookingStatusBreakdown is the donut chart of booking statuses.
func BookingStatusBreakdown(rides []dataset.Ride) ChartSpec {
	return ChartSpec{
		Kind:   ChartPie,
		Title:  "Booking Status Breakdown",
		Hole:   0.4,
		Points: valueCounts(rides, func(r dataset.Ride) (string, bool) { return r.Status, r.Status != "" }),
	}
}

// CancellationsByHour counts canceled rides per hour of day, in hour order.
func CancellationsByHour(rides []dataset.Ride) ChartSpec {
	counts := make(map[int]int)
	for _, r := range rides {
		if r.Canceled() {
			counts[r.HourOfDay]++
		}
	}
	hours := make([]int, 0, len(counts))
	for h := range counts {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	points := make([]Point, len(hours))
	for i, h := range hours {
		points[i] = Point{Category: strconv.Itoa(h), Value: float64(counts[h])}
	}
	return ChartSpec{
		Kind:   ChartBar,
		Title:  "Cancellations by Hour of the Day",
		XLabel: "Hour of Day (24h)",
		YLabel: "Number of Cancellations",
		Points: points,
	}
}

// TopReasons is how many cancellation reasons each reason chart keeps.
const TopReasons = 5

// CancellationReasons returns the customer and driver reason charts. Each
// keeps its own TopReasons most frequent non-null reasons.
func CancellationReasons(rides []dataset.Ride) (customer, driver ChartSpec) {
	reasonsFor := func(status string) []Point {
		points := valueCounts(rides, func(r dataset.Ride) (string, bool) {
			return r.CancellationReason, r.Status == status && r.CancellationReason != ""
		})
		if len(points) > TopReasons {
			points = points[:TopReasons]
		}
		return points
	}

	customer = ChartSpec{
		Kind:          ChartBar,
		Title:         "Top 5 Customer Reasons",
		Orientation:   "h",
		CategoryOrder: "total ascending",
		Points:        reasonsFor(dataset.StatusCanceledByCustomer),
	}
	driver = ChartSpec{
		Kind:          ChartBar,
		Title:         "Top 5 Driver Reasons",
		Orientation:   "h",
		CategoryOrder: "total ascending",
		Points:        reasonsFor(dataset.StatusCanceledByDriver),
	}
	return customer, driver
}

// RevenueByPaymentMethod sums successful booking value per payment method,
// smallest first.
func RevenueByPaymentMethod(rides []dataset.Ride) ChartSpec {
	sums := make(map[string]float64)
	for _, r := range rides {
		if r.Succeeded() {
			sums[r.PaymentMethod] += r.BookingValue
		}
	}
	points := make([]Point, 0, len(sums))
	for method, total := range sums {
		points = append(points, Point{Category: method, Value: total})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Value != points[j].Value {
			return points[i].Value < points[j].Value
		}
		return points[i].Category < points[j].Category
	})

	return ChartSpec{
		Kind:        ChartBar,
		Title:       "Revenue by Payment Method",
		XLabel:      "Total Revenue (INR)",
		YLabel:      "Payment Method",
		Orientation: "h",
		Points:      points,
	}
}

// RatingsByVehicleType summarizes the rating distribution of each vehicle
// type. Rides without a rating are left out.
func RatingsByVehicleType(rides []dataset.Ride) ChartSpec {
	groups := make(map[string][]float64)
	for _, r := range rides {
		if r.CustomerRating == nil {
			continue
		}
		groups[r.VehicleType] = append(groups[r.VehicleType], *r.CustomerRating)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	boxes := make([]BoxStats, len(names))
	for i, name := range names {
		boxes[i] = boxStats(name, groups[name])
	}
	return ChartSpec{
		Kind:   ChartBox,
		Title:  "Customer Rating Distribution by Vehicle Type",
		XLabel: "Vehicle Type",
		YLabel: "Customer Rating",
		Boxes:  boxes,
	}
}

// Overview bundles everything the dashboard page renders.
type Overview struct {
	KPIs                 KPIs              `json:"kpis"`
	Display              map[string]string `json:"display"`
	BookingsOverTime     ChartSpec         `json:"bookings_over_time"`
	StatusBreakdown      ChartSpec         `json:"status_breakdown"`
	CancellationsByHour  ChartSpec         `json:"cancellations_by_hour"`
	CustomerReasons      ChartSpec         `json:"customer_reasons"`
	DriverReasons        ChartSpec         `json:"driver_reasons"`
	RevenueByPayment     ChartSpec         `json:"revenue_by_payment"`
	RatingsByVehicleType ChartSpec         `json:"ratings_by_vehicle_type"`
}

// Dashboard computes the full overview.
func Dashboard(rides []dataset.Ride) Overview {
	kpis := ComputeKPIs(rides)
	customer, driver := CancellationReasons(rides)
	return Overview{
		KPIs:                 kpis,
		Display:              kpis.Display(),
		BookingsOverTime:     BookingsOverTime(rides),
		StatusBreakdown:      BookingStatusBreakdown(rides),
		CancellationsByHour:  CancellationsByHour(rides),
		CustomerReasons:      customer,
		DriverReasons:        driver,
		RevenueByPayment:     RevenueByPaymentMethod(rides),
		RatingsByVehicleType: RatingsByVehicleType(rides),
	}
}

// valueCounts counts the keys selected by pick, most frequent first and
// ties in name order.
func valueCounts(rides []dataset.Ride, pick func(dataset.Ride) (string, bool)) []Point {
	counts := make(map[string]int)
	for _, r := range rides {
		if key, ok := pick(r); ok {
			counts[key]++
		}
	}
	points := make([]Point, 0, len(counts))
	for key, n := range counts {
		points = append(points, Point{Category: key, Value: float64(n)})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Value != points[j].Value {
			return points[i].Value > points[j].Value
		}
		return points[i].Category < points[j].Category
	})
	return points
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func boxStats(category string, values []float64) BoxStats {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return BoxStats{
		Category: category,
		Count:    len(sorted),
		Min:      sorted[0],
		Q1:       quantile(sorted, 0.25),
		Median:   quantile(sorted, 0.5),
		Q3:       quantile(sorted, 0.75),
		Max:      sorted[len(sorted)-1],
	}
}

// quantile uses linear interpolation between closest ranks; sorted must be
// non-empty and ascending.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
