// Package analytics turns the ride table into KPI summaries and chart
// specifications. Every function here is pure.
package analytics

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"ridesight/dataset"
)

// Display labels, in the order the overview page shows them.
const (
	LabelTotalBookings = "Total Bookings"
	LabelTotalRevenue  = "Total Revenue (INR)"
	LabelAverageRating = "Average Rating"
	LabelSuccessRate   = "Success Rate"
)

// KPIs are the headline numbers of the overview page.
type KPIs struct {
	TotalBookings int     `json:"total_bookings"`
	SuccessCount  int     `json:"success_count"`
	TotalRevenue  float64 `json:"total_revenue"`
	AverageRating float64 `json:"average_rating"`
	RatingCount   int     `json:"rating_count"`
	SuccessRate   float64 `json:"success_rate"`
}

// ComputeKPIs derives the KPIs. Revenue only counts successful rides while
// the average rating covers every rated ride in the table.
func ComputeKPIs(rides []dataset.Ride) KPIs {
	var k KPIs
	ids := make(map[string]struct{}, len(rides))
	var ratingSum float64

	for _, r := range rides {
		ids[r.BookingID] = struct{}{}
		if r.Succeeded() {
			k.SuccessCount++
			k.TotalRevenue += r.BookingValue
		}
		if r.CustomerRating != nil {
			ratingSum += *r.CustomerRating
			k.RatingCount++
		}
	}

	k.TotalBookings = len(ids)
	if k.RatingCount > 0 {
		k.AverageRating = ratingSum / float64(k.RatingCount)
	}
	if k.TotalBookings > 0 {
		k.SuccessRate = float64(k.SuccessCount) / float64(k.TotalBookings) * 100
	}
	return k
}

// Display formats the KPIs the way the metric tiles render them.
func (k KPIs) Display() map[string]string {
	p := message.NewPrinter(language.English)

	rating := "n/a"
	if k.RatingCount > 0 {
		rating = p.Sprintf("%.2f ⭐", k.AverageRating)
	}

	return map[string]string{
		LabelTotalBookings: p.Sprintf("%d", k.TotalBookings),
		LabelTotalRevenue:  p.Sprintf("₹%.0f", k.TotalRevenue),
		LabelAverageRating: rating,
		LabelSuccessRate:   p.Sprintf("%.1f%%", k.SuccessRate),
	}
}
