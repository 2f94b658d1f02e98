package dataset

import (
	"fmt"
	"sync"
	"time"
)

// CleaningRule 数据质量规则
type CleaningRule interface {
	Check(*Ride) error
	Name() string
}

// QualityIssue 质量问题
type QualityIssue struct {
	Type      string `json:"type"`
	Severity  string `json:"severity"` // low, medium, high
	Message   string `json:"message"`
	Row       int    `json:"row"`
	BookingID string `json:"booking_id"`
}

// CleaningStats 清洗统计
type CleaningStats struct {
	TotalProcessed int64            `json:"total_processed"`
	Passed         int64            `json:"passed"`
	Flagged        int64            `json:"flagged"`
	Dropped        int64            `json:"dropped"`
	Issues         map[string]int64 `json:"issues"`
	LastRun        time.Time        `json:"last_run"`
}

// DataCleaner runs every rule over a ride slice. Rides that fail a rule are
// flagged; they are only removed when DropInvalid is set.
type DataCleaner struct {
	rules       []CleaningRule
	DropInvalid bool

	stats     CleaningStats
	statsLock sync.RWMutex
}

// NewDataCleaner 创建数据清洗器
func NewDataCleaner() *DataCleaner {
	cleaner := &DataCleaner{
		stats: CleaningStats{Issues: make(map[string]int64)},
	}

	cleaner.AddRule(NonNegativeRule{})
	cleaner.AddRule(RatingRangeRule{Min: 1, Max: 5})
	cleaner.AddRule(HourRangeRule{})
	cleaner.AddRule(ReasonConsistencyRule{})

	return cleaner
}

// AddRule 添加规则
func (dc *DataCleaner) AddRule(rule CleaningRule) {
	dc.rules = append(dc.rules, rule)
}

// Inspect applies the rules. Row numbers in issues are 1-based data rows.
func (dc *DataCleaner) Inspect(rides []Ride) ([]Ride, []QualityIssue) {
	dc.statsLock.Lock()
	defer dc.statsLock.Unlock()

	kept := rides
	if dc.DropInvalid {
		kept = make([]Ride, 0, len(rides))
	}
	var issues []QualityIssue

	for i := range rides {
		dc.stats.TotalProcessed++
		flagged := false
		for _, rule := range dc.rules {
			if err := rule.Check(&rides[i]); err != nil {
				flagged = true
				dc.stats.Issues[rule.Name()]++
				issues = append(issues, QualityIssue{
					Type:      rule.Name(),
					Severity:  severityOf(rule),
					Message:   err.Error(),
					Row:       i + 1,
					BookingID: rides[i].BookingID,
				})
			}
		}

		switch {
		case !flagged:
			dc.stats.Passed++
		case dc.DropInvalid:
			dc.stats.Dropped++
		default:
			dc.stats.Flagged++
		}
		if dc.DropInvalid && !flagged {
			kept = append(kept, rides[i])
		}
	}

	dc.stats.LastRun = time.Now()
	return kept, issues
}

// GetStats 获取统计
func (dc *DataCleaner) GetStats() CleaningStats {
	dc.statsLock.RLock()
	defer dc.statsLock.RUnlock()

	stats := dc.stats
	stats.Issues = make(map[string]int64, len(dc.stats.Issues))
	for k, v := range dc.stats.Issues {
		stats.Issues[k] = v
	}
	return stats
}

func severityOf(rule CleaningRule) string {
	switch rule.(type) {
	case NonNegativeRule:
		return "high"
	case RatingRangeRule, HourRangeRule:
		return "medium"
	default:
		return "low"
	}
}

// NonNegativeRule rejects negative amounts, distances and wait times.
type NonNegativeRule struct{}

func (NonNegativeRule) Name() string { return "non_negative" }

func (NonNegativeRule) Check(r *Ride) error {
	switch {
	case r.BookingValue < 0:
		return fmt.Errorf("negative booking_value %.2f", r.BookingValue)
	case r.RideDistance < 0:
		return fmt.Errorf("negative ride_distance %.2f", r.RideDistance)
	case r.VTAT < 0:
		return fmt.Errorf("negative v_tat %.2f", r.VTAT)
	case r.CTAT < 0:
		return fmt.Errorf("negative c_tat %.2f", r.CTAT)
	}
	return nil
}

// RatingRangeRule checks non-null ratings against [Min, Max].
type RatingRangeRule struct {
	Min float64
	Max float64
}

func (RatingRangeRule) Name() string { return "rating_range" }

func (rule RatingRangeRule) Check(r *Ride) error {
	if r.CustomerRating == nil {
		return nil
	}
	if v := *r.CustomerRating; v < rule.Min || v > rule.Max {
		return fmt.Errorf("customer_rating %.2f outside [%.0f, %.0f]", v, rule.Min, rule.Max)
	}
	return nil
}

// HourRangeRule checks hour_of_day.
type HourRangeRule struct{}

func (HourRangeRule) Name() string { return "hour_range" }

func (HourRangeRule) Check(r *Ride) error {
	if r.HourOfDay < 0 || r.HourOfDay > 23 {
		return fmt.Errorf("hour_of_day %d outside [0, 23]", r.HourOfDay)
	}
	return nil
}

// ReasonConsistencyRule flags cancellation reasons on rides that were not canceled.
type ReasonConsistencyRule struct{}

func (ReasonConsistencyRule) Name() string { return "reason_consistency" }

func (ReasonConsistencyRule) Check(r *Ride) error {
	if r.CancellationReason != "" && !r.Canceled() {
		return fmt.Errorf("cancellation_reason %q on %q booking", r.CancellationReason, r.Status)
	}
	return nil
}
