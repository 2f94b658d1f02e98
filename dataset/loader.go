package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-gota/gota/dataframe"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"ridesight/logger"
	"ridesight/monitoring"
)

var (
	ErrAssetNotFound = errors.New("dataset file not found")
	ErrSchema        = errors.New("dataset schema mismatch")
	ErrParse         = errors.New("dataset parse error")
)

const (
	colBookingID     = "booking_id"
	colTimestamp     = "booking_timestamp"
	colStatus        = "booking_status"
	colVTAT          = "v_tat"
	colCTAT          = "c_tat"
	colBookingValue  = "booking_value"
	colRideDistance  = "ride_distance"
	colVehicleType   = "vehicle_type"
	colPaymentMethod = "payment_method"
	colRating        = "customer_rating"
	colReason        = "cancellation_reason"
	colHour          = "hour_of_day"
)

// RequiredColumns lists the header names every dataset file must carry.
// hour_of_day is optional and derived from the timestamp when absent.
var RequiredColumns = []string{
	colBookingID, colTimestamp, colStatus, colVTAT, colCTAT, colBookingValue,
	colRideDistance, colVehicleType, colPaymentMethod, colRating, colReason,
}

var nullTokens = []string{"", "NA", "NaN", "nan", "null", "None", "<nil>"}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04",
	"2006-01-02",
}

// Load reads the whole CSV file at path into a Table.
func Load(path string) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, path)
		}
		return nil, err
	}
	return load(path, info)
}

func load(path string, info os.FileInfo) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	df := dataframe.ReadCSV(file,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.NaNValues(nullTokens),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, df.Err)
	}

	present := make(map[string]bool, df.Ncol())
	for _, name := range df.Names() {
		present[name] = true
	}
	for _, name := range RequiredColumns {
		if !present[name] {
			return nil, fmt.Errorf("%w: missing column %q", ErrSchema, name)
		}
	}

	cols := make(map[string][]string, len(RequiredColumns)+1)
	for _, name := range RequiredColumns {
		cols[name] = df.Col(name).Records()
	}
	if present[colHour] {
		cols[colHour] = df.Col(colHour).Records()
	}

	rides := make([]Ride, df.Nrow())
	for i := range rides {
		ride, err := parseRow(cols, i)
		if err != nil {
			return nil, err
		}
		rides[i] = ride
	}

	return &Table{
		Path:     path,
		ModTime:  info.ModTime(),
		LoadedAt: time.Now(),
		Rides:    rides,
	}, nil
}

func parseRow(cols map[string][]string, i int) (Ride, error) {
	field := func(name string) string {
		values, ok := cols[name]
		if !ok {
			return ""
		}
		return nullable(values[i])
	}
	row := i + 1

	ts, err := parseTimestamp(field(colTimestamp))
	if err != nil {
		return Ride{}, fmt.Errorf("%w: row %d column %s: %v", ErrParse, row, colTimestamp, err)
	}

	ride := Ride{
		BookingID:          field(colBookingID),
		Timestamp:          ts,
		Status:             field(colStatus),
		VehicleType:        field(colVehicleType),
		PaymentMethod:      field(colPaymentMethod),
		CancellationReason: field(colReason),
		HourOfDay:          ts.Hour(),
	}

	numeric := []struct {
		name string
		dst  *float64
	}{
		{colVTAT, &ride.VTAT},
		{colCTAT, &ride.CTAT},
		{colBookingValue, &ride.BookingValue},
		{colRideDistance, &ride.RideDistance},
	}
	for _, n := range numeric {
		raw := field(n.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Ride{}, fmt.Errorf("%w: row %d column %s: %v", ErrParse, row, n.name, err)
		}
		*n.dst = v
	}

	if raw := field(colRating); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Ride{}, fmt.Errorf("%w: row %d column %s: %v", ErrParse, row, colRating, err)
		}
		ride.CustomerRating = &v
	}

	if raw := field(colHour); raw != "" {
		h, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Ride{}, fmt.Errorf("%w: row %d column %s: %v", ErrParse, row, colHour, err)
		}
		ride.HourOfDay = int(h)
	}

	return ride, nil
}

func nullable(s string) string {
	s = strings.TrimSpace(s)
	for _, token := range nullTokens {
		if s == token {
			return ""
		}
	}
	return s
}

func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// Loader memoizes loaded tables by path, modification time and size, so
// repeated loads of an unchanged file return the same *Table.
type Loader struct {
	cache   *lru.Cache[string, *Table]
	cleaner *DataCleaner
	log     *zap.Logger
	mu      sync.Mutex
}

// NewLoader creates a loader. cleaner may be nil to skip quality checks.
func NewLoader(cleaner *DataCleaner, log *zap.Logger) *Loader {
	cache, _ := lru.New[string, *Table](4)
	return &Loader{
		cache:   cache,
		cleaner: cleaner,
		log:     logger.OrNop(log),
	}
}

// Load returns the memoized table for path, parsing it on first use or when
// the file changed on disk.
func (l *Loader) Load(path string) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, path)
		}
		return nil, err
	}
	key := cacheKey(path, info)

	l.mu.Lock()
	defer l.mu.Unlock()

	if table, ok := l.cache.Get(key); ok {
		return table, nil
	}

	start := time.Now()
	table, err := load(path, info)
	if err != nil {
		return nil, err
	}
	if l.cleaner != nil {
		table.Rides, table.Issues = l.cleaner.Inspect(table.Rides)
	}
	l.cache.Add(key, table)
	monitoring.SetRidesLoaded(table.Len())

	l.log.Info("dataset loaded",
		zap.String("path", path),
		zap.Int("rides", table.Len()),
		zap.Int("issues", len(table.Issues)),
		zap.Duration("took", time.Since(start)),
	)
	return table, nil
}

func cacheKey(path string, info os.FileInfo) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return fmt.Sprintf("%s|%d|%d", abs, info.ModTime().UnixNano(), info.Size())
}
