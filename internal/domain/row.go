package domain

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	// ErrMissingField is returned when a required column is empty.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidRow is returned when a required column cannot be parsed.
	ErrInvalidRow = errors.New("invalid row")
	// ErrBeforeStartDate marks rows submitted before the configured start date.
	ErrBeforeStartDate = errors.New("submitted before start date")
)

// Row is one export row keyed by column name.
type Row map[string]string

// RawRow is a row read from the export together with its position.
type RawRow struct {
	Index  int // 1-based data row number
	Values Row
}

// Has reports whether the export has the column at all.
func (r Row) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// String returns the trimmed cell, or "" for empty and "nan" cells.
func (r Row) String(key string) string {
	s := strings.TrimSpace(r[key])
	if strings.EqualFold(s, "nan") {
		return ""
	}
	return s
}

// StringOr returns the cell, or def when it is empty.
func (r Row) StringOr(key, def string) string {
	if s := r.String(key); s != "" {
		return s
	}
	return def
}

// Float returns the cell as a number, or NaN when it is empty or not numeric.
func (r Row) Float(key string) float64 {
	s := r.String(key)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Int returns the cell as an integer, truncating decimals, or def when missing.
func (r Row) Int(key string, def int) int {
	v := r.Float(key)
	if math.IsNaN(v) {
		return def
	}
	return int(v)
}

// Date parses a date or date-time cell. Excel serial dates are accepted as well
// as the formats KoboToolbox writes.
func (r Row) Date(key string) (time.Time, error) {
	s := r.String(key)
	if s == "" {
		return time.Time{}, ErrMissingField
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial < 100000 {
		return excelSerialToTime(serial), nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// excelSerialToTime converts a 1900-system serial day number to a UTC time.
func excelSerialToTime(serial float64) time.Time {
	epoch := time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
	days := math.Floor(serial)
	secs := math.Round((serial - days) * 86400)
	return epoch.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second)
}

// clockLayouts are the time-of-day formats found in survey exports.
var clockLayouts = []string{
	"15:04:05.000-07:00",
	"15:04:05-07:00",
	"15:04:05.000",
	"15:04:05",
	"15:04",
	"3:04 PM",
	"3:04:05 PM",
}

// ParseClock parses a time-of-day cell, ignoring any UTC offset: survey times
// are local to the site and NOAA is queried in local time.
func ParseClock(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrMissingField
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(0, time.January, 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
		}
	}
	// Excel stores a bare time as a fraction of a day.
	if frac, err := strconv.ParseFloat(s, 64); err == nil && frac >= 0 && frac < 1 {
		secs := int(math.Round(frac * 86400))
		return time.Date(0, time.January, 1, 0, 0, secs, 0, time.UTC), nil
	}
	return time.Time{}, ErrInvalidRow
}

// MetricDepth converts feet to metres. NaN stays NaN.
func MetricDepth(ft float64) float64 {
	if math.IsNaN(ft) {
		return ft
	}
	return ft * 0.3048
}

// CelsiusTemp converts a temperature to Celsius when units is "fahrenheit".
func CelsiusTemp(t float64, units string) float64 {
	if units == "fahrenheit" {
		return (t - 32.0) / 1.8
	}
	return t
}

// Round rounds to the given number of decimal places. NaN stays NaN.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) {
		return v
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Optional returns nil for NaN so missing values serialize as null.
func Optional(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
