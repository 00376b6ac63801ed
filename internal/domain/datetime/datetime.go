// Package datetime parses partial ISO-8601-like date-time strings and
// completes them to their earliest or latest boundary instant.
package datetime

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalid is returned for values that do not denote a date-time.
var ErrInvalid = errors.New("invalid date-time value")

// Bounds limits the accepted year range, inclusive.
type Bounds struct {
	MinYear int64
	MaxYear int64
}

var (
	// FieldBounds applies to resource created/modified timestamps.
	FieldBounds = Bounds{MinYear: 1000, MaxYear: 9999}
	// ValueBounds applies to dates found in free property values.
	ValueBounds = Bounds{MinYear: -292277022656, MaxYear: 292277026595}
)

// Precision is the smallest component present in a parsed value.
type Precision int

// Precisions, coarse to fine.
const (
	PrecisionYear Precision = iota
	PrecisionMonth
	PrecisionDay
	PrecisionHour
	PrecisionMinute
	PrecisionSecond
)

var pattern = regexp.MustCompile(
	`^(-?\d{4,})` + // year
		`(?:-(\d{1,2}))?` + // month
		`(?:-(\d{1,2}))?` + // day
		`(?:[T ](\d{1,2})(?::(\d{1,2}))?(?::(\d{1,2}))?)?` + // hour, minute, second
		`(Z|[+-]\d{1,2}(?::?\d{2})?)?$`, // offset
)

var offsetPattern = regexp.MustCompile(`^([+-]\d{1,2}):?(\d{2})?$`)

// Value is a parsed, validated partial date-time.
type Value struct {
	Year      int64
	Month     int
	Day       int
	Hour      int
	Minute    int
	Second    int
	Precision Precision

	HasOffset    bool
	OffsetHour   int
	OffsetMinute int
}

// Parse validates raw against the relaxed pattern and the year bounds.
func Parse(raw string, b Bounds) (Value, error) {
	if raw == "" {
		return Value{}, fmt.Errorf("%w: empty", ErrInvalid)
	}
	m := pattern.FindStringSubmatch(raw)
	if m == nil {
		return Value{}, fmt.Errorf("%w: %q", ErrInvalid, raw)
	}

	var v Value
	year, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: year out of range", ErrInvalid)
	}
	if year < b.MinYear || year > b.MaxYear {
		return Value{}, fmt.Errorf("%w: year %d outside [%d, %d]", ErrInvalid, year, b.MinYear, b.MaxYear)
	}
	v.Year = year

	parts := []struct {
		raw      string
		dst      *int
		min, max int
		prec     Precision
		name     string
	}{
		{m[2], &v.Month, 1, 12, PrecisionMonth, "month"},
		{m[3], &v.Day, 1, 31, PrecisionDay, "day"},
		{m[4], &v.Hour, 0, 23, PrecisionHour, "hour"},
		{m[5], &v.Minute, 0, 59, PrecisionMinute, "minute"},
		{m[6], &v.Second, 0, 59, PrecisionSecond, "second"},
	}
	for _, p := range parts {
		if p.raw == "" {
			continue
		}
		n, _ := strconv.Atoi(p.raw)
		if n < p.min || n > p.max {
			return Value{}, fmt.Errorf("%w: %s %d outside [%d, %d]", ErrInvalid, p.name, n, p.min, p.max)
		}
		*p.dst = n
		v.Precision = p.prec
	}
	if m[4] != "" && m[3] == "" {
		return Value{}, fmt.Errorf("%w: hour without day", ErrInvalid)
	}

	if off := m[7]; off != "" {
		if v.Precision < PrecisionHour {
			return Value{}, fmt.Errorf("%w: offset without time", ErrInvalid)
		}
		v.HasOffset = true
		if off != "Z" {
			om := offsetPattern.FindStringSubmatch(off)
			if om == nil {
				return Value{}, fmt.Errorf("%w: offset %q", ErrInvalid, off)
			}
			v.OffsetHour, _ = strconv.Atoi(om[1])
			if om[2] != "" {
				v.OffsetMinute, _ = strconv.Atoi(om[2])
			}
			if v.OffsetHour < -23 || v.OffsetHour > 23 || v.OffsetMinute > 59 {
				return Value{}, fmt.Errorf("%w: offset %q out of range", ErrInvalid, off)
			}
		}
	}
	return v, nil
}

// First completes omitted components with their minimum.
func (v Value) First() Timestamp {
	t := Timestamp{Year: v.Year, Month: 1, Day: 1, offset: v.offset()}
	if v.Precision >= PrecisionMonth {
		t.Month = v.Month
	}
	if v.Precision >= PrecisionDay {
		t.Day = v.Day
	}
	if v.Precision >= PrecisionHour {
		t.Hour = v.Hour
	}
	if v.Precision >= PrecisionMinute {
		t.Minute = v.Minute
	}
	if v.Precision >= PrecisionSecond {
		t.Second = v.Second
	}
	return t
}

// Last completes omitted components with their maximum.
func (v Value) Last() Timestamp {
	t := Timestamp{Year: v.Year, Month: 12, Hour: 23, Minute: 59, Second: 59, offset: v.offset()}
	if v.Precision >= PrecisionMonth {
		t.Month = v.Month
	}
	t.Day = LastDayOfMonth(v.Year, t.Month)
	if v.Precision >= PrecisionDay {
		t.Day = v.Day
	}
	if v.Precision >= PrecisionHour {
		t.Hour = v.Hour
	}
	if v.Precision >= PrecisionMinute {
		t.Minute = v.Minute
	}
	if v.Precision >= PrecisionSecond {
		t.Second = v.Second
	}
	return t
}

// Prefix renders v in ISO form up to its precision, e.g. "2020-05" or
// "2020-05-01T10". Every ISO string denoting an instant within v sorts at or
// after it.
func (v Value) Prefix() string {
	t := v.First()
	s := t.ISO()
	cut := map[Precision]int{
		PrecisionYear:   len(s) - len("-01-01T00:00:00"),
		PrecisionMonth:  len(s) - len("-01T00:00:00"),
		PrecisionDay:    len(s) - len("T00:00:00"),
		PrecisionHour:   len(s) - len(":00:00"),
		PrecisionMinute: len(s) - len(":00"),
		PrecisionSecond: len(s),
	}
	return s[:cut[v.Precision]]
}

func (v Value) offset() string {
	if !v.HasOffset {
		return "+00:00"
	}
	sign := '+'
	h := v.OffsetHour
	if h < 0 {
		sign, h = '-', -h
	}
	return fmt.Sprintf("%c%02d:%02d", sign, h, v.OffsetMinute)
}

// Timestamp is a fully specified date-time in its stated offset.
type Timestamp struct {
	Year   int64
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
	offset string
}

// String renders the canonical "YYYY-MM-DD HH:MM:SS" form.
func (t Timestamp) String() string {
	year := fmt.Sprintf("%04d", t.Year)
	if t.Year < 0 {
		year = fmt.Sprintf("-%04d", -t.Year)
	}
	return fmt.Sprintf("%s-%02d-%02d %02d:%02d:%02d", year, t.Month, t.Day, t.Hour, t.Minute, t.Second)
}

// ISO renders "YYYY-MM-DDTHH:MM:SS", which orders like stored ISO values.
func (t Timestamp) ISO() string {
	s := t.String()
	i := len(s) - len("00:00:00") - 1
	return s[:i] + "T" + s[i+1:]
}

// Offset returns the stated offset, "+00:00" when none was given.
func (t Timestamp) Offset() string {
	if t.offset == "" {
		return "+00:00"
	}
	return t.offset
}

// Time returns the wall clock of t as a UTC time, which is how stored
// timestamps are compared. Day overflow (e.g. Feb 31) normalizes forward.
func (t Timestamp) Time() time.Time {
	return time.Date(int(t.Year), time.Month(t.Month), t.Day, t.Hour, t.Minute, t.Second, 0, time.UTC)
}

// IsLeapYear applies the Gregorian rule.
func IsLeapYear(year int64) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// LastDayOfMonth returns the number of days in month of year.
func LastDayOfMonth(year int64, month int) int {
	switch month {
	case 2:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}
