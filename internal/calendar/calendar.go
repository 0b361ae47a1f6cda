package calendar

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const layout = "2006-01-02"

// Day is a calendar date with no time-of-day component.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// Normalizer maps instants onto calendar days in one reference zone.
// Every day-boundary decision in the service goes through the same Normalizer.
type Normalizer struct {
	loc *time.Location
	now func() time.Time
}

func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc, now: time.Now}
}

// LoadNormalizer resolves an IANA zone name; empty means UTC.
func LoadNormalizer(zone string) (*Normalizer, error) {
	if zone == "" {
		return NewNormalizer(time.UTC), nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", zone, err)
	}
	return NewNormalizer(loc), nil
}

// WithClock returns a copy whose Today reads from now.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	return &Normalizer{loc: n.loc, now: now}
}

func (n *Normalizer) Location() *time.Location { return n.loc }

func (n *Normalizer) ToDay(instant time.Time) Day {
	y, m, d := instant.In(n.loc).Date()
	return Day{Year: y, Month: m, Day: d}
}

func (n *Normalizer) Today() Day { return n.ToDay(n.now()) }

// Start is midnight of d in the reference zone.
func (n *Normalizer) Start(d Day) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, n.loc)
}

func New(year int, month time.Month, day int) Day {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime takes the date fields of t as-is, without zone conversion.
func FromTime(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

func Parse(s string) (Day, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
	}
	return FromTime(t), nil
}

// ParseMonth accepts YYYY-MM and returns the first and last day of that month.
func ParseMonth(s string) (Day, Day, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Day{}, Day{}, fmt.Errorf("invalid month %q (expected YYYY-MM)", s)
	}
	first := FromTime(t)
	return first, FromTime(t.AddDate(0, 1, -1)), nil
}

func (d Day) utc() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Day) IsZero() bool { return d == Day{} }

func (d Day) AddDays(n int) Day { return FromTime(d.utc().AddDate(0, 0, n)) }

func (d Day) Prev() Day { return d.AddDays(-1) }

func (d Day) Next() Day { return d.AddDays(1) }

func (d Day) Before(o Day) bool { return d.utc().Before(o.utc()) }

func (d Day) After(o Day) bool { return d.utc().After(o.utc()) }

// DaysBetween returns b minus a in whole days.
func DaysBetween(a, b Day) int {
	return int(b.utc().Sub(a.utc()).Hours() / 24)
}

// Compare returns -1, 0 or +1, for use with slices.SortFunc.
func Compare(a, b Day) int {
	return a.utc().Compare(b.utc())
}

// Time returns midnight UTC of d, suitable for storage as a DATE.
func (d Day) Time() time.Time { return d.utc() }

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.utc().Format(layout)
}

func (d Day) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Day) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Day{}
		return nil
	}
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the day as YYYY-MM-DD; both DATE and TEXT columns accept it.
func (d Day) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func (d *Day) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Day{}
		return nil
	case time.Time:
		*d = FromTime(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("calendar: cannot scan %T into Day", src)
	}
}

func (d *Day) scanString(s string) error {
	if len(s) > len(layout) {
		s = s[:len(layout)]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
