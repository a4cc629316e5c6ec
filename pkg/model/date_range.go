package model

import (
	"encoding/json"
	"time"
)

const DateLayout = "2006-01-02"

// DateRange is a half-open interval [start, end) of calendar dates in UTC.
type DateRange struct {
	start time.Time
	end   time.Time
}

func NewDateRange(start, end time.Time) (DateRange, error) {
	s, e := truncateToDate(start), truncateToDate(end)
	if !s.Before(e) {
		return DateRange{}, newValidationError(KindInvalidDateRange, "end_date", e.Format(DateLayout),
			"must be after start date "+s.Format(DateLayout))
	}
	return DateRange{start: s, end: e}, nil
}

func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, newValidationError(KindInvalidDateRange, "start_date", start, "must be formatted as YYYY-MM-DD")
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, newValidationError(KindInvalidDateRange, "end_date", end, "must be formatted as YYYY-MM-DD")
	}
	return NewDateRange(s, e)
}

// truncateToDate keeps the calendar date the caller expressed, dropping the
// clock and location.
func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (r DateRange) Start() time.Time { return r.start }
func (r DateRange) End() time.Time   { return r.end }

func (r DateRange) Nights() int {
	return int(r.end.Sub(r.start).Hours() / 24)
}

func (r DateRange) Overlaps(other DateRange) bool {
	return r.start.Before(other.end) && r.end.After(other.start)
}

func (r DateRange) Contains(date time.Time) bool {
	d := truncateToDate(date)
	return !d.Before(r.start) && d.Before(r.end)
}

func (r DateRange) ContainsRange(other DateRange) bool {
	return !other.start.Before(r.start) && !other.end.After(r.end)
}

func (r DateRange) IsFuture(now time.Time) bool {
	return r.start.After(truncateToDate(now.UTC()))
}

func (r DateRange) IsPast(now time.Time) bool {
	return !r.end.After(truncateToDate(now.UTC()))
}

func (r DateRange) IsActive(now time.Time) bool {
	return r.Contains(now.UTC())
}

func (r DateRange) Equal(other DateRange) bool {
	return r.start.Equal(other.start) && r.end.Equal(other.end)
}

func (r DateRange) String() string {
	return "[" + r.start.Format(DateLayout) + ", " + r.end.Format(DateLayout) + ")"
}

type dateRangeJSON struct {
	Start string `json:"start_date"`
	End   string `json:"end_date"`
}

func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(dateRangeJSON{Start: r.start.Format(DateLayout), End: r.end.Format(DateLayout)})
}

func (r *DateRange) UnmarshalJSON(data []byte) error {
	var raw dateRangeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDateRange(raw.Start, raw.End)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
