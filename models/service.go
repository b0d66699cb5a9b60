package models

import (
	"strconv"
	"strings"
)

// ServiceDay identifies one of the three weekly calendars a trip runs on.
type ServiceDay uint8

const (
	Weekday  ServiceDay = 1
	Saturday ServiceDay = 2
	Sunday   ServiceDay = 3
)

// ServiceDays lists the calendars in report order.
func ServiceDays() []ServiceDay {
	return []ServiceDay{Weekday, Saturday, Sunday}
}

// ParseServiceDay maps a raw service_id value to its calendar.
// The second return value is false for anything outside 1/2/3.
func ParseServiceDay(raw string) (ServiceDay, bool) {
	switch strings.TrimSpace(raw) {
	case "1":
		return Weekday, true
	case "2":
		return Saturday, true
	case "3":
		return Sunday, true
	}
	return 0, false
}

// ID returns the service_id as stored in the source ("1", "2" or "3").
func (d ServiceDay) ID() string {
	return strconv.Itoa(int(d))
}

func (d ServiceDay) String() string {
	switch d {
	case Weekday:
		return "weekday"
	case Saturday:
		return "saturday"
	case Sunday:
		return "sunday"
	}
	return "unknown"
}

// combinedLabel is how the combined scope is written in snapshot files.
const combinedLabel = "4"

// ServiceScope selects the trips a report is computed over: a single
// calendar, or all three combined.
type ServiceScope struct {
	day      ServiceDay
	combined bool
}

// Combined is the whole-week scope.
func Combined() ServiceScope {
	return ServiceScope{combined: true}
}

// Only restricts a report to a single calendar.
func Only(day ServiceDay) ServiceScope {
	return ServiceScope{day: day}
}

// ParseServiceScope normalizes the service_id request parameter. Empty,
// "4" and any unrecognized value mean the combined scope.
func ParseServiceScope(raw string) ServiceScope {
	if day, ok := ParseServiceDay(raw); ok {
		return Only(day)
	}
	return Combined()
}

// ParseScopeLabel reads a scope written by Label. Unlike ParseServiceScope
// it rejects unknown values.
func ParseScopeLabel(raw string) (ServiceScope, bool) {
	if strings.TrimSpace(raw) == combinedLabel {
		return Combined(), true
	}
	day, ok := ParseServiceDay(raw)
	if !ok {
		return ServiceScope{}, false
	}
	return Only(day), true
}

// IsCombined reports whether the scope spans all calendars.
func (s ServiceScope) IsCombined() bool {
	return s.combined
}

// Day returns the single calendar of the scope, if any.
func (s ServiceScope) Day() (ServiceDay, bool) {
	if s.combined {
		return 0, false
	}
	return s.day, true
}

// Includes reports whether a trip on the given raw service_id belongs to
// the scope. The combined scope includes every trip.
func (s ServiceScope) Includes(serviceID string) bool {
	if s.combined {
		return true
	}
	day, ok := ParseServiceDay(serviceID)
	return ok && day == s.day
}

// Label is the snapshot file value: "1", "2", "3" or "4".
func (s ServiceScope) Label() string {
	if s.combined {
		return combinedLabel
	}
	return s.day.ID()
}

// ReportScopes lists every scope a snapshot holds rows for.
func ReportScopes() []ServiceScope {
	return []ServiceScope{Only(Weekday), Only(Saturday), Only(Sunday), Combined()}
}

// DefaultLimit is used when the limit parameter is missing or invalid.
const DefaultLimit = 20

// Limit caps the number of ranked rows a report returns.
type Limit struct {
	n         int
	unbounded bool
}

// LimitOf returns a bounded limit. Non-positive values fall back to DefaultLimit.
func LimitOf(n int) Limit {
	if n <= 0 {
		n = DefaultLimit
	}
	return Limit{n: n}
}

// Unbounded returns every ranked row.
func Unbounded() Limit {
	return Limit{unbounded: true}
}

// ParseLimit normalizes the limit request parameter. It never fails:
// "all" (any case) is unbounded, anything else that is not a positive
// integer becomes DefaultLimit.
func ParseLimit(raw string) Limit {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return LimitOf(DefaultLimit)
	}
	if value == "all" {
		return Unbounded()
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return LimitOf(DefaultLimit)
	}
	return LimitOf(n)
}

// IsUnbounded reports whether the limit keeps every row.
func (l Limit) IsUnbounded() bool {
	return l.unbounded
}

// Value returns the bound; zero when unbounded.
func (l Limit) Value() int {
	if l.unbounded {
		return 0
	}
	if l.n <= 0 {
		return DefaultLimit
	}
	return l.n
}

// Cap returns how many of total rows survive the limit.
func (l Limit) Cap(total int) int {
	if l.unbounded || total <= l.Value() {
		return total
	}
	return l.Value()
}
