package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TripEvent is one stop_times row joined with its trip, route and stop.
// Times are kept as elapsed seconds since the start of the service day, so
// values past 24h represent post-midnight trips of the previous day.
type TripEvent struct {
	TripID         string
	RouteID        string
	RouteShortName string
	RouteLongName  string
	ServiceID      string
	TripHeadsign   *string

	StopID   string
	StopCode *string
	StopName string
	StopLat  float64
	StopLon  float64

	// Times are nil for stop_times rows left blank by the feed
	// (untimed stops between timepoints).
	DepartureSeconds *int
	ArrivalSeconds   *int

	// ShapeDistTraveled is nil when the feed does not carry it for this stop.
	ShapeDistTraveled *float64
}

// Service returns the calendar the event's trip runs on.
func (e TripEvent) Service() (ServiceDay, bool) {
	return ParseServiceDay(e.ServiceID)
}

// Route returns the grouping key used by the route-level reports.
func (e TripEvent) Route() RouteKey {
	return RouteKey{LongName: e.RouteLongName, ShortName: e.RouteShortName}
}

// RouteKey groups route-level reports. Two routes sharing both names are
// reported as one.
type RouteKey struct {
	LongName  string
	ShortName string
}

// Less orders route keys by long name, then short name.
func (k RouteKey) Less(other RouteKey) bool {
	if k.LongName != other.LongName {
		return k.LongName < other.LongName
	}
	return k.ShortName < other.ShortName
}

var errEmptyTime = errors.New("empty time value")

// ParseElapsed converts a stop time into seconds since the start of the
// service day. It accepts the GTFS "HH:MM:SS" form (hours may exceed 23),
// the "N days HH:MM:SS" form written to the document store, and the
// "N day(s) HH:MM:SS" interval text Postgres produces.
func ParseElapsed(value string) (int, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, errEmptyTime
	}

	days := 0
	if fields := strings.Fields(s); len(fields) == 3 && strings.HasPrefix(fields[1], "day") {
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return 0, fmt.Errorf("invalid day count in %q: %w", value, err)
		}
		days = n
		s = fields[2]
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	var hms [3]int
	for i, p := range parts {
		// MySQL TIME values may carry fractional seconds
		if i == 2 {
			p, _, _ = strings.Cut(p, ".")
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time %q", value)
		}
		hms[i] = n
	}
	return days*86400 + hms[0]*3600 + hms[1]*60 + hms[2], nil
}

// FormatClock renders elapsed seconds as "HH:MM:SS" with hours allowed past 23.
func FormatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// FormatElapsedDays renders elapsed seconds in the document store form,
// e.g. 88200 -> "1 days 00:30:00" and 29100 -> "0 days 08:05:00".
func FormatElapsedDays(seconds int) string {
	days := seconds / 86400
	return fmt.Sprintf("%d days %s", days, FormatClock(seconds%86400))
}

// DisplayTime strips the "N days" prefix from a stored time, keeping the
// clock part. Already-short values are returned unchanged.
func DisplayTime(stored string) string {
	if !strings.Contains(stored, "days") {
		return stored
	}
	fields := strings.Fields(stored)
	if len(fields) == 0 {
		return stored
	}
	return fields[len(fields)-1]
}
