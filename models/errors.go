package models

import "errors"

// ErrStopNotFound is returned when no timetable document exists for a stop_id.
var ErrStopNotFound = errors.New("stop not found")
