package pgcopy

import (
	"time"

	apperrors "github.com/fluxload/fluxload/internal/errors"
)

// Epoch is the PostgreSQL timestamp epoch. All timestamps travel on the wire
// as signed microsecond offsets from this instant; no timezone survives
// encoding.
var Epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

const epochUnixSeconds int64 = 946684800

// Bounds on the whole-second part of the delta such that the microsecond
// value still fits in int64.
const (
	maxDeltaSeconds = (1<<63 - 1) / 1_000_000
	minDeltaSeconds = -(1 << 63) / 1_000_000
)

// EpochMicros returns the number of whole microseconds between t and Epoch.
// The result is negative for instants before the epoch. Deltas outside the
// signed 64-bit microsecond range are a defined failure, never a silent
// truncation.
func EpochMicros(t time.Time) (int64, error) {
	secs := t.Unix() - epochUnixSeconds
	if secs >= maxDeltaSeconds || secs <= minDeltaSeconds {
		return 0, apperrors.NewOverflowError("timestamp " + t.UTC().Format(time.RFC3339) + " exceeds the 64-bit microsecond range")
	}
	return secs*1_000_000 + int64(t.Nanosecond())/1_000, nil
}
