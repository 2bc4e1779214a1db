// Package types provides core data types for fluxload.
package types

import "time"

// Row is a single sensor reading destined for the metrics table.
// Rows are produced by the generator and consumed exactly once by the
// stream builder or a row-based sink; they are never mutated.
type Row struct {
	// Created is the absolute reading time (microsecond resolution on the wire)
	Created time.Time `json:"created"`

	// SensorID identifies the emitting sensor, in [1, MaxSensors]
	SensorID int32 `json:"sensor_id"`

	// Temperature is the reading in degrees, carrying 2 fractional digits
	Temperature float64 `json:"temperature"`
}
