package app

import "time"

// Setting is a persisted key-value pair.
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
