package model

import "github.com/oklog/ulid/v2"

// NewID generates a new ULID string. Compile jobs, backtests and live
// deployments all draw ids from the same generator, so ids are unique
// across entity kinds for the lifetime of the process.
func NewID() string {
	return ulid.Make().String()
}
