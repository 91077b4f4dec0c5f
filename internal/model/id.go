package model

import "github.com/oklog/ulid/v2"

// NewID returns a ULID string. Published poems are keyed by it so the
// archive sorts by creation time.
func NewID() string {
	return ulid.Make().String()
}
