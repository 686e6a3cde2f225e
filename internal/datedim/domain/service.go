package domain

import (
	"context"
	"time"
)

// Service builds and resolves the calendar dimension.
type Service interface {
	// Ensure inserts one row per distinct calendar date not yet present.
	// Zero timestamps are ignored. Returns the number of rows created.
	Ensure(ctx context.Context, timestamps []time.Time) (int, error)
	// Lookup returns the dimension row for the timestamp's calendar date,
	// or nil when it has never been observed.
	Lookup(ctx context.Context, t time.Time) (*Date, error)
}
