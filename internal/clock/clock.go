package clock

import "time"

// Clock abstracts wall-clock time so transforms are testable.
type Clock interface {
	Now() time.Time
}
