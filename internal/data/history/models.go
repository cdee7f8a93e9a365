package history

import (
	"time"

	"mangle/internal/engine/mapping"
)

const SchemaVersion = 1

// Run is one completed pass. Entries is the flattened mapping captured before
// the per-run tables were discarded.
type Run struct {
	ID         string
	Timestamp  time.Time
	Seed       uint64
	Input      string
	Output     string
	Duration   time.Duration
	Classes    int
	Renamed    int
	Relocated  int
	Shuffled   int
	References int
	Entries    []mapping.Entry
}
