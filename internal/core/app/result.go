package app

import (
	"time"

	"mangle/internal/data/history"
	"mangle/internal/engine/mapping"
	"mangle/internal/engine/model"
)

// Result summarizes one pass. Entries is the mapping flattened before the
// per-run tables are dropped.
type Result struct {
	RunID    string
	Seed     uint64
	Started  time.Time
	Duration time.Duration
	Input    string
	Output   string

	Classes          int
	ClassesRenamed   int
	FieldsRenamed    int
	MethodsRenamed   int
	FieldsRelocated  int
	MethodsRelocated int
	ConstantsFolded  int
	Declarations     int
	References       int
	ClassesShuffled  int

	Entries []mapping.Entry
}

func (r Result) Renamed() int {
	return r.ClassesRenamed + r.FieldsRenamed + r.MethodsRenamed
}

func (r Result) Relocated() int {
	return r.FieldsRelocated + r.MethodsRelocated
}

// countRenames tallies entries whose name changed, per symbol kind.
func (r *Result) countRenames() {
	for _, e := range r.Entries {
		if e.NewName == e.Name {
			continue
		}
		switch e.Kind {
		case model.KindClass:
			r.ClassesRenamed++
		case model.KindField:
			r.FieldsRenamed++
		case model.KindMethod:
			r.MethodsRenamed++
		}
	}
}

// HistoryRun converts the result for the run store.
func (r Result) HistoryRun() history.Run {
	return history.Run{
		ID:         r.RunID,
		Timestamp:  r.Started.UTC(),
		Seed:       r.Seed,
		Input:      r.Input,
		Output:     r.Output,
		Duration:   r.Duration,
		Classes:    r.Classes,
		Renamed:    r.Renamed(),
		Relocated:  r.Relocated(),
		Shuffled:   r.ClassesShuffled,
		References: r.References,
		Entries:    r.Entries,
	}
}

// fromHistory rebuilds the parts of a result the store keeps. Per-kind counts
// are recomputed from the entries.
func fromHistory(run history.Run) Result {
	res := Result{
		RunID:           run.ID,
		Seed:            run.Seed,
		Started:         run.Timestamp,
		Duration:        run.Duration,
		Input:           run.Input,
		Output:          run.Output,
		Classes:         run.Classes,
		References:      run.References,
		ClassesShuffled: run.Shuffled,
		Entries:         run.Entries,
	}
	res.countRenames()
	for _, e := range run.Entries {
		if e.NewOwner == "" {
			continue
		}
		if e.Kind == model.KindField {
			res.FieldsRelocated++
		} else {
			res.MethodsRelocated++
		}
	}
	return res
}
