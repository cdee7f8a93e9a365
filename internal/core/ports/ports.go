// Package ports declares the boundaries between the obfuscation service and
// its driving and driven adapters.
package ports

import (
	"mangle/internal/data/history"
	"mangle/internal/engine/model"
)

// RunStore persists completed runs for later mapping export.
type RunStore interface {
	SaveRun(run history.Run) error
	LoadRun(id string) (history.Run, error)
	LatestRun() (history.Run, error)
	ListRuns(limit int) ([]history.Run, error)
}

// ModelCodec is the parser/serializer boundary: the engine never touches
// archive bytes itself.
type ModelCodec interface {
	ReadFile(path string) (*model.Archive, error)
	WriteFile(path string, archive *model.Archive) error
}
