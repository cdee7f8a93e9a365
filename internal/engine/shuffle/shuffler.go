// Package shuffle reorders declarations inside each class.
package shuffle

import (
	"log/slog"
	"math/rand/v2"

	"mangle/internal/engine/model"
)

type Options struct {
	Fields  bool
	Methods bool
}

// Shuffler permutes field and method order. Declaration order carries no
// meaning for loading or linking, so only the layout changes.
type Shuffler struct {
	rng  *rand.Rand
	opts Options
}

func New(rng *rand.Rand, opts Options) *Shuffler {
	return &Shuffler{rng: rng, opts: opts}
}

// Apply shuffles every class and returns the number of classes touched.
func (s *Shuffler) Apply(archive *model.Archive) int {
	touched := 0
	for _, c := range archive.Classes {
		changed := false
		if s.opts.Fields && len(c.Fields) > 1 {
			s.rng.Shuffle(len(c.Fields), func(i, j int) { c.Fields[i], c.Fields[j] = c.Fields[j], c.Fields[i] })
			changed = true
		}
		if s.opts.Methods && len(c.Methods) > 1 {
			s.rng.Shuffle(len(c.Methods), func(i, j int) { c.Methods[i], c.Methods[j] = c.Methods[j], c.Methods[i] })
			changed = true
		}
		if changed {
			touched++
		}
	}
	slog.Debug("declarations shuffled", "stage", "shuffle", "classes", touched)
	return touched
}
