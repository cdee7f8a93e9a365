package relocate

import (
	"strings"

	"github.com/gobwas/glob"
)

// Patterns matches internal class names against path prefixes ("java/util")
// and globs ("java/**", "app/*Util").
type Patterns struct {
	items []compiledPattern
}

type compiledPattern struct {
	raw        string
	isWildcard bool
	glob       glob.Glob
}

// CompilePatterns returns the first glob that fails to compile as an error.
func CompilePatterns(raw []string) (Patterns, error) {
	out := Patterns{items: make([]compiledPattern, 0, len(raw))}
	for _, pattern := range raw {
		norm := strings.Trim(strings.TrimSpace(pattern), "/")
		if norm == "" {
			continue
		}
		cp := compiledPattern{
			raw:        norm,
			isWildcard: strings.ContainsAny(norm, "*?[]{}"),
		}
		if cp.isWildcard {
			g, err := glob.Compile(norm, '/')
			if err != nil {
				return Patterns{}, err
			}
			cp.glob = g
		}
		out.items = append(out.items, cp)
	}
	return out, nil
}

func (p Patterns) Empty() bool { return len(p.items) == 0 }

func (p Patterns) Match(name string) bool {
	for _, cp := range p.items {
		if cp.isWildcard {
			if cp.glob.Match(name) {
				return true
			}
			continue
		}
		if name == cp.raw || strings.HasPrefix(name, cp.raw+"/") {
			return true
		}
	}
	return false
}
