// Package names generates replacement identifiers.
package names

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

type Strategy string

const (
	StrategyRandom     Strategy = "random"
	StrategyAlphabetic Strategy = "alphabetic"
)

const (
	letters          = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerLetters     = "abcdefghijklmnopqrstuvwxyz"
	attemptsPerWidth = 32
)

// keywords of the source language; never issued.
var keywords = map[string]bool{
	"abstract": true, "assert": true, "boolean": true, "break": true, "byte": true,
	"case": true, "catch": true, "char": true, "class": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extends": true, "final": true, "finally": true, "float": true,
	"for": true, "goto": true, "if": true, "implements": true, "import": true,
	"instanceof": true, "int": true, "interface": true, "long": true, "native": true,
	"new": true, "package": true, "private": true, "protected": true, "public": true,
	"return": true, "short": true, "static": true, "strictfp": true, "super": true,
	"switch": true, "synchronized": true, "this": true, "throw": true, "throws": true,
	"transient": true, "try": true, "void": true, "volatile": true, "while": true,
	"true": true, "false": true, "null": true, "var": true, "yield": true,
	"record": true, "sealed": true, "permits": true, "_": true,
}

func IsKeyword(name string) bool {
	return keywords[name]
}

// Scope accumulates names issued for one request. Names in a scope are never
// issued again within it; other scopes are unaffected.
type Scope struct {
	names  map[string]struct{}
	cursor int
}

// NewScope starts a scope whose reserved names are treated as already issued.
func NewScope(reserved ...string) *Scope {
	s := &Scope{names: make(map[string]struct{}, len(reserved))}
	for _, r := range reserved {
		s.Add(r)
	}
	return s
}

func (s *Scope) Add(name string) {
	s.names[name] = struct{}{}
}

func (s *Scope) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}

func (s *Scope) Len() int {
	return len(s.names)
}

// Supplier hands out identifiers that are valid and unused within a scope.
type Supplier interface {
	// Next returns a fresh name and records it in scope.
	Next(scope *Scope) string
}

// Take requests n names from the supplier within scope, in issue order.
func Take(s Supplier, scope *Scope, n int) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.Next(scope))
	}
	return out
}

type Options struct {
	Strategy  Strategy
	MinLength int
	MaxLength int
	// LowerCase restricts names to lower-case letters; class names need this on
	// case-insensitive file systems.
	LowerCase bool
}

func New(opts Options, rng *rand.Rand) (Supplier, error) {
	alphabet := letters
	if opts.LowerCase {
		alphabet = lowerLetters
	}
	switch opts.Strategy {
	case StrategyRandom, "":
		if rng == nil {
			return nil, fmt.Errorf("random name strategy requires a random source")
		}
		minLen, maxLen := opts.MinLength, opts.MaxLength
		if minLen <= 0 {
			minLen = 1
		}
		if maxLen < minLen {
			maxLen = minLen
		}
		return &randomSupplier{rng: rng, alphabet: alphabet, minLen: minLen, maxLen: maxLen}, nil
	case StrategyAlphabetic:
		return &alphabeticSupplier{alphabet: alphabet}, nil
	default:
		return nil, fmt.Errorf("unknown name strategy %q", opts.Strategy)
	}
}

type randomSupplier struct {
	rng      *rand.Rand
	alphabet string
	minLen   int
	maxLen   int
}

// Next draws random names, widening once a width keeps colliding. Width may grow
// past maxLen when the scope is saturated, so the loop always terminates.
func (r *randomSupplier) Next(scope *Scope) string {
	width := r.minLen + r.rng.IntN(r.maxLen-r.minLen+1)
	for {
		for attempt := 0; attempt < attemptsPerWidth; attempt++ {
			name := r.draw(width)
			if !keywords[name] && !scope.Has(name) {
				scope.Add(name)
				return name
			}
		}
		width++
	}
}

func (r *randomSupplier) draw(width int) string {
	var b strings.Builder
	b.Grow(width)
	for i := 0; i < width; i++ {
		b.WriteByte(r.alphabet[r.rng.IntN(len(r.alphabet))])
	}
	return b.String()
}

// alphabeticSupplier issues the shortest free names in a, b, ..., z, aa, ab order.
type alphabeticSupplier struct {
	alphabet string
}

func (a *alphabeticSupplier) Next(scope *Scope) string {
	for {
		name := a.nth(scope.cursor)
		scope.cursor++
		if !keywords[name] && !scope.Has(name) {
			scope.Add(name)
			return name
		}
	}
}

// nth is the bijective base-len(alphabet) numeral for n.
func (a *alphabeticSupplier) nth(n int) string {
	base := len(a.alphabet)
	var buf []byte
	for n++; n > 0; n = (n - 1) / base {
		buf = append(buf, a.alphabet[(n-1)%base])
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}
