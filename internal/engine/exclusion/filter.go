// Package exclusion decides which classes and members are protected from transformation.
package exclusion

import (
	"strings"

	"mangle/internal/engine/model"
)

// DefaultReservedPrefixes are runtime-library packages that are never transformed.
var DefaultReservedPrefixes = []string{"kotlin/"}

// Filter answers exclusion queries with exact set lookups. It is immutable after New.
//
// Patterns have two granularities:
//
//	app/Secret               the class
//	app/Secret.token         every member of that name
//	app/Secret.token.I       only the member with that descriptor
type Filter struct {
	patterns         map[string]struct{}
	reservedPrefixes []string
}

func New(patterns, reservedPrefixes []string) *Filter {
	f := &Filter{
		patterns:         make(map[string]struct{}, len(patterns)),
		reservedPrefixes: make([]string, 0, len(reservedPrefixes)),
	}
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			f.patterns[p] = struct{}{}
		}
	}
	for _, p := range reservedPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			f.reservedPrefixes = append(f.reservedPrefixes, p)
		}
	}
	return f
}

// ExcludesClass reports whether the class itself must keep its name and layout.
func (f *Filter) ExcludesClass(c *model.Class) bool {
	return f.ExcludesClassName(c.Name)
}

func (f *Filter) ExcludesClassName(name string) bool {
	for _, prefix := range f.reservedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return f.has(name)
}

func (f *Filter) ExcludesField(owner *model.Class, field *model.Field) bool {
	return f.ExcludesMember(owner.Name, field.Name, field.Desc)
}

func (f *Filter) ExcludesMethod(owner *model.Class, m *model.Method) bool {
	return f.ExcludesMember(owner.Name, m.Name, m.Desc)
}

// ExcludesMember matches "<owner>.<name>" and "<owner>.<name>.<desc>".
func (f *Filter) ExcludesMember(owner, name, desc string) bool {
	member := owner + "." + name
	return f.has(member) || f.has(member+"."+desc)
}

func (f *Filter) has(key string) bool {
	_, ok := f.patterns[key]
	return ok
}

// Len is the number of configured patterns.
func (f *Filter) Len() int {
	return len(f.patterns)
}
