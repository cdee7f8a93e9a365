package mapping

import (
	"sort"

	"mangle/internal/engine/model"
)

// Entry is one row of a finished mapping: the original symbol, its new name
// and, for relocated members, the original name of the class it moved to.
type Entry struct {
	Kind     model.SymbolKind
	Owner    string
	Name     string
	Desc     string
	NewName  string
	NewOwner string
}

// Changed reports whether the entry renames or moves anything.
func (e Entry) Changed() bool {
	return e.NewName != e.Name || e.NewOwner != ""
}

// Entries merges both tables into one row per symbol, classes first, then
// sorted by owner, name and descriptor.
func Entries(renames *Renames, relocations *Relocations) []Entry {
	rows := make(map[model.SymbolKey]*Entry)
	get := func(key model.SymbolKey) *Entry {
		e, ok := rows[key]
		if !ok {
			e = &Entry{Kind: key.Kind, Owner: key.Owner, Name: key.Name, Desc: key.Desc, NewName: key.Name}
			if key.Kind == model.KindClass {
				e.Name, e.NewName = key.Owner, key.Owner
			}
			rows[key] = e
		}
		return e
	}
	if renames != nil {
		for _, key := range renames.Keys() {
			name, _ := renames.Lookup(key)
			get(key).NewName = name
		}
	}
	if relocations != nil {
		for _, key := range relocations.Keys() {
			owner, _ := relocations.Lookup(key)
			get(key).NewOwner = owner
		}
	}

	out := make([]Entry, 0, len(rows))
	for _, e := range rows {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.Kind == model.KindClass) != (b.Kind == model.KindClass) {
			return a.Kind == model.KindClass
		}
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Desc < b.Desc
	})
	return out
}
