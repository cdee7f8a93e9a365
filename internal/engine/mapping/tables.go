// Package mapping holds the per-run rename and relocation tables and the
// generator that fills the rename table.
package mapping

import (
	"mangle/internal/core/errors"
	"mangle/internal/engine/model"
)

// writeOnce is an insertion-ordered map whose keys can be assigned only once.
type writeOnce struct {
	values map[model.SymbolKey]string
	order  []model.SymbolKey
}

func newWriteOnce() writeOnce {
	return writeOnce{values: make(map[model.SymbolKey]string)}
}

func (w *writeOnce) put(table string, key model.SymbolKey, value string) error {
	if prev, ok := w.values[key]; ok {
		if prev == value {
			return nil
		}
		de := &errors.DomainError{Code: errors.CodeInvariant, Message: table + " key remapped"}
		return de.WithContext(errors.CtxSymbol, key.String()).
			WithContext("previous", prev).
			WithContext("next", value)
	}
	w.values[key] = value
	w.order = append(w.order, key)
	return nil
}

func (w *writeOnce) putIfAbsent(key model.SymbolKey, value string) (string, bool) {
	if prev, ok := w.values[key]; ok {
		return prev, false
	}
	w.values[key] = value
	w.order = append(w.order, key)
	return value, true
}

func (w *writeOnce) lookup(key model.SymbolKey) (string, bool) {
	v, ok := w.values[key]
	return v, ok
}

func (w *writeOnce) keys() []model.SymbolKey {
	return append([]model.SymbolKey(nil), w.order...)
}

// Renames maps original symbol keys to new simple names. Class keys map to a
// full internal name.
type Renames struct {
	w writeOnce
}

func NewRenames() *Renames {
	return &Renames{w: newWriteOnce()}
}

// Put records a rename; remapping a key to a different name is an invariant violation.
func (r *Renames) Put(key model.SymbolKey, name string) error {
	return r.w.put("rename", key, name)
}

// PutIfAbsent records a rename unless the key is already mapped and returns the
// name now in effect.
func (r *Renames) PutIfAbsent(key model.SymbolKey, name string) (string, bool) {
	return r.w.putIfAbsent(key, name)
}

func (r *Renames) Lookup(key model.SymbolKey) (string, bool) {
	return r.w.lookup(key)
}

// ClassName returns the new internal name of a class, or the name itself.
func (r *Renames) ClassName(name string) string {
	if n, ok := r.w.lookup(model.ClassKey(name)); ok {
		return n
	}
	return name
}

// MemberName returns the new name of a member, or its current name.
func (r *Renames) MemberName(key model.SymbolKey) string {
	if n, ok := r.w.lookup(key); ok {
		return n
	}
	return key.Name
}

func (r *Renames) Keys() []model.SymbolKey { return r.w.keys() }
func (r *Renames) Len() int                { return len(r.w.order) }

// Relocations maps original member keys to the original name of their new owner.
type Relocations struct {
	w       writeOnce
	reverse map[model.SymbolKey]string
}

func NewRelocations() *Relocations {
	return &Relocations{w: newWriteOnce(), reverse: make(map[model.SymbolKey]string)}
}

func (r *Relocations) Put(key model.SymbolKey, newOwner string) error {
	if err := r.w.put("relocation", key, newOwner); err != nil {
		return err
	}
	r.reverse[key.WithOwner(newOwner)] = key.Owner
	return nil
}

func (r *Relocations) Lookup(key model.SymbolKey) (string, bool) {
	return r.w.lookup(key)
}

// OriginalOwner reports where a relocated member came from, given its key on
// the new owner.
func (r *Relocations) OriginalOwner(moved model.SymbolKey) (string, bool) {
	owner, ok := r.reverse[moved]
	return owner, ok
}

func (r *Relocations) Keys() []model.SymbolKey { return r.w.keys() }
func (r *Relocations) Len() int                { return len(r.w.order) }
