package mapping

import (
	"log/slog"
	"strings"

	"mangle/internal/engine/model"
	"mangle/internal/engine/names"
)

// Names that must never be issued to a method: overriding a final or native
// Object method by accident fails verification.
var objectMethodNames = []string{
	"wait", "notify", "notifyAll", "getClass", "hashCode", "equals", "clone", "toString", "finalize",
}

type Options struct {
	Classes bool
	Fields  bool
	Methods bool
}

type Suppliers struct {
	Classes names.Supplier
	Fields  names.Supplier
	Methods names.Supplier
}

type bucketKey struct {
	kind  model.SymbolKind
	owner string
	desc  string
}

// Generator fills a Renames table for one archive. A Generator is single use.
type Generator struct {
	archive   *model.Archive
	index     *model.Index
	policy    *Policy
	suppliers Suppliers
	opts      Options

	renames  *Renames
	assigned map[bucketKey]map[string]bool
	classes  *names.Scope
	logger   *slog.Logger
}

func NewGenerator(archive *model.Archive, policy *Policy, suppliers Suppliers, opts Options) *Generator {
	return &Generator{
		archive:   archive,
		index:     policy.Index(),
		policy:    policy,
		suppliers: suppliers,
		opts:      opts,
		renames:   NewRenames(),
		assigned:  make(map[bucketKey]map[string]bool),
		classes:   names.NewScope(),
		logger:    slog.Default().With("stage", "mapping"),
	}
}

// Generate walks classes supertypes-first so that inherited renames are known
// before a subclass claims names of its own.
func (g *Generator) Generate() (*Renames, error) {
	classes := make(map[string]*model.Class, len(g.archive.Classes))
	for _, c := range g.archive.Classes {
		classes[c.Name] = c
	}
	if g.opts.Classes {
		g.seedClassNames()
	}

	for _, name := range g.index.HierarchyOrder() {
		c := classes[name]
		if c == nil || !g.policy.ClassRenameable(c) {
			continue
		}
		if g.opts.Classes {
			if err := g.renameClass(c); err != nil {
				return nil, err
			}
		}
		if g.opts.Fields && len(c.Fields) > 0 {
			if err := g.renameMembers(c.Name, model.KindField); err != nil {
				return nil, err
			}
		}
		if g.opts.Methods && len(c.Methods) > 0 {
			if err := g.renameMembers(c.Name, model.KindMethod); err != nil {
				return nil, err
			}
		}
	}

	g.logger.Debug("mappings generated", "entries", g.renames.Len())
	return g.renames, nil
}

// seedClassNames reserves the simple names of classes that keep their name.
// Generated simple names are unique across the whole program, not per package.
func (g *Generator) seedClassNames() {
	for _, c := range g.archive.Classes {
		if g.policy.ClassRenameable(c) {
			continue
		}
		_, simple := splitClassName(c.Name)
		g.classes.Add(simple)
	}
}

func (g *Generator) renameClass(c *model.Class) error {
	pkg, _ := splitClassName(c.Name)
	simple := g.suppliers.Classes.Next(g.classes)
	newName := simple
	if pkg != "" {
		newName = pkg + "/" + simple
	}
	return g.renames.Put(model.ClassKey(c.Name), newName)
}

func (g *Generator) renameMembers(owner string, kind model.SymbolKind) error {
	var order []string
	buckets := make(map[string][]model.Member)
	for _, m := range g.declared(kind, owner) {
		key := memberKey(kind, owner, m.Name, m.Desc)
		if g.pinned(kind, owner, m.Name, m.Desc) {
			continue
		}
		if _, done := g.renames.Lookup(key); done {
			continue
		}
		if _, ok := buckets[m.Desc]; !ok {
			order = append(order, m.Desc)
		}
		buckets[m.Desc] = append(buckets[m.Desc], m)
	}

	supplier := g.suppliers.Fields
	if kind == model.KindMethod {
		supplier = g.suppliers.Methods
	}
	for _, desc := range order {
		bucket := buckets[desc]
		scope := names.NewScope(g.reserved(kind, owner, desc)...)
		issued := names.Take(supplier, scope, len(bucket))
		for i, m := range bucket {
			if err := g.renames.Put(memberKey(kind, owner, m.Name, m.Desc), issued[i]); err != nil {
				return err
			}
			g.markAssigned(kind, owner, desc, issued[i])
			if kind == model.KindMethod && !m.Access.IsPrivate() {
				g.propagate(owner, m, issued[i])
			}
		}
	}
	return nil
}

// reserved collects the names a new member of (kind, desc) on owner must not
// take: names already handed out anywhere in its family and the names of
// family members that keep theirs.
func (g *Generator) reserved(kind model.SymbolKind, owner, desc string) []string {
	var out []string
	if kind == model.KindMethod {
		out = append(out, objectMethodNames...)
	}
	for _, member := range g.index.Family(owner) {
		for name := range g.assigned[bucketKey{kind, member, desc}] {
			out = append(out, name)
		}
		for _, m := range g.declared(kind, member) {
			if m.Desc == desc && g.pinned(kind, member, m.Name, m.Desc) {
				out = append(out, m.Name)
			}
		}
	}
	return out
}

// propagate records the new name of a method for every subclass so overrides
// keep matching.
func (g *Generator) propagate(owner string, m model.Member, newName string) {
	for _, sub := range g.index.Subclasses(owner) {
		if g.policy.Filter().ExcludesClassName(sub) {
			continue
		}
		if _, declared := g.index.MethodAccess(sub, m.Name, m.Desc); declared && g.pinned(model.KindMethod, sub, m.Name, m.Desc) {
			continue
		}
		key := model.MethodKey(sub, m.Name, m.Desc)
		if got, added := g.renames.PutIfAbsent(key, newName); !added {
			if got != newName {
				g.logger.Warn("conflicting inherited rename", "symbol", key.String(), "kept", got, "dropped", newName)
			}
			continue
		}
		g.markAssigned(model.KindMethod, sub, m.Desc, newName)
	}
}

func (g *Generator) markAssigned(kind model.SymbolKind, owner, desc, name string) {
	k := bucketKey{kind, owner, desc}
	set, ok := g.assigned[k]
	if !ok {
		set = make(map[string]bool)
		g.assigned[k] = set
	}
	set[name] = true
}

func (g *Generator) declared(kind model.SymbolKind, owner string) []model.Member {
	if kind == model.KindField {
		return g.index.Fields(owner)
	}
	return g.index.Methods(owner)
}

func (g *Generator) pinned(kind model.SymbolKind, owner, name, desc string) bool {
	if kind == model.KindField {
		return g.policy.fieldPinned(owner, name, desc)
	}
	return g.policy.methodPinned(owner, name, desc)
}

func memberKey(kind model.SymbolKind, owner, name, desc string) model.SymbolKey {
	if kind == model.KindField {
		return model.FieldKey(owner, name, desc)
	}
	return model.MethodKey(owner, name, desc)
}

// splitClassName splits an internal name into package and simple name.
func splitClassName(name string) (string, string) {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
