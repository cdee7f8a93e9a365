// Package relocate moves static constants and self-contained static methods
// between public classes.
package relocate

import (
	"log/slog"
	"math/rand/v2"
	"slices"

	"mangle/internal/engine/mapping"
	"mangle/internal/engine/model"
)

// DefaultTrustedLibraries are the external packages whose classes are assumed
// public when referenced from a moved body.
var DefaultTrustedLibraries = []string{"java/**", "javax/**", "kotlin/**"}

const relocatedFieldAccess = model.AccPublic | model.AccStatic | model.AccFinal

type Options struct {
	Fields  bool
	Methods bool
	// Targets narrows the classes that may send or receive members; empty means all.
	Targets Patterns
	Trusted Patterns
}

type Stats struct {
	Available    int
	FieldsMoved  int
	FieldsFolded int
	MethodsMoved int
	NoTarget     int
	Ineligible   int
}

type Engine struct {
	archive      *model.Archive
	classes      map[string]*model.Class
	index        *model.Index
	policy       *mapping.Policy
	renames      *mapping.Renames
	relocations  *mapping.Relocations
	rng          *rand.Rand
	opts         Options
	vis          *visibility
	available    []*model.Class
	movedFields  map[*model.Field]bool
	movedMethods map[*model.Method]bool
	stats        Stats
	logger       *slog.Logger
}

// New prepares an engine over archive. renames must be complete: target
// collisions are checked on final names.
func New(archive *model.Archive, policy *mapping.Policy, renames *mapping.Renames, rng *rand.Rand, opts Options) *Engine {
	classes := make(map[string]*model.Class, len(archive.Classes))
	for _, c := range archive.Classes {
		classes[c.Name] = c
	}
	relocations := mapping.NewRelocations()
	e := &Engine{
		archive:     archive,
		classes:     classes,
		index:       policy.Index(),
		policy:      policy,
		renames:     renames,
		relocations: relocations,
		rng:         rng,
		opts:        opts,
		vis: &visibility{
			index:       policy.Index(),
			classes:     classes,
			relocations: relocations,
			trusted:     opts.Trusted,
		},
		movedFields:  make(map[*model.Field]bool),
		movedMethods: make(map[*model.Method]bool),
		logger:       slog.Default().With("stage", "relocate"),
	}
	e.available = e.collectAvailable()
	e.stats.Available = len(e.available)
	return e
}

// collectAvailable keeps public concrete classes whose whole hierarchy is known,
// so a moved member can neither be hidden by nor hide an unseen declaration.
func (e *Engine) collectAvailable() []*model.Class {
	var out []*model.Class
	for _, c := range e.archive.Classes {
		switch {
		case !c.Access.IsPublic(), c.IsInterface(), c.Access.Has(model.AccAnnotation):
			continue
		case e.policy.Filter().ExcludesClass(c), e.index.LeavesArchive(c.Name):
			continue
		case !e.opts.Targets.Empty() && !e.opts.Targets.Match(c.Name):
			continue
		}
		out = append(out, c)
	}
	return out
}

// Run moves fields first, then methods, and returns the relocation table.
func (e *Engine) Run() (*mapping.Relocations, error) {
	if len(e.available) < 2 {
		e.logger.Debug("not enough classes to relocate between", "available", len(e.available))
		return e.relocations, nil
	}
	if e.opts.Fields {
		if err := e.relocateFields(); err != nil {
			return nil, err
		}
	}
	if e.opts.Methods {
		if err := e.relocateMethods(); err != nil {
			return nil, err
		}
	}
	e.logger.Info("relocation finished",
		"fields", e.stats.FieldsMoved,
		"folded", e.stats.FieldsFolded,
		"methods", e.stats.MethodsMoved,
		"no_target", e.stats.NoTarget)
	return e.relocations, nil
}

func (e *Engine) Stats() Stats { return e.stats }

func (e *Engine) Relocations() *mapping.Relocations { return e.relocations }

func (e *Engine) relocateFields() error {
	for _, src := range e.available {
		for _, f := range slices.Clone(src.Fields) {
			if err := e.relocateField(src, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) relocateField(src *model.Class, f *model.Field) error {
	if e.movedFields[f] || !f.Access.Has(model.AccStatic, model.AccFinal) || !e.policy.FieldRenameable(src, f) {
		return nil
	}
	value, initializer, ok := constantValue(src, f)
	if !ok {
		e.stats.Ineligible++
		return nil
	}
	key := model.FieldKey(src.Name, f.Name, f.Desc)
	target := e.pickTarget(src, key)
	if target == nil {
		e.stats.NoTarget++
		e.logger.Debug("no relocation target", "symbol", key.String())
		return nil
	}

	if len(initializer) > 0 {
		clinit := src.Method("<clinit>", "()V")
		clinit.RemoveInstructions(initializer...)
		f.Value = value
		e.stats.FieldsFolded++
	}
	f.Access = model.Access(relocatedFieldAccess)
	src.RemoveField(f)
	target.Fields = append(target.Fields, f)
	e.movedFields[f] = true
	e.stats.FieldsMoved++
	return e.relocations.Put(key, target.Name)
}

// constantValue returns the field's constant. A constant assigned in the static
// initializer by a load immediately followed by the store is returned along
// with those two instructions so the caller can fold it.
func constantValue(c *model.Class, f *model.Field) (any, []model.Instruction, bool) {
	if f.Value != nil {
		return f.Value, nil, constantFits(f.Desc, f.Value)
	}
	clinit := c.Method("<clinit>", "()V")
	if clinit == nil {
		return nil, nil, false
	}
	for i, insn := range clinit.Instructions {
		put, ok := insn.(*model.FieldInsn)
		if !ok || put.Opcode != model.PUTSTATIC || put.Owner != c.Name || put.Name != f.Name || put.Desc != f.Desc {
			continue
		}
		if i == 0 {
			return nil, nil, false
		}
		ldc, ok := clinit.Instructions[i-1].(*model.LdcInsn)
		if !ok || !constantFits(f.Desc, ldc.Value) {
			return nil, nil, false
		}
		return ldc.Value, []model.Instruction{ldc, put}, true
	}
	return nil, nil, false
}

// constantFits reports whether value can be a ConstantValue of a field with desc.
func constantFits(desc string, value any) bool {
	switch value.(type) {
	case int32:
		switch desc {
		case "I", "S", "C", "B", "Z":
			return true
		}
	case int64:
		return desc == "J"
	case float32:
		return desc == "F"
	case float64:
		return desc == "D"
	case string:
		return desc == "Ljava/lang/String;"
	}
	return false
}

func (e *Engine) relocateMethods() error {
	for _, src := range e.available {
		for _, m := range slices.Clone(src.Methods) {
			if err := e.relocateMethod(src, m); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) relocateMethod(src *model.Class, m *model.Method) error {
	if e.movedMethods[m] || !e.moveable(src, m) {
		return nil
	}
	key := model.MethodKey(src.Name, m.Name, m.Desc)
	target := e.pickTarget(src, key)
	if target == nil {
		e.stats.NoTarget++
		e.logger.Debug("no relocation target", "symbol", key.String())
		return nil
	}
	m.Access = m.Access.WithVisibility(model.AccPublic) | model.Access(model.AccStatic)
	src.RemoveMethod(m)
	target.Methods = append(target.Methods, m)
	e.movedMethods[m] = true
	e.stats.MethodsMoved++
	return e.relocations.Put(key, target.Name)
}

// moveable is the relocation-safety predicate: the method must be a plain
// static method whose signature and body only touch public symbols and whose
// body has no dynamic call sites.
func (e *Engine) moveable(src *model.Class, m *model.Method) bool {
	if !m.Access.IsStatic() || m.Name == "<clinit>" ||
		m.Access.Has(model.AccAbstract) || m.Access.Has(model.AccSynchronized) {
		return false
	}
	if !e.policy.MethodRenameable(src, m) || !e.vis.methodDescPublic(m.Desc) {
		e.stats.Ineligible++
		return false
	}
	for _, insn := range m.Instructions {
		if !e.instructionSafe(src.Name, insn) {
			e.stats.Ineligible++
			return false
		}
	}
	return true
}

func (e *Engine) instructionSafe(from string, insn model.Instruction) bool {
	switch i := insn.(type) {
	case *model.InvokeDynamicInsn:
		return false
	case *model.FieldInsn:
		return e.vis.fieldRefPublic(from, i.Owner, i.Name, i.Desc)
	case *model.MethodInsn:
		return e.vis.methodRefPublic(from, i.Owner, i.Name, i.Desc)
	case *model.TypeInsn:
		return e.vis.internalNamePublic(i.Desc)
	case *model.LdcInsn:
		return e.vis.constantPublic(from, i.Value)
	default:
		return true
	}
}

// pickTarget draws uniformly among available classes that can take the member
// without a clash; nil when there is none.
func (e *Engine) pickTarget(src *model.Class, key model.SymbolKey) *model.Class {
	finalName := e.renames.MemberName(key)
	var candidates []*model.Class
	for _, t := range e.available {
		if t == src || e.clashes(t, key, finalName) {
			continue
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[e.rng.IntN(len(candidates))]
}

// clashes reports whether target already holds the identity, either under the
// current name or, anywhere in its hierarchy, under the final one.
func (e *Engine) clashes(target *model.Class, key model.SymbolKey, finalName string) bool {
	if e.declaresLive(target, key.Kind, key.Name, key.Desc) {
		return true
	}
	for _, name := range e.index.Family(target.Name) {
		c := e.classes[name]
		if c == nil {
			continue
		}
		for _, m := range liveMembers(c, key.Kind) {
			if m.Desc == key.Desc && e.finalName(key.Kind, c.Name, m.Name, m.Desc) == finalName {
				return true
			}
		}
	}
	return false
}

func (e *Engine) declaresLive(c *model.Class, kind model.SymbolKind, name, desc string) bool {
	if kind == model.KindField {
		return c.Field(name, desc) != nil
	}
	return c.Method(name, desc) != nil
}

// finalName is the name a member currently on owner will carry after renaming.
func (e *Engine) finalName(kind model.SymbolKind, owner, name, desc string) string {
	key := model.SymbolKey{Kind: kind, Owner: owner, Name: name, Desc: desc}
	if original, ok := e.relocations.OriginalOwner(key); ok {
		key = key.WithOwner(original)
	}
	return e.renames.MemberName(key)
}

func liveMembers(c *model.Class, kind model.SymbolKind) []model.Member {
	var out []model.Member
	if kind == model.KindField {
		for _, f := range c.Fields {
			out = append(out, model.Member{Name: f.Name, Desc: f.Desc, Access: f.Access})
		}
		return out
	}
	for _, m := range c.Methods {
		out = append(out, model.Member{Name: m.Name, Desc: m.Desc, Access: m.Access})
	}
	return out
}
