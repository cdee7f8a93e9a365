// Package rewrite applies finished rename and relocation tables to every
// declaration and every symbolic reference in an archive.
package rewrite

import (
	"log/slog"

	"mangle/internal/engine/mapping"
	"mangle/internal/engine/model"
)

const lambdaMetafactory = "java/lang/invoke/LambdaMetafactory"

type Stats struct {
	Declarations int
	References   int
}

// Rewriter resolves every reference against the index of the original layout,
// so table lookups always use original keys.
type Rewriter struct {
	index       *model.Index
	renames     *mapping.Renames
	relocations *mapping.Relocations
	stats       Stats
	logger      *slog.Logger
}

func New(index *model.Index, renames *mapping.Renames, relocations *mapping.Relocations) *Rewriter {
	if renames == nil {
		renames = mapping.NewRenames()
	}
	if relocations == nil {
		relocations = mapping.NewRelocations()
	}
	return &Rewriter{
		index:       index,
		renames:     renames,
		relocations: relocations,
		logger:      slog.Default().With("stage", "rewrite"),
	}
}

func (r *Rewriter) Stats() Stats { return r.stats }

// Apply rewrites archive in place. Class names change last because member keys
// are built from the original owner.
func (r *Rewriter) Apply(archive *model.Archive) {
	for _, c := range archive.Classes {
		for _, f := range c.Fields {
			r.renameDeclaration(model.FieldKey(c.Name, f.Name, f.Desc), &f.Name)
			f.Desc = r.desc(f.Desc)
		}
		for _, m := range c.Methods {
			for i, insn := range m.Instructions {
				m.Instructions[i] = r.instruction(insn)
			}
			r.renameDeclaration(model.MethodKey(c.Name, m.Name, m.Desc), &m.Name)
			m.Desc = r.desc(m.Desc)
		}
	}
	for _, c := range archive.Classes {
		if c.SuperName != "" {
			c.SuperName = r.renames.ClassName(c.SuperName)
		}
		for i, iface := range c.Interfaces {
			c.Interfaces[i] = r.renames.ClassName(iface)
		}
		if renamed := r.renames.ClassName(c.Name); renamed != c.Name {
			c.Name = renamed
			r.stats.Declarations++
		}
	}
	r.logger.Debug("archive rewritten", "declarations", r.stats.Declarations, "references", r.stats.References)
}

// renameDeclaration maps a member declared on key.Owner, which for moved
// members is the class it was moved to.
func (r *Rewriter) renameDeclaration(key model.SymbolKey, name *string) {
	if original, ok := r.relocations.OriginalOwner(key); ok {
		key = key.WithOwner(original)
	}
	if renamed := r.renames.MemberName(key); renamed != *name {
		*name = renamed
		r.stats.Declarations++
	}
}

func (r *Rewriter) instruction(insn model.Instruction) model.Instruction {
	switch i := insn.(type) {
	case *model.FieldInsn:
		i.Owner, i.Name = r.member(model.FieldKey(i.Owner, i.Name, i.Desc))
		i.Desc = r.desc(i.Desc)
	case *model.MethodInsn:
		i.Owner, i.Name = r.member(model.MethodKey(i.Owner, i.Name, i.Desc))
		i.Desc = r.desc(i.Desc)
	case *model.TypeInsn:
		i.Desc = model.RemapInternalName(i.Desc, r.className)
	case *model.LdcInsn:
		i.Value = r.constant(i.Value)
	case *model.InvokeDynamicInsn:
		r.invokeDynamic(i)
	}
	return insn
}

// member returns the new owner and name for a reference. The reference is
// resolved to its declaring class first; the owner only changes when the
// declaration moved, otherwise the original owner is kept and renamed.
func (r *Rewriter) member(ref model.SymbolKey) (string, string) {
	owner, name := ref.Owner, ref.Name
	var decl string
	var ok bool
	if ref.Kind == model.KindField {
		decl, ok = r.index.ResolveField(ref.Owner, ref.Name, ref.Desc)
	} else {
		decl, ok = r.index.ResolveMethod(ref.Owner, ref.Name, ref.Desc)
	}
	if ok {
		declKey := ref.WithOwner(decl)
		name = r.renames.MemberName(declKey)
		if moved, isMoved := r.relocations.Lookup(declKey); isMoved {
			owner = moved
		}
	}
	newOwner := model.RemapInternalName(owner, r.className)
	if newOwner != ref.Owner || name != ref.Name {
		r.stats.References++
	}
	return newOwner, name
}

func (r *Rewriter) handle(h model.Handle) model.Handle {
	kind := model.KindMethod
	if h.IsField() {
		kind = model.KindField
	}
	owner, name := r.member(model.SymbolKey{Kind: kind, Owner: h.Owner, Name: h.Name, Desc: h.Desc})
	return model.Handle{Tag: h.Tag, Owner: owner, Name: name, Desc: r.desc(h.Desc), Interface: h.Interface}
}

func (r *Rewriter) constant(value any) any {
	switch c := value.(type) {
	case model.TypeConstant:
		return model.TypeConstant{Desc: r.desc(c.Desc)}
	case model.Handle:
		return r.handle(c)
	default:
		return value
	}
}

func (r *Rewriter) invokeDynamic(i *model.InvokeDynamicInsn) {
	if i.Bootstrap.Owner == lambdaMetafactory {
		i.Name = r.samName(i)
	}
	i.Bootstrap = r.handle(i.Bootstrap)
	for n, arg := range i.Args {
		i.Args[n] = r.constant(arg)
	}
	i.Desc = r.desc(i.Desc)
}

// samName renames the functional interface method a lambda call site
// implements: the interface is the call site's return type and the erased
// signature is the first bootstrap argument.
func (r *Rewriter) samName(i *model.InvokeDynamicInsn) string {
	_, ret, err := model.ParseMethodDescriptor(i.Desc)
	if err != nil || ret.Sort != model.SortObject || len(i.Args) == 0 {
		return i.Name
	}
	samType, ok := i.Args[0].(model.TypeConstant)
	if !ok || !samType.IsMethodType() {
		return i.Name
	}
	decl, ok := r.index.ResolveMethod(ret.InternalName(), i.Name, samType.Desc)
	if !ok {
		return i.Name
	}
	return r.renames.MemberName(model.MethodKey(decl, i.Name, samType.Desc))
}

func (r *Rewriter) className(name string) string {
	return r.renames.ClassName(name)
}

// desc remaps class names inside a field or method descriptor.
func (r *Rewriter) desc(desc string) string {
	return model.RemapDescriptor(desc, r.className)
}
