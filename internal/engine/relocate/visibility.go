package relocate

import (
	"mangle/internal/engine/mapping"
	"mangle/internal/engine/model"
)

// visibility answers "is this reachable from any class" for the symbols a
// relocated member touches. Classes outside the archive count as public only
// when they belong to a trusted library.
type visibility struct {
	index       *model.Index
	classes     map[string]*model.Class
	relocations *mapping.Relocations
	trusted     Patterns
}

func (v *visibility) classPublic(name string) bool {
	if access, ok := v.index.Access(name); ok {
		return access.IsPublic()
	}
	return v.trusted.Match(name)
}

func (v *visibility) typePublic(t model.Type) bool {
	t = t.Element()
	if t.IsPrimitive() {
		return true
	}
	return v.classPublic(t.InternalName())
}

func (v *visibility) fieldDescPublic(desc string) bool {
	t, err := model.ParseType(desc)
	return err == nil && v.typePublic(t)
}

func (v *visibility) methodDescPublic(desc string) bool {
	params, ret, err := model.ParseMethodDescriptor(desc)
	if err != nil || !v.typePublic(ret) {
		return false
	}
	for _, p := range params {
		if !v.typePublic(p) {
			return false
		}
	}
	return true
}

// internalNamePublic accepts the operand of a type instruction.
func (v *visibility) internalNamePublic(name string) bool {
	t, err := model.TypeOfInternalName(name)
	return err == nil && v.typePublic(t)
}

func (v *visibility) fieldRefPublic(from, owner, name, desc string) bool {
	if !v.classPublic(owner) || !v.fieldDescPublic(desc) {
		return false
	}
	decl, ok := v.index.ResolveField(owner, name, desc)
	if !ok {
		return v.externalMemberPublic(from, owner)
	}
	f := v.liveField(decl, name, desc)
	return f != nil && f.Access.IsPublic() && v.classPublic(decl)
}

func (v *visibility) methodRefPublic(from, owner, name, desc string) bool {
	if !v.classPublic(owner) || !v.methodDescPublic(desc) {
		return false
	}
	decl, ok := v.index.ResolveMethod(owner, name, desc)
	if !ok {
		return v.externalMemberPublic(from, owner)
	}
	m := v.liveMethod(decl, name, desc)
	return m != nil && m.Access.IsPublic() && v.classPublic(decl)
}

// externalMemberPublic covers members the index cannot see. Members reached
// through a supertype of the calling class may be protected, so those fail.
func (v *visibility) externalMemberPublic(from, owner string) bool {
	if v.index.Has(owner) {
		return false
	}
	return v.trusted.Match(owner) && !v.index.IsSubtype(from, owner)
}

func (v *visibility) handlePublic(from string, h model.Handle) bool {
	if h.IsField() {
		return v.fieldRefPublic(from, h.Owner, h.Name, h.Desc)
	}
	return v.methodRefPublic(from, h.Owner, h.Name, h.Desc)
}

func (v *visibility) constantPublic(from string, value any) bool {
	switch c := value.(type) {
	case model.TypeConstant:
		if c.IsMethodType() {
			return v.methodDescPublic(c.Desc)
		}
		return v.fieldDescPublic(c.Desc)
	case model.Handle:
		return v.handlePublic(from, c)
	default:
		return true
	}
}

// liveField finds the declaration as it stands now, following earlier moves.
func (v *visibility) liveField(owner, name, desc string) *model.Field {
	if moved, ok := v.relocations.Lookup(model.FieldKey(owner, name, desc)); ok {
		owner = moved
	}
	if c := v.classes[owner]; c != nil {
		return c.Field(name, desc)
	}
	return nil
}

func (v *visibility) liveMethod(owner, name, desc string) *model.Method {
	if moved, ok := v.relocations.Lookup(model.MethodKey(owner, name, desc)); ok {
		owner = moved
	}
	if c := v.classes[owner]; c != nil {
		return c.Method(name, desc)
	}
	return nil
}
