package mapping

import (
	"mangle/internal/engine/exclusion"
	"mangle/internal/engine/model"
)

const enumValuesField = "$VALUES"

type memberSig struct {
	name string
	desc string
}

// Methods whose names are bound outside the archive: Object virtuals, the
// entry point and the serialization hooks looked up by name at run time.
var protectedMethods = map[memberSig]bool{
	{"toString", "()Ljava/lang/String;"}:               true,
	{"equals", "(Ljava/lang/Object;)Z"}:                true,
	{"hashCode", "()I"}:                                true,
	{"clone", "()Ljava/lang/Object;"}:                  true,
	{"finalize", "()V"}:                                true,
	{"main", "([Ljava/lang/String;)V"}:                 true,
	{"writeObject", "(Ljava/io/ObjectOutputStream;)V"}: true,
	{"readObject", "(Ljava/io/ObjectInputStream;)V"}:   true,
	{"readObjectNoData", "()V"}:                        true,
	{"readResolve", "()Ljava/lang/Object;"}:            true,
	{"writeReplace", "()Ljava/lang/Object;"}:           true,
}

var protectedFields = map[memberSig]bool{
	{"serialVersionUID", "J"}:                                  true,
	{"serialPersistentFields", "[Ljava/io/ObjectStreamField;"}: true,
}

// Policy is the renameability predicate shared by the mapping generator and
// the relocation engine.
type Policy struct {
	index      *model.Index
	filter     *exclusion.Filter
	renameable map[model.SymbolKey]bool
}

func NewPolicy(index *model.Index, filter *exclusion.Filter) *Policy {
	return &Policy{index: index, filter: filter, renameable: make(map[model.SymbolKey]bool)}
}

func (p *Policy) Filter() *exclusion.Filter { return p.filter }
func (p *Policy) Index() *model.Index       { return p.index }

// ClassRenameable reports whether the class keeps its name.
func (p *Policy) ClassRenameable(c *model.Class) bool {
	return !p.filter.ExcludesClass(c)
}

// FieldRenameable is false for excluded fields, fields of excluded classes,
// the enum values array and serialization fields.
func (p *Policy) FieldRenameable(owner *model.Class, f *model.Field) bool {
	if p.filter.ExcludesClass(owner) || p.filter.ExcludesField(owner, f) {
		return false
	}
	if owner.IsEnum() && f.Name == enumValuesField {
		return false
	}
	return !protectedFields[memberSig{f.Name, f.Desc}]
}

// MethodRenameable is false for excluded methods and for methods whose name is
// bound by something outside the rename table: initializers, native linkage,
// enum and annotation contracts, Object and serialization hooks, and virtual
// methods that may implement a supertype living outside the archive.
func (p *Policy) MethodRenameable(owner *model.Class, m *model.Method) bool {
	return p.methodRenameable(owner.Name, owner.Access, m.Name, m.Desc, m.Access)
}

func (p *Policy) methodRenameable(owner string, ownerAccess model.Access, name, desc string, access model.Access) bool {
	key := model.MethodKey(owner, name, desc)
	if ok, cached := p.renameable[key]; cached {
		return ok
	}
	p.renameable[key] = false // breaks cycles through malformed hierarchies
	ok := p.computeMethodRenameable(owner, ownerAccess, name, desc, access)
	p.renameable[key] = ok
	return ok
}

func (p *Policy) computeMethodRenameable(owner string, ownerAccess model.Access, name, desc string, access model.Access) bool {
	if !p.methodRenameableLocal(owner, ownerAccess, name, desc, access) {
		return false
	}
	if !isVirtual(access) {
		return true
	}
	// an override keeps the name of a pinned method above it
	for _, super := range p.index.AllSupertypes(owner) {
		if superAccess, declared := p.index.MethodAccess(super, name, desc); declared &&
			isVirtual(superAccess) && p.methodPinned(super, name, desc) {
			return false
		}
	}
	// every override below must be able to follow the new name
	for _, sub := range p.index.Subclasses(owner) {
		if p.index.LeavesArchive(sub) {
			return false
		}
		subAccess, _ := p.index.Access(sub)
		if overrideAccess, declared := p.index.MethodAccess(sub, name, desc); declared &&
			!p.methodRenameableLocal(sub, subAccess, name, desc, overrideAccess) {
			return false
		}
		// a subclass inheriting the same signature from an unrelated supertype
		// would need two names at once
		for _, other := range p.index.AllSupertypes(sub) {
			if other == owner || !p.index.Has(other) ||
				p.index.IsSubtype(other, owner) || p.index.IsSubtype(owner, other) {
				continue
			}
			if otherAccess, declared := p.index.MethodAccess(other, name, desc); declared && isVirtual(otherAccess) {
				return false
			}
		}
	}
	return true
}

func isVirtual(access model.Access) bool {
	return !access.IsStatic() && !access.IsPrivate()
}

// methodPinned reports whether a method declared on any indexed class keeps its name.
func (p *Policy) methodPinned(owner, name, desc string) bool {
	ownerAccess, _ := p.index.Access(owner)
	access, _ := p.index.MethodAccess(owner, name, desc)
	return !p.methodRenameable(owner, ownerAccess, name, desc, access)
}

func (p *Policy) methodRenameableLocal(owner string, ownerAccess model.Access, name, desc string, access model.Access) bool {
	if p.filter.ExcludesClassName(owner) || p.filter.ExcludesMember(owner, name, desc) {
		return false
	}
	if name == "<init>" || name == "<clinit>" || access.IsNative() {
		return false
	}
	if ownerAccess.Has(model.AccAnnotation) {
		return false
	}
	if ownerAccess.IsEnum() && (name == "values" || name == "valueOf") {
		return false
	}
	if protectedMethods[memberSig{name, desc}] {
		return false
	}
	if isVirtual(access) && p.index.LeavesArchive(owner) {
		return false
	}
	return true
}

// fieldPinned reports whether a field declared on any indexed class keeps its name.
func (p *Policy) fieldPinned(owner, name, desc string) bool {
	ownerAccess, _ := p.index.Access(owner)
	if p.filter.ExcludesClassName(owner) || p.filter.ExcludesMember(owner, name, desc) {
		return true
	}
	if ownerAccess.IsEnum() && name == enumValuesField {
		return true
	}
	return protectedFields[memberSig{name, desc}]
}
