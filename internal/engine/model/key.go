package model

type SymbolKind uint8

const (
	KindClass SymbolKind = iota + 1
	KindField
	KindMethod
)

func (k SymbolKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindField:
		return "field"
	case KindMethod:
		return "method"
	default:
		return "unknown"
	}
}

// SymbolKey identifies a class or a member by its original owner, name and descriptor.
// Class keys only carry Owner.
type SymbolKey struct {
	Kind  SymbolKind
	Owner string
	Name  string
	Desc  string
}

func ClassKey(name string) SymbolKey {
	return SymbolKey{Kind: KindClass, Owner: name}
}

func FieldKey(owner, name, desc string) SymbolKey {
	return SymbolKey{Kind: KindField, Owner: owner, Name: name, Desc: desc}
}

func MethodKey(owner, name, desc string) SymbolKey {
	return SymbolKey{Kind: KindMethod, Owner: owner, Name: name, Desc: desc}
}

// WithOwner returns the same member identity on another class.
func (k SymbolKey) WithOwner(owner string) SymbolKey {
	k.Owner = owner
	return k
}

func (k SymbolKey) String() string {
	switch k.Kind {
	case KindClass:
		return k.Owner
	case KindField:
		return k.Owner + "." + k.Name + ":" + k.Desc
	default:
		return k.Owner + "." + k.Name + k.Desc
	}
}
