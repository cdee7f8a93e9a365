package model

import (
	"fmt"
	"strings"
)

type Sort int

const (
	SortVoid Sort = iota
	SortBoolean
	SortChar
	SortByte
	SortShort
	SortInt
	SortFloat
	SortLong
	SortDouble
	SortArray
	SortObject
)

// Type is a single parsed field descriptor.
type Type struct {
	Sort Sort
	Desc string
}

// InternalName returns "pkg/Name" for object types and the descriptor for arrays.
func (t Type) InternalName() string {
	if t.Sort == SortObject {
		return t.Desc[1 : len(t.Desc)-1]
	}
	return t.Desc
}

// Element strips every array dimension.
func (t Type) Element() Type {
	if t.Sort != SortArray {
		return t
	}
	d := strings.TrimLeft(t.Desc, "[")
	elem, _, err := parseType(d, 0)
	if err != nil {
		return t
	}
	return elem
}

// IsPrimitive reports whether the type carries no class reference at all.
func (t Type) IsPrimitive() bool {
	return t.Sort != SortObject && t.Sort != SortArray
}

// ParseType parses a single field descriptor such as "I" or "[Lapp/A;".
func ParseType(desc string) (Type, error) {
	t, next, err := parseType(desc, 0)
	if err != nil {
		return Type{}, err
	}
	if next != len(desc) {
		return Type{}, fmt.Errorf("trailing data in descriptor %q", desc)
	}
	return t, nil
}

// ParseMethodDescriptor splits "(params)ret" into its parts.
func ParseMethodDescriptor(desc string) ([]Type, Type, error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, Type{}, fmt.Errorf("method descriptor %q must start with '('", desc)
	}
	var params []Type
	i := 1
	for i < len(desc) && desc[i] != ')' {
		t, next, err := parseType(desc, i)
		if err != nil {
			return nil, Type{}, err
		}
		if t.Sort == SortVoid {
			return nil, Type{}, fmt.Errorf("void parameter in %q", desc)
		}
		params = append(params, t)
		i = next
	}
	if i >= len(desc) {
		return nil, Type{}, fmt.Errorf("unterminated parameter list in %q", desc)
	}
	ret, next, err := parseType(desc, i+1)
	if err != nil {
		return nil, Type{}, err
	}
	if next != len(desc) {
		return nil, Type{}, fmt.Errorf("trailing data in descriptor %q", desc)
	}
	return params, ret, nil
}

// TypeOfInternalName converts a type-instruction operand ("app/A" or "[I") to a Type.
func TypeOfInternalName(name string) (Type, error) {
	if strings.HasPrefix(name, "[") {
		return ParseType(name)
	}
	if name == "" {
		return Type{}, fmt.Errorf("empty internal name")
	}
	return Type{Sort: SortObject, Desc: "L" + name + ";"}, nil
}

func parseType(desc string, i int) (Type, int, error) {
	if i >= len(desc) {
		return Type{}, i, fmt.Errorf("truncated descriptor %q", desc)
	}
	switch desc[i] {
	case 'V':
		return Type{Sort: SortVoid, Desc: "V"}, i + 1, nil
	case 'Z':
		return Type{Sort: SortBoolean, Desc: "Z"}, i + 1, nil
	case 'C':
		return Type{Sort: SortChar, Desc: "C"}, i + 1, nil
	case 'B':
		return Type{Sort: SortByte, Desc: "B"}, i + 1, nil
	case 'S':
		return Type{Sort: SortShort, Desc: "S"}, i + 1, nil
	case 'I':
		return Type{Sort: SortInt, Desc: "I"}, i + 1, nil
	case 'F':
		return Type{Sort: SortFloat, Desc: "F"}, i + 1, nil
	case 'J':
		return Type{Sort: SortLong, Desc: "J"}, i + 1, nil
	case 'D':
		return Type{Sort: SortDouble, Desc: "D"}, i + 1, nil
	case 'L':
		end := strings.IndexByte(desc[i:], ';')
		if end <= 1 {
			return Type{}, i, fmt.Errorf("malformed object type in %q", desc)
		}
		return Type{Sort: SortObject, Desc: desc[i : i+end+1]}, i + end + 1, nil
	case '[':
		elem, next, err := parseType(desc, i+1)
		if err != nil {
			return Type{}, i, err
		}
		if elem.Sort == SortVoid {
			return Type{}, i, fmt.Errorf("void array in %q", desc)
		}
		return Type{Sort: SortArray, Desc: desc[i:next]}, next, nil
	default:
		return Type{}, i, fmt.Errorf("unexpected %q at %d in descriptor %q", desc[i], i, desc)
	}
}

// RemapDescriptor rewrites every class name embedded in a field or method descriptor.
// Malformed input is returned unchanged.
func RemapDescriptor(desc string, rename func(string) string) string {
	if !strings.ContainsRune(desc, 'L') {
		return desc
	}
	var b strings.Builder
	b.Grow(len(desc))
	for i := 0; i < len(desc); i++ {
		c := desc[i]
		if c != 'L' {
			b.WriteByte(c)
			continue
		}
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			return desc
		}
		b.WriteByte('L')
		b.WriteString(rename(desc[i+1 : i+end]))
		b.WriteByte(';')
		i += end
	}
	return b.String()
}

// RemapInternalName rewrites an internal name or, for array types, the embedded element name.
func RemapInternalName(name string, rename func(string) string) string {
	if strings.HasPrefix(name, "[") {
		return RemapDescriptor(name, rename)
	}
	return rename(name)
}
