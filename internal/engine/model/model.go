// Package model is the in-memory program representation every transformation operates on.
package model

import "slices"

const ObjectClass = "java/lang/Object"

// Archive is the ordered set of classes being transformed.
type Archive struct {
	Classes []*Class
}

func NewArchive(classes ...*Class) *Archive {
	return &Archive{Classes: classes}
}

// Class looks a class up by internal name.
func (a *Archive) Class(name string) *Class {
	for _, c := range a.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ForEachMethod visits every method of every class in archive order.
func (a *Archive) ForEachMethod(fn func(owner *Class, m *Method)) {
	for _, c := range a.Classes {
		for _, m := range c.Methods {
			fn(c, m)
		}
	}
}

// ForEachInstruction visits every instruction of every method in archive order.
func (a *Archive) ForEachInstruction(fn func(owner *Class, m *Method, insn Instruction)) {
	a.ForEachMethod(func(owner *Class, m *Method) {
		for _, insn := range m.Instructions {
			fn(owner, m, insn)
		}
	})
}

type Class struct {
	Name       string
	Access     Access
	SuperName  string
	Interfaces []string
	Fields     []*Field
	Methods    []*Method
}

func (c *Class) IsEnum() bool      { return c.Access.IsEnum() }
func (c *Class) IsInterface() bool { return c.Access.IsInterface() }

// Field returns the declared field with this exact identity.
func (c *Class) Field(name, desc string) *Field {
	for _, f := range c.Fields {
		if f.Name == name && f.Desc == desc {
			return f
		}
	}
	return nil
}

// Method returns the declared method with this exact identity.
func (c *Class) Method(name, desc string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Desc == desc {
			return m
		}
	}
	return nil
}

// RemoveField detaches f; it reports false when f is not owned by c.
func (c *Class) RemoveField(f *Field) bool {
	i := slices.Index(c.Fields, f)
	if i < 0 {
		return false
	}
	c.Fields = slices.Delete(c.Fields, i, i+1)
	return true
}

// RemoveMethod detaches m; it reports false when m is not owned by c.
func (c *Class) RemoveMethod(m *Method) bool {
	i := slices.Index(c.Methods, m)
	if i < 0 {
		return false
	}
	c.Methods = slices.Delete(c.Methods, i, i+1)
	return true
}

type Field struct {
	Name   string
	Desc   string
	Access Access
	// Value is the folded constant (int32, int64, float32, float64 or string); nil when absent.
	Value any
}

type Method struct {
	Name         string
	Desc         string
	Access       Access
	Instructions []Instruction
}

// RemoveInstructions drops every instruction in drop, preserving the order of the rest.
func (m *Method) RemoveInstructions(drop ...Instruction) {
	m.Instructions = slices.DeleteFunc(m.Instructions, func(insn Instruction) bool {
		return slices.Contains(drop, insn)
	})
}
