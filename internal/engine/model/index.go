package model

import "sort"

type memberID struct {
	name string
	desc string
}

type classInfo struct {
	name        string
	access      Access
	supertypes  []string
	fields      map[memberID]Access
	methods     map[memberID]Access
	fieldOrder  []Member
	methodOrder []Member
}

// Member is a declaration recorded in the index.
type Member struct {
	Name   string
	Desc   string
	Access Access
}

// Index is a read-only view of the archive as it was when the index was built.
// Stages that move members keep resolving against the original layout.
type Index struct {
	classes    map[string]*classInfo
	order      []string
	subclasses map[string][]string
	depth      map[string]int
}

// BuildIndex derives class lookup, member declarations and the subclass index.
func BuildIndex(a *Archive) *Index {
	x := &Index{
		classes:    make(map[string]*classInfo, len(a.Classes)),
		order:      make([]string, 0, len(a.Classes)),
		subclasses: make(map[string][]string),
		depth:      make(map[string]int, len(a.Classes)),
	}
	for _, c := range a.Classes {
		info := &classInfo{
			name:    c.Name,
			access:  c.Access,
			fields:  make(map[memberID]Access, len(c.Fields)),
			methods: make(map[memberID]Access, len(c.Methods)),
		}
		if c.SuperName != "" {
			info.supertypes = append(info.supertypes, c.SuperName)
		}
		info.supertypes = append(info.supertypes, c.Interfaces...)
		for _, f := range c.Fields {
			info.fields[memberID{f.Name, f.Desc}] = f.Access
			info.fieldOrder = append(info.fieldOrder, Member{Name: f.Name, Desc: f.Desc, Access: f.Access})
		}
		for _, m := range c.Methods {
			info.methods[memberID{m.Name, m.Desc}] = m.Access
			info.methodOrder = append(info.methodOrder, Member{Name: m.Name, Desc: m.Desc, Access: m.Access})
		}
		x.classes[c.Name] = info
		x.order = append(x.order, c.Name)
	}

	for _, name := range x.order {
		for _, super := range x.AllSupertypes(name) {
			if _, ok := x.classes[super]; ok {
				x.subclasses[super] = append(x.subclasses[super], name)
			}
		}
	}
	return x
}

func (x *Index) Has(name string) bool {
	_, ok := x.classes[name]
	return ok
}

// Access returns the class access flags; ok is false for classes outside the archive.
func (x *Index) Access(name string) (Access, bool) {
	info, ok := x.classes[name]
	if !ok {
		return 0, false
	}
	return info.access, true
}

// Supertypes returns the direct superclass followed by the direct interfaces.
func (x *Index) Supertypes(name string) []string {
	info, ok := x.classes[name]
	if !ok {
		return nil
	}
	return info.supertypes
}

// AllSupertypes returns every transitive supertype, in-archive or not, nearest first.
func (x *Index) AllSupertypes(name string) []string {
	var out []string
	seen := map[string]bool{name: true}
	queue := append([]string(nil), x.Supertypes(name)...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		queue = append(queue, x.Supertypes(next)...)
	}
	return out
}

// Subclasses returns every transitive in-archive subtype of name, in archive order.
func (x *Index) Subclasses(name string) []string {
	return x.subclasses[name]
}

// IsSubtype reports whether sub is super or inherits from it.
func (x *Index) IsSubtype(sub, super string) bool {
	if sub == super {
		return true
	}
	for _, s := range x.AllSupertypes(sub) {
		if s == super {
			return true
		}
	}
	return false
}

// LeavesArchive reports whether the hierarchy of name reaches a class outside the
// archive other than java/lang/Object.
func (x *Index) LeavesArchive(name string) bool {
	for _, s := range x.AllSupertypes(name) {
		if s != ObjectClass && !x.Has(s) {
			return true
		}
	}
	return false
}

// HierarchyOrder lists classes so that every in-archive supertype precedes its
// subtypes; ties keep archive order.
func (x *Index) HierarchyOrder() []string {
	out := append([]string(nil), x.order...)
	sort.SliceStable(out, func(i, j int) bool {
		return x.Depth(out[i]) < x.Depth(out[j])
	})
	return out
}

// Depth is the length of the longest in-archive supertype chain above name.
func (x *Index) Depth(name string) int {
	if d, ok := x.depth[name]; ok {
		return d
	}
	x.depth[name] = 0 // cycle guard
	d := 0
	for _, s := range x.Supertypes(name) {
		if !x.Has(s) {
			continue
		}
		if sd := x.Depth(s) + 1; sd > d {
			d = sd
		}
	}
	x.depth[name] = d
	return d
}

// Fields lists the fields owner declared when the index was built.
func (x *Index) Fields(owner string) []Member {
	if info, ok := x.classes[owner]; ok {
		return info.fieldOrder
	}
	return nil
}

// Methods lists the methods owner declared when the index was built.
func (x *Index) Methods(owner string) []Member {
	if info, ok := x.classes[owner]; ok {
		return info.methodOrder
	}
	return nil
}

// Classes lists every indexed class name in archive order.
func (x *Index) Classes() []string {
	return x.order
}

func (x *Index) FieldAccess(owner, name, desc string) (Access, bool) {
	info, ok := x.classes[owner]
	if !ok {
		return 0, false
	}
	acc, ok := info.fields[memberID{name, desc}]
	return acc, ok
}

func (x *Index) MethodAccess(owner, name, desc string) (Access, bool) {
	info, ok := x.classes[owner]
	if !ok {
		return 0, false
	}
	acc, ok := info.methods[memberID{name, desc}]
	return acc, ok
}

// ResolveField finds the in-archive class declaring the field a reference through
// owner binds to: owner itself, then its interfaces, then its superclass.
func (x *Index) ResolveField(owner, name, desc string) (string, bool) {
	return x.resolve(owner, true, func(c string) bool {
		_, ok := x.FieldAccess(c, name, desc)
		return ok
	}, map[string]bool{})
}

// ResolveMethod finds the in-archive class declaring the method a reference through
// owner binds to.
func (x *Index) ResolveMethod(owner, name, desc string) (string, bool) {
	return x.resolve(owner, false, func(c string) bool {
		_, ok := x.MethodAccess(c, name, desc)
		return ok
	}, map[string]bool{})
}

func (x *Index) resolve(owner string, interfacesFirst bool, declares func(string) bool, seen map[string]bool) (string, bool) {
	if seen[owner] || !x.Has(owner) {
		return "", false
	}
	seen[owner] = true
	if declares(owner) {
		return owner, true
	}
	supers := append([]string(nil), x.Supertypes(owner)...)
	if interfacesFirst && len(supers) > 1 {
		supers = append(supers[1:], supers[0])
	}
	for _, s := range supers {
		if found, ok := x.resolve(s, interfacesFirst, declares, seen); ok {
			return found, true
		}
	}
	return "", false
}

// Family returns owner, its supertypes in the archive, its subclasses and the
// in-archive supertypes of those subclasses: every class whose members can be
// reached through the same reference owner as a member of owner.
func (x *Index) Family(owner string) []string {
	out := []string{owner}
	seen := map[string]bool{owner: true}
	add := func(name string) {
		if !seen[name] && x.Has(name) {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, s := range x.AllSupertypes(owner) {
		add(s)
	}
	subs := x.Subclasses(owner)
	for _, sub := range subs {
		add(sub)
	}
	for _, sub := range subs {
		for _, s := range x.AllSupertypes(sub) {
			add(s)
		}
	}
	return out
}
