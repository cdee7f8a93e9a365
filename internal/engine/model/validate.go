package model

import (
	"fmt"
	"strings"
)

// Validate checks the structural invariants the engine relies on: class names
// are unique and non-empty, member descriptors parse, no member identity is
// declared twice in one class, and the in-archive hierarchy is acyclic.
func Validate(a *Archive) error {
	seen := make(map[string]bool, len(a.Classes))
	for _, c := range a.Classes {
		if c == nil || strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("class with empty name")
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate class %s", c.Name)
		}
		seen[c.Name] = true

		fields := make(map[memberID]bool, len(c.Fields))
		for _, f := range c.Fields {
			if _, err := ParseType(f.Desc); err != nil {
				return fmt.Errorf("field %s.%s: %w", c.Name, f.Name, err)
			}
			id := memberID{f.Name, f.Desc}
			if fields[id] {
				return fmt.Errorf("duplicate field %s.%s %s", c.Name, f.Name, f.Desc)
			}
			fields[id] = true
		}
		methods := make(map[memberID]bool, len(c.Methods))
		for _, m := range c.Methods {
			if _, _, err := ParseMethodDescriptor(m.Desc); err != nil {
				return fmt.Errorf("method %s.%s: %w", c.Name, m.Name, err)
			}
			id := memberID{m.Name, m.Desc}
			if methods[id] {
				return fmt.Errorf("duplicate method %s.%s%s", c.Name, m.Name, m.Desc)
			}
			methods[id] = true
		}
	}

	byName := make(map[string]*Class, len(a.Classes))
	for _, c := range a.Classes {
		byName[c.Name] = c
	}
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(a.Classes))
	var visit func(name string) error
	visit = func(name string) error {
		c, ok := byName[name]
		if !ok {
			return nil
		}
		switch state[name] {
		case visiting:
			return fmt.Errorf("cyclic hierarchy at %s", name)
		case done:
			return nil
		}
		state[name] = visiting
		supers := append([]string(nil), c.Interfaces...)
		if c.SuperName != "" {
			supers = append(supers, c.SuperName)
		}
		for _, s := range supers {
			if err := visit(s); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}
	for _, c := range a.Classes {
		if err := visit(c.Name); err != nil {
			return err
		}
	}
	return nil
}
