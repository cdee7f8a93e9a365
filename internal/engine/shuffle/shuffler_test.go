package shuffle

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"mangle/internal/engine/model"

	"github.com/stretchr/testify/assert"
)

func sampleClass() *model.Class {
	c := &model.Class{Name: "app/A"}
	for i := 0; i < 20; i++ {
		c.Fields = append(c.Fields, &model.Field{Name: fmt.Sprintf("f%d", i), Desc: "I"})
		c.Methods = append(c.Methods, &model.Method{Name: fmt.Sprintf("m%d", i), Desc: "()V"})
	}
	return c
}

func fieldNames(c *model.Class) []string {
	out := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		out = append(out, f.Name)
	}
	return out
}

func methodNames(c *model.Class) []string {
	out := make([]string, 0, len(c.Methods))
	for _, m := range c.Methods {
		out = append(out, m.Name)
	}
	return out
}

func TestShuffler_PermutesMembers(t *testing.T) {
	c := sampleClass()
	before := fieldNames(c)
	methodsBefore := methodNames(c)

	touched := New(rand.New(rand.NewPCG(3, 4)), Options{Fields: true}).Apply(model.NewArchive(c))

	assert.Equal(t, 1, touched)
	assert.ElementsMatch(t, before, fieldNames(c))
	assert.NotEqual(t, before, fieldNames(c))
	assert.Equal(t, methodsBefore, methodNames(c), "methods untouched when disabled")
}

func TestShuffler_Deterministic(t *testing.T) {
	a, b := sampleClass(), sampleClass()
	opts := Options{Fields: true, Methods: true}

	New(rand.New(rand.NewPCG(9, 9)), opts).Apply(model.NewArchive(a))
	New(rand.New(rand.NewPCG(9, 9)), opts).Apply(model.NewArchive(b))

	assert.Equal(t, fieldNames(a), fieldNames(b))
	assert.Equal(t, methodNames(a), methodNames(b))
}

func TestShuffler_SmallClassesUntouched(t *testing.T) {
	c := &model.Class{Name: "app/B", Fields: []*model.Field{{Name: "only", Desc: "I"}}}

	touched := New(rand.New(rand.NewPCG(1, 1)), Options{Fields: true, Methods: true}).Apply(model.NewArchive(c))

	assert.Zero(t, touched)
}
