package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func hierarchyArchive() *Archive {
	return NewArchive(
		&Class{Name: "app/Leaf", SuperName: "app/Mid", Access: Access(AccPublic)},
		&Class{
			Name:       "app/Mid",
			SuperName:  "app/Base",
			Interfaces: []string{"app/Named"},
			Access:     Access(AccPublic),
			Methods:    []*Method{{Name: "run", Desc: "()V"}},
		},
		&Class{
			Name:      "app/Base",
			SuperName: ObjectClass,
			Access:    Access(AccPublic),
			Fields:    []*Field{{Name: "count", Desc: "I", Access: Access(AccProtected)}},
			Methods:   []*Method{{Name: "run", Desc: "()V"}},
		},
		&Class{
			Name:   "app/Named",
			Access: Access(AccPublic | AccInterface | AccAbstract),
			Fields: []*Field{{Name: "ID", Desc: "I", Access: Access(AccPublic | AccStatic | AccFinal)}},
		},
		&Class{Name: "app/Widget", SuperName: "javax/swing/JPanel"},
	)
}

func TestIndex_Subclasses(t *testing.T) {
	x := BuildIndex(hierarchyArchive())

	assert.ElementsMatch(t, []string{"app/Leaf", "app/Mid"}, x.Subclasses("app/Base"))
	assert.ElementsMatch(t, []string{"app/Leaf", "app/Mid"}, x.Subclasses("app/Named"))
	assert.Equal(t, []string{"app/Leaf"}, x.Subclasses("app/Mid"))
	assert.Empty(t, x.Subclasses("app/Leaf"))
	assert.True(t, x.IsSubtype("app/Leaf", "app/Named"))
	assert.False(t, x.IsSubtype("app/Base", "app/Mid"))
}

func TestIndex_Family(t *testing.T) {
	x := BuildIndex(hierarchyArchive())

	assert.ElementsMatch(t, []string{"app/Base", "app/Mid", "app/Leaf", "app/Named"}, x.Family("app/Base"))
	assert.ElementsMatch(t, []string{"app/Named", "app/Mid", "app/Leaf", "app/Base"}, x.Family("app/Named"))
	assert.Equal(t, []string{"app/Widget"}, x.Family("app/Widget"))
}

func TestIndex_HierarchyOrder(t *testing.T) {
	x := BuildIndex(hierarchyArchive())
	order := x.HierarchyOrder()

	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	assert.Less(t, pos["app/Base"], pos["app/Mid"])
	assert.Less(t, pos["app/Named"], pos["app/Mid"])
	assert.Less(t, pos["app/Mid"], pos["app/Leaf"])
}

func TestIndex_Resolve(t *testing.T) {
	x := BuildIndex(hierarchyArchive())

	owner, ok := x.ResolveField("app/Leaf", "count", "I")
	assert.True(t, ok)
	assert.Equal(t, "app/Base", owner)

	owner, ok = x.ResolveField("app/Leaf", "ID", "I")
	assert.True(t, ok)
	assert.Equal(t, "app/Named", owner)

	owner, ok = x.ResolveMethod("app/Leaf", "run", "()V")
	assert.True(t, ok)
	assert.Equal(t, "app/Mid", owner)

	_, ok = x.ResolveMethod("app/Leaf", "missing", "()V")
	assert.False(t, ok)
	_, ok = x.ResolveMethod("java/lang/String", "length", "()I")
	assert.False(t, ok)
}

func TestIndex_LeavesArchive(t *testing.T) {
	x := BuildIndex(hierarchyArchive())

	assert.False(t, x.LeavesArchive("app/Leaf"))
	assert.True(t, x.LeavesArchive("app/Widget"))
}

func TestIndex_IgnoresLaterMutation(t *testing.T) {
	a := hierarchyArchive()
	x := BuildIndex(a)

	base := a.Class("app/Base")
	base.RemoveField(base.Fields[0])

	_, ok := x.FieldAccess("app/Base", "count", "I")
	assert.True(t, ok)
}
