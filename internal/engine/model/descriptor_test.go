package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethodDescriptor(t *testing.T) {
	params, ret, err := ParseMethodDescriptor("(I[JLapp/A;[[Ljava/lang/String;)Lapp/B;")
	require.NoError(t, err)
	require.Len(t, params, 4)

	assert.Equal(t, SortInt, params[0].Sort)
	assert.Equal(t, SortArray, params[1].Sort)
	assert.Equal(t, SortLong, params[1].Element().Sort)
	assert.Equal(t, "app/A", params[2].InternalName())
	assert.Equal(t, "java/lang/String", params[3].Element().InternalName())
	assert.Equal(t, "app/B", ret.InternalName())
}

func TestParseMethodDescriptor_Errors(t *testing.T) {
	for _, desc := range []string{"", "I", "(I", "(V)V", "(Lapp/A)V", "()VV", "(Q)V"} {
		t.Run(desc, func(t *testing.T) {
			_, _, err := ParseMethodDescriptor(desc)
			assert.Error(t, err)
		})
	}
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("[[I")
	require.NoError(t, err)
	assert.Equal(t, SortArray, typ.Sort)
	assert.True(t, typ.Element().IsPrimitive())

	_, err = ParseType("II")
	assert.Error(t, err)
}

func TestTypeOfInternalName(t *testing.T) {
	typ, err := TypeOfInternalName("app/A")
	require.NoError(t, err)
	assert.Equal(t, "Lapp/A;", typ.Desc)

	typ, err = TypeOfInternalName("[Lapp/A;")
	require.NoError(t, err)
	assert.Equal(t, "app/A", typ.Element().InternalName())
}

func TestRemapDescriptor(t *testing.T) {
	rename := func(name string) string {
		if strings.HasPrefix(name, "app/") {
			return "x/" + strings.TrimPrefix(name, "app/")
		}
		return name
	}

	assert.Equal(t, "(ILx/A;[Lx/Long;Ljava/lang/String;)[Lx/B;",
		RemapDescriptor("(ILapp/A;[Lapp/Long;Ljava/lang/String;)[Lapp/B;", rename))
	assert.Equal(t, "(IJ)V", RemapDescriptor("(IJ)V", rename))
	assert.Equal(t, "x/A", RemapInternalName("app/A", rename))
	assert.Equal(t, "[[Lx/A;", RemapInternalName("[[Lapp/A;", rename))
}
