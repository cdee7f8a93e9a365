package modelio

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mangle/internal/core/errors"
	"mangle/internal/engine/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func richArchive() *model.Archive {
	handle := model.Handle{Tag: model.HInvokeStatic, Owner: "app/Main", Name: "lambda$0", Desc: "(I)I"}
	return model.NewArchive(
		&model.Class{
			Name:       "app/Main",
			Access:     model.Access(model.AccPublic | model.AccSuper),
			SuperName:  model.ObjectClass,
			Interfaces: []string{"app/Fn"},
			Fields: []*model.Field{
				{Name: "I", Desc: "I", Access: model.Access(model.AccStatic | model.AccFinal), Value: int32(-3)},
				{Name: "J", Desc: "J", Value: int64(1) << 40},
				{Name: "F", Desc: "F", Value: float32(1.5)},
				{Name: "D", Desc: "D", Value: 2.25},
				{Name: "S", Desc: "Ljava/lang/String;", Value: "hello"},
				{Name: "plain", Desc: "Lapp/Fn;"},
			},
			Methods: []*model.Method{{
				Name:   "run",
				Desc:   "()V",
				Access: model.Access(model.AccPublic),
				Instructions: []model.Instruction{
					&model.OpInsn{Opcode: model.NOP},
					&model.OpInsn{Opcode: 0x10, Operand: 12},
					&model.FieldInsn{Opcode: model.GETSTATIC, Owner: "app/Main", Name: "I", Desc: "I"},
					&model.MethodInsn{Opcode: model.INVOKEINTERFACE, Owner: "app/Fn", Name: "apply", Desc: "(I)I", Interface: true},
					&model.TypeInsn{Opcode: model.ANEWARRAY, Desc: "[Lapp/Fn;"},
					&model.LdcInsn{Value: model.TypeConstant{Desc: "Lapp/Main;"}},
					&model.LdcInsn{Value: handle},
					&model.InvokeDynamicInsn{
						Name:      "apply",
						Desc:      "()Lapp/Fn;",
						Bootstrap: model.Handle{Tag: model.HInvokeStatic, Owner: "java/lang/invoke/LambdaMetafactory", Name: "metafactory", Desc: "()V"},
						Args:      []any{model.TypeConstant{Desc: "(I)I"}, handle, "tag", int32(0)},
					},
					&model.OpInsn{Opcode: model.RETURN},
				},
			}},
		},
		&model.Class{Name: "app/Fn", Access: model.Access(model.AccPublic | model.AccInterface | model.AccAbstract)},
	)
}

func TestWriteRead_PreservesEveryVariant(t *testing.T) {
	archive := richArchive()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, archive))
	got, err := Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, archive, got)
}

func TestWriteFile_ReplacesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "model.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, WriteFile(path, richArchive()))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, got.Classes, 2)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must be cleaned up")
}

func TestRead_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"syntax", `{"classes": [`, "decode model"},
		{"unknown field", `{"classes": [], "extra": 1}`, "decode model"},
		{"unknown instruction", `{"classes":[{"name":"app/A","access":1,"methods":[{"name":"m","desc":"()V","access":1,"instructions":[{"kind":"jump"}]}]}]}`, "unknown instruction kind"},
		{"unknown constant", `{"classes":[{"name":"app/A","access":1,"fields":[{"name":"f","desc":"I","access":8,"value":{"type":"char"}}]}]}`, "unknown constant type"},
		{"ldc without value", `{"classes":[{"name":"app/A","access":1,"methods":[{"name":"m","desc":"()V","access":1,"instructions":[{"kind":"ldc"}]}]}]}`, "ldc without value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeValidationError), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.True(t, errors.IsCode(err, errors.CodeNotFound), "got %v", err)
}

func TestWrite_RejectsUnknownConstant(t *testing.T) {
	archive := model.NewArchive(&model.Class{Name: "app/A", Fields: []*model.Field{{Name: "f", Desc: "Z", Value: true}}})
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, archive))
}
