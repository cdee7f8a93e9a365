package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mangle/internal/core/config"
	"mangle/internal/core/errors"
	"mangle/internal/data/history"
	"mangle/internal/data/modelio"
	"mangle/internal/engine/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	publicClass  = model.Access(model.AccPublic | model.AccSuper)
	publicStatic = model.Access(model.AccPublic | model.AccStatic)
)

// scenario: A.foo (excluded) calls A.bar and reads A.K; B is empty.
func scenario() *model.Archive {
	foo := &model.Method{Name: "foo", Desc: "()V", Access: publicStatic, Instructions: []model.Instruction{
		&model.MethodInsn{Opcode: model.INVOKESTATIC, Owner: "app/A", Name: "bar", Desc: "()I"},
		&model.FieldInsn{Opcode: model.GETSTATIC, Owner: "app/A", Name: "K", Desc: "I"},
		&model.OpInsn{Opcode: model.RETURN},
	}}
	bar := &model.Method{Name: "bar", Desc: "()I", Access: publicStatic, Instructions: []model.Instruction{
		&model.LdcInsn{Value: int32(42)},
		&model.OpInsn{Opcode: 0xac},
	}}
	k := &model.Field{Name: "K", Desc: "I", Access: model.Access(model.AccPrivate | model.AccStatic | model.AccFinal), Value: int32(7)}
	return model.NewArchive(
		&model.Class{Name: "app/A", Access: publicClass, SuperName: model.ObjectClass, Fields: []*model.Field{k}, Methods: []*model.Method{foo, bar}},
		&model.Class{Name: "app/B", Access: publicClass, SuperName: model.ObjectClass},
	)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Seed = 42
	cfg.Exclusion.Patterns = []string{"app/A.foo"}
	cfg.Shuffler.CrossClassFields = true
	cfg.Shuffler.CrossClassMethods = true
	return cfg
}

func findMethod(archive *model.Archive, name, desc string) (*model.Class, *model.Method) {
	for _, c := range archive.Classes {
		if m := c.Method(name, desc); m != nil {
			return c, m
		}
	}
	return nil, nil
}

// assertReferencesResolve checks that every reference to an archive class
// still reaches a declaration.
func assertReferencesResolve(t *testing.T, archive *model.Archive) {
	t.Helper()
	idx := model.BuildIndex(archive)
	archive.ForEachInstruction(func(c *model.Class, m *model.Method, insn model.Instruction) {
		switch i := insn.(type) {
		case *model.FieldInsn:
			if idx.Has(i.Owner) {
				_, ok := idx.ResolveField(i.Owner, i.Name, i.Desc)
				assert.True(t, ok, "%s.%s: dangling field %s", c.Name, m.Name, i.Key())
			}
		case *model.MethodInsn:
			if idx.Has(i.Owner) {
				_, ok := idx.ResolveMethod(i.Owner, i.Name, i.Desc)
				assert.True(t, ok, "%s.%s: dangling method %s", c.Name, m.Name, i.Key())
			}
		}
	})
}

func TestObfuscate_FullPass(t *testing.T) {
	archive := scenario()
	app := New(testConfig())

	res, err := app.Obfuscate(context.Background(), archive)
	require.NoError(t, err)

	owner, foo := findMethod(archive, "foo", "()V")
	require.NotNil(t, foo, "excluded method keeps its name")
	assert.NotEqual(t, "app/A", owner.Name)
	assert.Regexp(t, `^app/[a-z]+$`, owner.Name)

	call := foo.Instructions[0].(*model.MethodInsn)
	target := archive.Class(call.Owner)
	require.NotNil(t, target)
	assert.NotSame(t, owner, target, "bar moved to the other class")
	assert.NotNil(t, target.Method(call.Name, call.Desc))
	assert.NotEqual(t, "bar", call.Name)

	get := foo.Instructions[1].(*model.FieldInsn)
	field := archive.Class(get.Owner).Field(get.Name, get.Desc)
	require.NotNil(t, field)
	assert.True(t, field.Access.IsPublic())

	assertReferencesResolve(t, archive)

	assert.Equal(t, uint64(42), res.Seed)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.ClassesRenamed)
	assert.Equal(t, 1, res.FieldsRelocated)
	assert.Equal(t, 1, res.MethodsRelocated)
	assert.Equal(t, 2, res.Relocated())
	assert.NotEmpty(t, res.Entries)
	assert.Equal(t, model.KindClass, res.Entries[0].Kind)
}

func TestObfuscate_DeterministicForSeed(t *testing.T) {
	render := func() ([]byte, Result) {
		archive := scenario()
		res, err := New(testConfig()).Obfuscate(context.Background(), archive)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, modelio.Write(&buf, archive))
		return buf.Bytes(), res
	}
	first, r1 := render()
	second, r2 := render()
	assert.Equal(t, string(first), string(second))
	assert.Equal(t, r1.Entries, r2.Entries)
	assert.NotEqual(t, r1.RunID, r2.RunID)
}

func TestObfuscate_SeedFromClock(t *testing.T) {
	cfg := testConfig()
	cfg.Seed = 0
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	res, err := New(cfg, WithClock(func() time.Time { return now })).Obfuscate(context.Background(), scenario())
	require.NoError(t, err)
	assert.Equal(t, uint64(now.UnixNano()), res.Seed)
}

func TestObfuscate_AllStagesDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Renamer = config.Renamer{Names: cfg.Renamer.Names}
	cfg.Shuffler = config.Shuffler{}

	archive := scenario()
	var before bytes.Buffer
	require.NoError(t, modelio.Write(&before, archive))

	res, err := New(cfg).Obfuscate(context.Background(), archive)
	require.NoError(t, err)

	var after bytes.Buffer
	require.NoError(t, modelio.Write(&after, archive))
	assert.Equal(t, before.String(), after.String())
	assert.Empty(t, res.Entries)
	assert.Zero(t, res.References)
}

func TestObfuscate_InvalidModel(t *testing.T) {
	archive := model.NewArchive(&model.Class{Name: "app/A"}, &model.Class{Name: "app/A"})

	_, err := New(testConfig()).Obfuscate(context.Background(), archive)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError), "got %v", err)
	assert.Contains(t, err.Error(), "stage=validate")
}

func TestObfuscate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(testConfig()).Obfuscate(ctx, scenario())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestObfuscate_InheritedFieldsKeepDistinctReferences(t *testing.T) {
	getX := &model.FieldInsn{Opcode: model.GETFIELD, Owner: "app/B", Name: "x", Desc: "I"}
	getY := &model.FieldInsn{Opcode: model.GETSTATIC, Owner: "app/B", Name: "y", Desc: "I"}
	archive := model.NewArchive(
		&model.Class{Name: "app/A", Access: publicClass, SuperName: model.ObjectClass,
			Fields: []*model.Field{{Name: "x", Desc: "I", Access: model.Access(model.AccPublic)}}},
		&model.Class{Name: "app/I", Access: model.Access(model.AccPublic | model.AccInterface | model.AccAbstract),
			Fields: []*model.Field{{Name: "y", Desc: "I", Access: model.Access(model.AccPublic | model.AccStatic | model.AccFinal), Value: int32(7)}}},
		&model.Class{Name: "app/B", Access: publicClass, SuperName: "app/A", Interfaces: []string{"app/I"},
			Methods: []*model.Method{{Name: "read", Desc: "()V", Access: model.Access(model.AccPublic), Instructions: []model.Instruction{
				getX, getY, &model.OpInsn{Opcode: model.RETURN},
			}}}},
	)
	cfg := config.Default()
	cfg.Seed = 1
	cfg.Renamer = config.Renamer{Fields: true, Names: config.NameOptions{Strategy: "alphabetic"}}
	cfg.Shuffler = config.Shuffler{}

	_, err := New(cfg).Obfuscate(context.Background(), archive)
	require.NoError(t, err)

	assert.NotEqual(t, getX.Name, getY.Name)
	idx := model.BuildIndex(archive)
	declX, ok := idx.ResolveField(getX.Owner, getX.Name, getX.Desc)
	require.True(t, ok)
	declY, ok := idx.ResolveField(getY.Owner, getY.Name, getY.Desc)
	require.True(t, ok)
	assert.Equal(t, "app/A", declX)
	assert.Equal(t, "app/I", declY)
}

func fileConfig(t *testing.T) (*config.Config, *history.Store) {
	t.Helper()
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Input = filepath.Join(dir, "in.json")
	cfg.Output = filepath.Join(dir, "out", "obfuscated.json")
	cfg.History.Enabled = true
	cfg.History.Path = filepath.Join(dir, "history.db")
	cfg.Telemetry.MetricsFile = filepath.Join(dir, "mangle.prom")
	require.NoError(t, modelio.WriteFile(cfg.Input, scenario()))

	store, err := history.Open(cfg.History.Path, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return cfg, store
}

func TestRunFiles_WritesOutputAndHistory(t *testing.T) {
	cfg, store := fileConfig(t)
	app := New(cfg, WithStore(store))

	res, err := app.RunFiles(context.Background())
	require.NoError(t, err)

	out, err := modelio.ReadFile(cfg.Output)
	require.NoError(t, err)
	assertReferencesResolve(t, out)
	assert.FileExists(t, cfg.Telemetry.MetricsFile)

	stored, err := app.Mappings("")
	require.NoError(t, err)
	assert.Equal(t, res.RunID, stored.RunID)
	assert.Equal(t, res.Entries, stored.Entries)
	assert.Equal(t, res.Renamed(), stored.Renamed())
	assert.Equal(t, res.Relocated(), stored.Relocated())

	byID, err := app.Mappings(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, cfg.Input, byID.Input)

	assert.Equal(t, "up", app.Health().Status)
	assert.Equal(t, res.RunID, app.Health().LastRun)
}

func TestRunFiles_FailureLeavesNoOutput(t *testing.T) {
	cfg, store := fileConfig(t)
	broken := model.NewArchive(&model.Class{Name: "app/A", Fields: []*model.Field{{Name: "f", Desc: "Q"}}})
	require.NoError(t, modelio.WriteFile(cfg.Input, broken))
	app := New(cfg, WithStore(store))

	_, err := app.RunFiles(context.Background())
	require.Error(t, err)
	assert.NoFileExists(t, cfg.Output)
	assert.Equal(t, "failing", app.Health().Status)

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestMappings_WithoutStore(t *testing.T) {
	_, err := New(testConfig()).Mappings("")
	assert.True(t, errors.IsCode(err, errors.CodeConfig), "got %v", err)
}

func TestWatch_RerunsOnChange(t *testing.T) {
	cfg, store := fileConfig(t)
	app := New(cfg, WithStore(store))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan Result, 4)
	done := make(chan error, 1)
	go func() {
		opts := WatchOptions{Paths: []string{cfg.Input}, Debounce: 20 * time.Millisecond, MinInterval: 300 * time.Millisecond}
		done <- app.Watch(ctx, opts, func(r Result, err error) {
			if err == nil {
				results <- r
			}
		})
	}()

	first := waitResult(t, results)
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(cfg.Input, mustJSON(t, scenario()), 0o644))
	second := waitResult(t, results)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.GreaterOrEqual(t, second.Started.Sub(first.Started), 250*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func waitResult(t *testing.T, results <-chan Result) Result {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no run reported")
		return Result{}
	}
}

func mustJSON(t *testing.T, archive *model.Archive) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, modelio.Write(&buf, archive))
	return buf.Bytes()
}
