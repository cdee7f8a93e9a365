package app

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strconv"

	"mangle/internal/core/errors"
	"mangle/internal/engine/exclusion"
	"mangle/internal/engine/mapping"
	"mangle/internal/engine/model"
	"mangle/internal/engine/names"
	"mangle/internal/engine/relocate"
	"mangle/internal/engine/rewrite"
	"mangle/internal/engine/shuffle"
	"mangle/internal/shared/observability"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	stageValidate = "validate"
	stageIndex    = "index"
	stageMapping  = "mapping"
	stageRelocate = "relocate"
	stageRewrite  = "rewrite"
	stageShuffle  = "shuffle"
)

// pass holds the state shared by the stages of one run. Nothing in it
// outlives the run.
type pass struct {
	archive     *model.Archive
	rng         *rand.Rand
	index       *model.Index
	policy      *mapping.Policy
	renames     *mapping.Renames
	relocations *mapping.Relocations
	result      *Result
	logger      *slog.Logger
}

// Obfuscate runs every stage over archive in place. The stages run strictly in
// order; on error the archive is partially transformed and must be discarded.
func (a *App) Obfuscate(ctx context.Context, archive *model.Archive) (Result, error) {
	start := a.now()
	res := Result{
		RunID:   uuid.NewString(),
		Seed:    a.seed(),
		Started: start,
		Classes: len(archive.Classes),
	}
	ctx, span := observability.Tracer.Start(ctx, "app.Obfuscate", trace.WithAttributes(
		attribute.String("run.id", res.RunID),
		attribute.String("run.seed", strconv.FormatUint(res.Seed, 10)),
		attribute.Int("archive.classes", res.Classes),
	))
	defer span.End()

	p := &pass{
		archive: archive,
		rng:     rand.New(rand.NewPCG(res.Seed, res.Seed^0x9e3779b97f4a7c15)),
		result:  &res,
		logger:  slog.Default().With("run", res.RunID),
	}
	p.logger.Info("run started", "seed", res.Seed, "classes", res.Classes)
	observability.ArchiveClasses.Set(float64(res.Classes))

	stages := []struct {
		name string
		fn   func(*pass) error
	}{
		{stageValidate, a.validate},
		{stageIndex, a.buildIndex},
		{stageMapping, a.generateMappings},
		{stageRelocate, a.relocate},
		{stageRewrite, a.rewrite},
		{stageShuffle, a.shuffle},
	}
	for _, s := range stages {
		if err := runStage(ctx, s.name, p, s.fn); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			observability.RunsTotal.WithLabelValues("error").Inc()
			p.logger.Error("run failed", "stage", s.name, "error", err)
			return Result{}, err
		}
	}

	res.Entries = mapping.Entries(p.renames, p.relocations)
	res.countRenames()
	res.Duration = a.now().Sub(start)
	recordMetrics(res)
	p.logger.Info("run finished",
		"renamed", res.Renamed(),
		"relocated", res.Relocated(),
		"references", res.References,
		"shuffled", res.ClassesShuffled,
		"duration", res.Duration)
	return res, nil
}

func runStage(ctx context.Context, name string, p *pass, fn func(*pass) error) error {
	if err := ctx.Err(); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "run cancelled"), errors.CtxStage, name)
	}
	_, span := observability.Tracer.Start(ctx, "stage."+name)
	defer span.End()
	timer := prometheus.NewTimer(observability.StageDuration.WithLabelValues(name))
	defer timer.ObserveDuration()

	if err := fn(p); err != nil {
		span.RecordError(err)
		return errors.AddContext(err, errors.CtxStage, name)
	}
	return nil
}

// seed returns the configured seed, or one derived from the clock. The value
// is logged and stored so the run can be reproduced.
func (a *App) seed() uint64 {
	if a.Config.Seed != 0 {
		return a.Config.Seed
	}
	if s := uint64(a.now().UnixNano()); s != 0 {
		return s
	}
	return 1
}

func (a *App) validate(p *pass) error {
	if err := model.Validate(p.archive); err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "invalid model")
	}
	return nil
}

func (a *App) buildIndex(p *pass) error {
	p.index = model.BuildIndex(p.archive)
	filter := exclusion.New(a.Config.Exclusion.Patterns, a.Config.Exclusion.ReservedPrefixes)
	p.policy = mapping.NewPolicy(p.index, filter)
	p.logger.Debug("index built", "classes", len(p.index.Classes()), "exclusions", filter.Len())
	return nil
}

func (a *App) generateMappings(p *pass) error {
	suppliers, err := a.suppliers(p.rng)
	if err != nil {
		return err
	}
	opts := mapping.Options{
		Classes: a.Config.Renamer.Classes,
		Fields:  a.Config.Renamer.Fields,
		Methods: a.Config.Renamer.Methods,
	}
	renames, err := mapping.NewGenerator(p.archive, p.policy, suppliers, opts).Generate()
	if err != nil {
		return err
	}
	p.renames = renames
	return nil
}

// suppliers share the run's generator. Class names are lower case only.
func (a *App) suppliers(rng *rand.Rand) (mapping.Suppliers, error) {
	n := a.Config.Renamer.Names
	classes, err := names.New(n.Supplier(true), rng)
	if err != nil {
		return mapping.Suppliers{}, errors.Wrap(err, errors.CodeConfig, "class name supplier")
	}
	members, err := names.New(n.Supplier(false), rng)
	if err != nil {
		return mapping.Suppliers{}, errors.Wrap(err, errors.CodeConfig, "member name supplier")
	}
	return mapping.Suppliers{Classes: classes, Fields: members, Methods: members}, nil
}

func (a *App) relocate(p *pass) error {
	s := a.Config.Shuffler
	if !s.CrossClassFields && !s.CrossClassMethods {
		p.relocations = mapping.NewRelocations()
		return nil
	}
	targets, err := relocate.CompilePatterns(s.Targets)
	if err != nil {
		return errors.Wrap(err, errors.CodeConfig, "shuffler.targets")
	}
	trusted, err := relocate.CompilePatterns(s.TrustedLibraries)
	if err != nil {
		return errors.Wrap(err, errors.CodeConfig, "shuffler.trusted_libraries")
	}

	engine := relocate.New(p.archive, p.policy, p.renames, p.rng, relocate.Options{
		Fields:  s.CrossClassFields,
		Methods: s.CrossClassMethods,
		Targets: targets,
		Trusted: trusted,
	})
	relocations, err := engine.Run()
	if err != nil {
		return err
	}
	stats := engine.Stats()
	p.relocations = relocations
	p.result.FieldsRelocated = stats.FieldsMoved
	p.result.MethodsRelocated = stats.MethodsMoved
	p.result.ConstantsFolded = stats.FieldsFolded
	return nil
}

func (a *App) rewrite(p *pass) error {
	rw := rewrite.New(p.index, p.renames, p.relocations)
	rw.Apply(p.archive)
	stats := rw.Stats()
	p.result.Declarations = stats.Declarations
	p.result.References = stats.References
	return nil
}

func (a *App) shuffle(p *pass) error {
	s := a.Config.Shuffler
	p.result.ClassesShuffled = shuffle.New(p.rng, shuffle.Options{Fields: s.Fields, Methods: s.Methods}).Apply(p.archive)
	return nil
}

func recordMetrics(res Result) {
	observability.RunsTotal.WithLabelValues("ok").Inc()
	observability.SymbolsRenamedTotal.WithLabelValues("class").Add(float64(res.ClassesRenamed))
	observability.SymbolsRenamedTotal.WithLabelValues("field").Add(float64(res.FieldsRenamed))
	observability.SymbolsRenamedTotal.WithLabelValues("method").Add(float64(res.MethodsRenamed))
	observability.MembersRelocatedTotal.WithLabelValues("field").Add(float64(res.FieldsRelocated))
	observability.MembersRelocatedTotal.WithLabelValues("method").Add(float64(res.MethodsRelocated))
	observability.ConstantsFoldedTotal.Add(float64(res.ConstantsFolded))
	observability.ReferencesRewrittenTotal.Add(float64(res.References))
	observability.ClassesShuffledTotal.Add(float64(res.ClassesShuffled))
}
