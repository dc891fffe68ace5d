// Package pipeline converts a legacy CodeIgniter 3 project into a new
// CodeIgniter 4 project next to it, one fixed stage after another.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ci3to4/internal/backup"
	"ci3to4/internal/composer"
	"ci3to4/internal/mapping"
	"ci3to4/internal/migrator"
	"ci3to4/internal/rewrite"
	"ci3to4/internal/storage"

	"github.com/google/uuid"
)

// Reporter is told when each counted stage starts and how the run ended.
type Reporter interface {
	Stage(step, total int, label string)
	Finish(err error)
}

// Ledger persists finished runs.
type Ledger interface {
	SaveRun(ctx context.Context, run *storage.Run) error
}

type Options struct {
	Executor       composer.Executor
	ComposerBinary string
	Package        string
	Version        string
	ProbeTimeout   time.Duration
	SkipSkeleton   bool
	SkipUpdate     bool

	Namespaces migrator.Namespaces
	ReportFile string // relative to the target tree; empty disables the report

	Reporter Reporter
	Ledger   Ledger
	Out      io.Writer
	Now      func() time.Time
}

type Converter struct {
	opts   Options
	backup *backup.Service
}

func NewConverter(opts Options) *Converter {
	if opts.Executor == nil {
		opts.Executor = composer.ExecExecutor{}
	}
	if opts.Package == "" {
		opts.Package = "codeigniter4/appstarter"
	}
	if opts.Version == "" {
		opts.Version = "^4.0"
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 5 * time.Second
	}
	if opts.Namespaces == (migrator.Namespaces{}) {
		opts.Namespaces = migrator.DefaultNamespaces()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Converter{opts: opts, backup: backup.New()}
}

// stageStats is what a stage reports about itself.
type stageStats struct {
	Counters map[string]float64
	Notes    []string
}

func (s *stageStats) count(key string, n int) {
	if s.Counters == nil {
		s.Counters = map[string]float64{}
	}
	s.Counters[key] += float64(n)
}

type stageFunc func(ctx context.Context, run *Run, st *stageStats) error

// Run converts the project at legacyRoot. The returned run is never nil; on
// failure its Err equals the returned error and the target tree is removed.
func (c *Converter) Run(ctx context.Context, legacyRoot string) (*Run, error) {
	run := c.newRun(legacyRoot)

	if err := c.validateStage(run); err != nil {
		return run, c.abort(ctx, run, err, false)
	}

	run.migrator = migrator.New(run.LegacyRoot, run.TargetRoot, c.opts.Namespaces)
	run.report = NewReport(run.ID, run.LegacyRoot, run.TargetRoot)
	fmt.Fprintf(c.opts.Out, "🚀 Converting %s into %s\n", run.LegacyRoot, run.TargetRoot)

	stages := []struct {
		stage Stage
		fn    stageFunc
	}{
		{BackingUp, c.backupStage},
		{FetchingSkeleton, c.skeletonStage},
		{MigratingModels, c.modelsStage},
		{MigratingControllers, c.controllersStage},
		{MigratingViews, c.migrate((*migrator.Migrator).Views)},
		{MigratingConfig, c.migrate((*migrator.Migrator).Config)},
		{MigratingRoutes, c.migrate((*migrator.Migrator).Routes)},
		{MigratingHelpers, c.migrate((*migrator.Migrator).Helpers)},
		{MigratingLibraries, c.migrate((*migrator.Migrator).Libraries)},
		{WritingNamespaces, c.namespacesStage},
		{UpdatingPackageManifest, c.manifestStage},
		{SettingUpEnvironment, c.environmentStage},
	}
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return run, c.abort(ctx, run, &StageError{Stage: s.stage, Err: err}, true)
		}
		run.advance(s.stage)
		if c.opts.Reporter != nil {
			c.opts.Reporter.Stage(run.Step, run.Total, s.stage.String())
		}

		var st stageStats
		h := run.report.BeginStage(s.stage.String())
		err := s.fn(ctx, run, &st)
		run.report.EndStage(h, st.Counters, st.Notes, err)
		if err != nil {
			return run, c.abort(ctx, run, &StageError{Stage: s.stage, Err: err}, true)
		}
	}

	run.finish(c.opts.Now())
	if c.opts.ReportFile != "" {
		path := filepath.Join(run.TargetRoot, c.opts.ReportFile)
		if err := run.report.Save(path, len(run.Artifacts)); err != nil {
			log.Printf("⚠️ Failed to write report %s: %v", path, err)
		} else {
			fmt.Fprintf(c.opts.Out, "📝 Report written to %s\n", path)
		}
	}
	c.record(ctx, run)
	if c.opts.Reporter != nil {
		c.opts.Reporter.Finish(nil)
	}
	return run, nil
}

func (c *Converter) newRun(legacyRoot string) *Run {
	root := filepath.Clean(legacyRoot)
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	id := uuid.New()
	return &Run{
		ID:         id.String(),
		LegacyRoot: root,
		TargetRoot: root + "_ci4" + targetToken(id),
		Stage:      Validating,
		Total:      TotalSteps,
		Outcome:    OutcomeRunning,
		StartedAt:  c.opts.Now(),
		ModelNames: mapping.ModelNames{},
	}
}

// targetToken is the 13 hex character suffix that keeps target trees apart.
func targetToken(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")[:13]
}

// abort marks the run failed. With rollback the target tree is removed; the
// legacy tree and the backup are kept.
func (c *Converter) abort(ctx context.Context, run *Run, err error, rollback bool) error {
	run.fail(err, c.opts.Now())
	if rollback {
		// Cleanup runs even when ctx is cancelled.
		if rmErr := c.backup.Remove(context.WithoutCancel(ctx), run.TargetRoot); rmErr != nil {
			log.Printf("⚠️ Rollback failed: %v", rmErr)
		}
	}
	c.record(ctx, run)
	if c.opts.Reporter != nil {
		c.opts.Reporter.Finish(err)
	}
	return err
}

func (c *Converter) record(ctx context.Context, run *Run) {
	if c.opts.Ledger == nil {
		return
	}
	if err := c.opts.Ledger.SaveRun(context.WithoutCancel(ctx), toRecord(run)); err != nil {
		log.Printf("⚠️ Failed to record run %s: %v", run.ID, err)
	}
}

func toRecord(run *Run) *storage.Run {
	rec := &storage.Run{
		ID:         run.ID,
		LegacyPath: run.LegacyRoot,
		TargetPath: run.TargetRoot,
		BackupPath: run.BackupPath,
		Status:     string(run.Outcome),
		Step:       run.Step,
		Total:      run.Total,
		Label:      run.Stage.String(),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
	if run.Err != nil {
		rec.Error = run.Err.Error()
		var se *StageError
		var pe *PreconditionError
		switch {
		case errors.As(run.Err, &se):
			rec.Label = se.Stage.String()
		case errors.As(run.Err, &pe):
			rec.Label = Validating.String()
		}
	}
	for _, a := range run.Artifacts {
		rec.Artifacts = append(rec.Artifacts, storage.Artifact{Kind: string(a.Kind), Source: a.Source, Target: a.Target})
	}
	for _, d := range run.Diagnostics {
		rec.Diagnostics = append(rec.Diagnostics, storage.Diagnostic{
			File:     d.File,
			Rule:     d.Rule,
			Severity: string(d.Severity),
			Message:  d.Message,
			Line:     d.Line,
		})
	}
	return rec
}

// collect adds a migrator result to the run and the report.
func (c *Converter) collect(run *Run, res *migrator.Result, st *stageStats) {
	run.Artifacts = append(run.Artifacts, res.Artifacts...)
	run.Diagnostics = append(run.Diagnostics, res.Diagnostics...)
	st.count("files", len(res.Artifacts))
	st.count("diagnostics", len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		run.report.AddSignal(ReportSignal{
			Code:     d.Rule,
			Stage:    run.Stage.String(),
			Severity: signalSeverity(d.Severity),
			File:     d.File,
			Line:     d.Line,
			Message:  d.Message,
		})
	}
}

func signalSeverity(s rewrite.Severity) string {
	switch s {
	case rewrite.SeverityError:
		return "critical"
	case rewrite.SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}
