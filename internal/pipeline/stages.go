package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ci3to4/internal/composer"
	"ci3to4/internal/migrator"
	"ci3to4/internal/rewrite"
	"ci3to4/internal/scaffold"
)

func (c *Converter) validateStage(run *Run) error {
	info, err := os.Stat(run.LegacyRoot)
	if err != nil || !info.IsDir() {
		return &PreconditionError{Path: run.LegacyRoot, Reason: "not a directory"}
	}
	app := filepath.Join(run.LegacyRoot, "application")
	if info, err := os.Stat(app); err != nil || !info.IsDir() {
		return &PreconditionError{Path: app, Reason: "no application directory; not a CodeIgniter 3 project"}
	}
	if _, err := os.Stat(run.TargetRoot); err == nil {
		return &PreconditionError{Path: run.TargetRoot, Reason: "target already exists"}
	}
	return nil
}

func (c *Converter) backupStage(ctx context.Context, run *Run, st *stageStats) error {
	path, err := c.backup.Backup(ctx, run.LegacyRoot, c.opts.Now())
	if err != nil {
		return err
	}
	run.BackupPath = path
	st.Notes = append(st.Notes, "backup "+path)
	fmt.Fprintf(c.opts.Out, "📦 Backup written to %s\n", path)
	return nil
}

func (c *Converter) skeletonStage(ctx context.Context, run *Run, st *stageStats) error {
	if c.opts.SkipSkeleton {
		st.Notes = append(st.Notes, "skeleton skipped")
		return os.MkdirAll(run.TargetRoot, 0755)
	}

	cmp, err := composer.Discover(ctx, c.opts.Executor, c.opts.ComposerBinary, c.opts.ProbeTimeout)
	if err != nil {
		return &ToolError{Tool: "composer", Err: err}
	}
	run.composer = cmp
	st.Notes = append(st.Notes, "composer "+cmp.Binary())

	if err := cmp.CreateProject(ctx, c.opts.Package, run.TargetRoot, c.opts.Version); err != nil {
		return toolError(err)
	}
	return nil
}

func toolError(err error) error {
	var ce *composer.CommandError
	if errors.As(err, &ce) {
		return &ToolError{Tool: "composer", Output: ce.Output, Err: err}
	}
	return &ToolError{Tool: "composer", Err: err}
}

func (c *Converter) modelsStage(ctx context.Context, run *Run, st *stageStats) error {
	names, res, err := run.migrator.Models(ctx)
	if err != nil {
		return err
	}
	run.ModelNames = names
	c.collect(run, res, st)
	return nil
}

func (c *Converter) controllersStage(ctx context.Context, run *Run, st *stageStats) error {
	res, err := run.migrator.Controllers(ctx, run.ModelNames)
	if err != nil {
		return err
	}
	c.collect(run, res, st)
	return nil
}

// migrate turns a migrator step that needs nothing from earlier stages into a
// stage.
func (c *Converter) migrate(step func(*migrator.Migrator, context.Context) (*migrator.Result, error)) stageFunc {
	return func(ctx context.Context, run *Run, st *stageStats) error {
		res, err := step(run.migrator, ctx)
		if err != nil {
			return err
		}
		c.collect(run, res, st)
		return nil
	}
}

// legacyConfig reads application/config/<name>, returning "" when it is absent.
func legacyConfig(run *Run, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(run.LegacyRoot, "application", "config", name))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read legacy %s: %w", name, err)
	}
	return string(data), nil
}

func (c *Converter) namespacesStage(ctx context.Context, run *Run, st *stageStats) error {
	src, err := legacyConfig(run, "autoload.php")
	if err != nil {
		return err
	}
	entries := []scaffold.PSR4{
		{Namespace: c.opts.Namespaces.Helpers, Dir: "Helpers"},
		{Namespace: c.opts.Namespaces.Libraries, Dir: "Libraries"},
	}
	changes, err := scaffold.WriteAutoload(run.TargetRoot, entries, rewrite.ExtractAutoloadHelpers(src))
	if err != nil {
		return err
	}
	st.count("changes", len(changes))
	st.Notes = append(st.Notes, changes...)
	return nil
}

func (c *Converter) manifestStage(ctx context.Context, run *Run, st *stageStats) error {
	changes, err := composer.MergeRequire(
		filepath.Join(run.LegacyRoot, "composer.json"),
		filepath.Join(run.TargetRoot, "composer.json"),
	)
	if err != nil {
		return err
	}
	st.count("packages", len(changes))
	for _, ch := range changes {
		if ch.From == "" {
			st.Notes = append(st.Notes, fmt.Sprintf("require %s %s", ch.Package, ch.To))
		} else {
			st.Notes = append(st.Notes, fmt.Sprintf("require %s %s -> %s", ch.Package, ch.From, ch.To))
		}
	}

	if c.opts.SkipUpdate || run.composer == nil {
		st.Notes = append(st.Notes, "composer update skipped")
		return nil
	}
	if err := run.composer.Update(ctx, run.TargetRoot); err != nil {
		return toolError(err)
	}
	return nil
}

func (c *Converter) environmentStage(ctx context.Context, run *Run, st *stageStats) error {
	src, err := legacyConfig(run, "database.php")
	if err != nil {
		return err
	}
	creds := rewrite.ExtractDatabaseCredentials(src)
	st.count("credentials", len(creds))
	return scaffold.SetupEnv(ctx, run.TargetRoot, rewrite.DatabaseKeys, creds)
}
