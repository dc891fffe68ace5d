// Package migrator drives the per-artifact rewrites: it enumerates the legacy
// files of one kind, runs the matching rewrite chain and writes the result into
// the target tree.
package migrator

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"ci3to4/internal/phpsyntax"
	"ci3to4/internal/rewrite"
)

type Kind string

const (
	KindController Kind = "controller"
	KindModel      Kind = "model"
	KindView       Kind = "view"
	KindConfig     Kind = "config"
	KindRoute      Kind = "route"
	KindHelper     Kind = "helper"
	KindLibrary    Kind = "library"
)

// Legacy directories under application/ and their CI4 counterparts under app/.
var dirs = map[Kind][2]string{
	KindController: {"controllers", "Controllers"},
	KindModel:      {"models", "Models"},
	KindView:       {"views", "Views"},
	KindConfig:     {"config", "Config"},
	KindRoute:      {"config", "Config"},
	KindHelper:     {"helpers", "Helpers"},
	KindLibrary:    {"libraries", "Libraries"},
}

// Namespaces are the PHP namespaces given to each artifact kind.
type Namespaces struct {
	Controllers string
	Models      string
	Helpers     string
	Libraries   string
	Config      string
}

func DefaultNamespaces() Namespaces {
	return Namespaces{
		Controllers: `App\Controllers`,
		Models:      `App\Models`,
		Helpers:     `App\Helpers`,
		Libraries:   `App\Libraries`,
		Config:      `Config`,
	}
}

// Artifact records one written target file.
type Artifact struct {
	Kind   Kind   `json:"kind"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Result collects what one migrator wrote and what it noticed on the way.
type Result struct {
	Kind        Kind
	Artifacts   []Artifact
	Diagnostics []rewrite.Diagnostic
}

// Migrator rewrites the application/ directory of a legacy tree into the app/
// directory of a target tree.
type Migrator struct {
	legacyApp string
	targetApp string
	ns        Namespaces
	checker   *phpsyntax.Checker
}

// New creates a migrator reading <legacyRoot>/application and writing
// <targetRoot>/app.
func New(legacyRoot, targetRoot string, ns Namespaces) *Migrator {
	return &Migrator{
		legacyApp: filepath.Join(legacyRoot, "application"),
		targetApp: filepath.Join(targetRoot, "app"),
		ns:        ns,
		checker:   phpsyntax.NewChecker(),
	}
}

func (m *Migrator) legacyDir(k Kind) string { return filepath.Join(m.legacyApp, dirs[k][0]) }
func (m *Migrator) targetDir(k Kind) string { return filepath.Join(m.targetApp, dirs[k][1]) }

// process reads src, applies chain and writes dst.
func (m *Migrator) process(ctx context.Context, res *Result, src, dst string, chain *rewrite.Chain) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	out, diags := chain.Apply(string(data))
	return m.emit(ctx, res, src, dst, out, diags)
}

// emit writes a rewritten file, then records the rule diagnostics and any
// syntax problems of the output.
func (m *Migrator) emit(ctx context.Context, res *Result, src, dst, out string, diags []rewrite.Diagnostic) error {
	if err := writeFile(dst, []byte(out)); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}

	rel := m.relative(src)
	for _, d := range diags {
		d.File = rel
		res.Diagnostics = append(res.Diagnostics, d)
	}
	res.Artifacts = append(res.Artifacts, Artifact{Kind: res.Kind, Source: src, Target: dst})

	if !strings.EqualFold(filepath.Ext(dst), ".php") {
		return nil
	}
	problems, err := m.checker.Check(ctx, []byte(out))
	if err != nil {
		log.Printf("⚠️ Skipping syntax check of %s: %v", dst, err)
		return nil
	}
	if len(problems) > 0 {
		res.Diagnostics = append(res.Diagnostics, rewrite.Diagnostic{
			File:     rel,
			Rule:     "syntax",
			Severity: rewrite.SeverityError,
			Message:  fmt.Sprintf("rewritten file does not parse (%d problems, first at %s)", len(problems), problems[0]),
			Line:     problems[0].Line,
		})
	}
	return nil
}

func (m *Migrator) relative(path string) string {
	rel, err := filepath.Rel(m.legacyApp, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// writeFile replaces path atomically so a target file is either complete or
// absent.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".ci3to4-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
