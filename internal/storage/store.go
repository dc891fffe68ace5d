package storage

import (
	"context"
	"time"
)

// RunStore persists conversion runs together with what they wrote and reported.
type RunStore interface {
	// SaveRun upserts a run and replaces its artifacts and diagnostics.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun loads one run with its artifacts and diagnostics.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns the most recent runs first, without artifacts and
	// diagnostics.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	Close() error
}

type Run struct {
	ID         string
	LegacyPath string
	TargetPath string
	BackupPath string
	Status     string
	Step       int
	Total      int
	Label      string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time

	Artifacts   []Artifact
	Diagnostics []Diagnostic

	// Filled by ListRuns.
	ArtifactCount   int
	DiagnosticCount int
}

type Artifact struct {
	Kind   string
	Source string
	Target string
}

type Diagnostic struct {
	File     string
	Rule     string
	Severity string
	Message  string
	Line     int
}
