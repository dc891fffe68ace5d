package pipeline

import (
	"time"

	"ci3to4/internal/composer"
	"ci3to4/internal/mapping"
	"ci3to4/internal/migrator"
	"ci3to4/internal/rewrite"
)

type Stage int

const (
	Validating Stage = iota
	BackingUp
	FetchingSkeleton
	MigratingModels
	MigratingControllers
	MigratingViews
	MigratingConfig
	MigratingRoutes
	MigratingHelpers
	MigratingLibraries
	WritingNamespaces
	UpdatingPackageManifest
	SettingUpEnvironment
	Done
	Failed
)

// TotalSteps counts the stages after validation.
const TotalSteps = int(SettingUpEnvironment - Validating)

var stageLabels = map[Stage]string{
	Validating:              "Validating",
	BackingUp:               "Backing up legacy project",
	FetchingSkeleton:        "Fetching CodeIgniter 4 skeleton",
	MigratingModels:         "Migrating models",
	MigratingControllers:    "Migrating controllers",
	MigratingViews:          "Migrating views",
	MigratingConfig:         "Migrating config",
	MigratingRoutes:         "Migrating routes",
	MigratingHelpers:        "Migrating helpers",
	MigratingLibraries:      "Migrating libraries",
	WritingNamespaces:       "Writing namespaces",
	UpdatingPackageManifest: "Updating composer.json",
	SettingUpEnvironment:    "Setting up environment",
	Done:                    "Done",
	Failed:                  "Failed",
}

func (s Stage) String() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return "Unknown"
}

type Outcome string

const (
	OutcomeRunning Outcome = "running"
	OutcomeDone    Outcome = "done"
	OutcomeFailed  Outcome = "failed"
)

// Run is the state of one conversion, threaded through every stage.
type Run struct {
	ID         string
	LegacyRoot string
	TargetRoot string
	BackupPath string

	Stage   Stage
	Step    int
	Total   int
	Outcome Outcome
	Err     error

	StartedAt  time.Time
	FinishedAt time.Time

	// ModelNames is filled by the model stage and read by the controller stage.
	ModelNames  mapping.ModelNames
	Artifacts   []migrator.Artifact
	Diagnostics []rewrite.Diagnostic

	migrator *migrator.Migrator
	composer *composer.Composer
	report   *Report
}

// advance enters s. Every stage after validation counts as one step.
func (r *Run) advance(s Stage) {
	r.Stage = s
	if s > Validating && s < Done {
		r.Step = int(s - Validating)
	}
}

func (r *Run) fail(err error, now time.Time) {
	r.Stage = Failed
	r.Outcome = OutcomeFailed
	r.Err = err
	r.FinishedAt = now
}

func (r *Run) finish(now time.Time) {
	r.Stage = Done
	r.Outcome = OutcomeDone
	r.FinishedAt = now
}
