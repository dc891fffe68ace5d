package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"ci3to4/internal/composer"
	"ci3to4/internal/config"
	"ci3to4/internal/migrator"
	"ci3to4/internal/pipeline"
	"ci3to4/internal/progress"
	"ci3to4/internal/rewrite"
	"ci3to4/internal/storage"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "ci3to4",
		Short: "Convert a CodeIgniter 3 project into a CodeIgniter 4 project",
		Long: "Converts the CodeIgniter 3 project at --path into a new CodeIgniter 4 project\n" +
			"next to it. The legacy project is backed up first and never modified.",
		Args: cobra.NoArgs,
		Run:  runConvert,
	}
	configPath   string
	dbPath       string
	projectPath  string
	skipSkeleton bool
	skipUpdate   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultFile, "Path to the ci3to4 config file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the run history database (SQLite)")

	rootCmd.Flags().StringVarP(&projectPath, "path", "p", "", "CodeIgniter 3 project root (default: working directory)")
	rootCmd.Flags().BoolVar(&skipSkeleton, "skip-skeleton", false, "Do not fetch the CodeIgniter 4 skeleton with composer")
	rootCmd.Flags().BoolVar(&skipUpdate, "skip-update", false, "Do not run composer update after merging composer.json")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to list")
	rootCmd.AddCommand(historyCmd)
}

// loadConfig applies the command line over the config file.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cmd.Flags().Changed("db") {
		cfg.Storage.DBPath = dbPath
	}
	if cmd.Flags().Changed("path") {
		cfg.Project.Path = projectPath
	}
	if skipSkeleton {
		cfg.Composer.SkipSkeleton = true
	}
	if skipUpdate {
		cfg.Composer.SkipUpdate = true
	}
	return cfg
}

// initStore opens the run history, or returns nil when it is disabled.
func initStore(path string) (*storage.SQLiteStore, error) {
	if path == "" {
		return nil, nil
	}
	return storage.NewSQLiteStore(path)
}

func runConvert(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)

	root := cfg.Project.Path
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Fatalf("Failed to get current directory: %v", err)
		}
		root = wd
	}

	opts := pipeline.Options{
		Executor:       composer.ExecExecutor{},
		ComposerBinary: cfg.Composer.Binary,
		Package:        cfg.Composer.Package,
		Version:        cfg.Composer.Version,
		ProbeTimeout:   cfg.Composer.ProbeTimeout,
		SkipSkeleton:   cfg.Composer.SkipSkeleton,
		SkipUpdate:     cfg.Composer.SkipUpdate,
		Namespaces: migrator.Namespaces{
			Controllers: cfg.Namespaces.Controllers,
			Models:      cfg.Namespaces.Models,
			Helpers:     cfg.Namespaces.Helpers,
			Libraries:   cfg.Namespaces.Libraries,
			Config:      cfg.Namespaces.Config,
		},
		ReportFile: cfg.Report.File,
		Reporter:   progress.New(cmd.OutOrStdout(), 40),
		Out:        cmd.OutOrStdout(),
	}

	var store *storage.SQLiteStore
	dbFile, relocated, err := config.LedgerPath(cfg.Storage.DBPath, root)
	if err == nil {
		if relocated {
			log.Printf("⚠️ %s is inside the project, recording run history in %s", cfg.Storage.DBPath, dbFile)
		}
		store, err = initStore(dbFile)
	}
	if err != nil {
		log.Printf("⚠️ Run history disabled: %v", err)
	} else if store != nil {
		defer store.Close()
		opts.Ledger = store
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	run, err := pipeline.NewConverter(opts).Run(ctx, root)
	printDiagnostics(cmd, run.Diagnostics)
	if err != nil {
		if store != nil {
			store.Close()
		}
		os.Exit(1)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "🎉 %d files written to %s in %v\n", len(run.Artifacts), run.TargetRoot, time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(cmd.OutOrStdout(), "📦 Backup: %s\n", run.BackupPath)
}

// printDiagnostics lists warnings and errors; informational diagnostics only go
// to the report.
func printDiagnostics(cmd *cobra.Command, diags []rewrite.Diagnostic) {
	info := 0
	for _, d := range diags {
		if d.Severity == rewrite.SeverityInfo {
			info++
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "⚠️ %s\n", d)
	}
	if info > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "📝 %d informational diagnostics, see the report\n", info)
	}
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent conversion runs",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		store, err := initStore(cfg.Storage.DBPath)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		if store == nil {
			log.Fatalf("Run history is disabled (storage.db_path is empty)")
		}
		defer store.Close()

		runs, err := store.ListRuns(context.Background(), historyLimit)
		if err != nil {
			log.Fatalf("Failed to list runs: %v", err)
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
			return
		}
		for _, r := range runs {
			status := "✅"
			if r.Status != "done" {
				status = "❌"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s  %s  %s -> %s  step %d/%d (%s)  files=%d diagnostics=%d\n",
				status, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.ID[:8],
				r.LegacyPath, r.TargetPath, r.Step, r.Total, r.Label, r.ArtifactCount, r.DiagnosticCount)
			if r.Error != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "   %s\n", r.Error)
			}
		}
	},
}
