package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "ci3to4.yaml"

type Config struct {
	Project struct {
		Path string `yaml:"path"`
	} `yaml:"project"`
	Composer struct {
		Binary       string        `yaml:"binary"`
		Package      string        `yaml:"package"`
		Version      string        `yaml:"version"`
		ProbeTimeout time.Duration `yaml:"probe_timeout"`
		SkipSkeleton bool          `yaml:"skip_skeleton"`
		SkipUpdate   bool          `yaml:"skip_update"`
	} `yaml:"composer"`
	Namespaces struct {
		Controllers string `yaml:"controllers"`
		Models      string `yaml:"models"`
		Helpers     string `yaml:"helpers"`
		Libraries   string `yaml:"libraries"`
		Config      string `yaml:"config"`
	} `yaml:"namespaces"`
	Storage struct {
		DBPath string `yaml:"db_path"` // empty disables the run ledger
	} `yaml:"storage"`
	Report struct {
		File string `yaml:"file"` // relative to the target tree
	} `yaml:"report"`
}

// DefaultDBPath is the run history location under the user cache directory,
// or the temp directory when there is none.
func DefaultDBPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "ci3to4", "history.db")
}

// LedgerPath resolves dbPath against the working directory. A path inside
// legacyRoot is replaced by DefaultDBPath and reported as relocated, so the run
// history never writes into the project being converted.
func LedgerPath(dbPath, legacyRoot string) (path string, relocated bool, err error) {
	if dbPath == "" {
		return "", false, nil
	}
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve db path %s: %w", dbPath, err)
	}
	root, err := filepath.Abs(legacyRoot)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve project path %s: %w", legacyRoot, err)
	}
	if !within(abs, root) {
		return abs, false, nil
	}
	fallback := DefaultDBPath()
	if within(fallback, root) {
		return "", false, fmt.Errorf("run history %s is inside the project %s", fallback, root)
	}
	return fallback, true, nil
}

func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Default returns the settings used for every key the file leaves out.
func Default() *Config {
	var cfg Config
	cfg.Composer.Package = "codeigniter4/appstarter"
	cfg.Composer.Version = "^4.0"
	cfg.Composer.ProbeTimeout = 5 * time.Second
	cfg.Namespaces.Controllers = `App\Controllers`
	cfg.Namespaces.Models = `App\Models`
	cfg.Namespaces.Helpers = `App\Helpers`
	cfg.Namespaces.Libraries = `App\Libraries`
	cfg.Namespaces.Config = `Config`
	cfg.Storage.DBPath = DefaultDBPath()
	cfg.Report.File = "writable/ci3to4-report.json"
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	// 2. Load YAML config over the defaults; a missing file keeps them
	cfg := Default()
	if path == "" {
		path = DefaultFile
	}
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	// 3. Override with Environment Variables if present
	if bin := os.Getenv("CI3TO4_COMPOSER"); bin != "" {
		cfg.Composer.Binary = bin
	}
	if db := os.Getenv("CI3TO4_DB"); db != "" {
		cfg.Storage.DBPath = db
	}
	if skip := os.Getenv("CI3TO4_SKIP_SKELETON"); skip != "" {
		v, err := strconv.ParseBool(skip)
		if err != nil {
			return nil, fmt.Errorf("invalid CI3TO4_SKIP_SKELETON %q: %w", skip, err)
		}
		cfg.Composer.SkipSkeleton = v
	}

	return cfg, nil
}
