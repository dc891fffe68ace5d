// Package scaffold adjusts the files of the CI4 skeleton that the migrated
// application depends on: the environment file and the autoloader config.
package scaffold

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/viant/afs"
)

const (
	envKeyPrefix = "database.default."
	environment  = "development"
)

var (
	environmentLine = regexp.MustCompile(`(?m)^[ \t]*#?[ \t]*CI_ENVIRONMENT[ \t]*=.*$`)
	bareValue       = regexp.MustCompile(`^[A-Za-z0-9_./:@+-]*$`)
)

// SetupEnv copies <target>/env to <target>/.env, writes the database
// credentials in keys order and selects the development environment. Without a
// template the file is created from scratch. The result is parsed back to make
// sure every value survived.
func SetupEnv(ctx context.Context, target string, keys []string, creds map[string]string) error {
	tmpl := filepath.Join(target, "env")
	dst := filepath.Join(target, ".env")

	fs := afs.New()
	ok, err := fs.Exists(ctx, tmpl)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", tmpl, err)
	}
	if ok {
		if err := fs.Copy(ctx, tmpl, dst); err != nil {
			return fmt.Errorf("failed to copy %s: %w", tmpl, err)
		}
	} else if err := os.WriteFile(dst, nil, 0644); err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dst, err)
	}
	text := setEnvLine(string(data), environmentLine, "CI_ENVIRONMENT = "+environment)
	for _, k := range keys {
		v, ok := creds[k]
		if !ok {
			continue
		}
		key := envKeyPrefix + k
		line := regexp.MustCompile(`(?m)^[ \t]*#?[ \t]*` + regexp.QuoteMeta(key) + `[ \t]*=.*$`)
		text = setEnvLine(text, line, key+" = "+quote(v))
	}
	if err := os.WriteFile(dst, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}

	return verifyEnv(dst, keys, creds)
}

// setEnvLine replaces the first line matching re with line, or appends it.
func setEnvLine(text string, re *regexp.Regexp, line string) string {
	loc := re.FindStringIndex(text)
	if loc == nil {
		if text != "" && !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		return text + line + "\n"
	}
	return text[:loc[0]] + line + text[loc[1]:]
}

// quote leaves simple values bare and single-quotes the rest so no variable
// expansion applies. Values holding a single quote or newline are
// double-quoted.
func quote(v string) string {
	if bareValue.MatchString(v) {
		return v
	}
	if !strings.ContainsAny(v, "'\n") {
		return "'" + v + "'"
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(v) + `"`
}

func verifyEnv(path string, keys []string, creds map[string]string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if got := env["CI_ENVIRONMENT"]; got != environment {
		return fmt.Errorf("%s: CI_ENVIRONMENT is %q", path, got)
	}
	for _, k := range keys {
		want, ok := creds[k]
		if !ok {
			continue
		}
		if got := env[envKeyPrefix+k]; got != want {
			return fmt.Errorf("%s: %s%s is %q, want %q", path, envKeyPrefix, k, got, want)
		}
	}
	return nil
}
