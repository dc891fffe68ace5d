// Package composer runs the PHP dependency manager that creates and updates the
// target project.
package composer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Candidates are probed in order when no binary is configured.
var Candidates = []string{"composer", "composer.phar", "/usr/local/bin/composer", "/usr/bin/composer"}

var ErrNotFound = errors.New("composer executable not found")

// Executor runs an external program and returns its combined output.
type Executor interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecExecutor runs programs with os/exec.
type ExecExecutor struct{}

func (ExecExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// CommandError is a composer invocation that did not exit cleanly. Output holds
// everything the command printed.
type CommandError struct {
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s failed: %v", strings.Join(e.Args, " "), e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

type Composer struct {
	exec   Executor
	binary string
}

// Discover returns the first candidate that answers `--version` within timeout.
// A configured binary is tried before the built-in candidates.
func Discover(ctx context.Context, ex Executor, configured string, timeout time.Duration) (*Composer, error) {
	candidates := Candidates
	if configured != "" {
		candidates = append([]string{configured}, Candidates...)
	}

	for _, c := range candidates {
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		_, err := ex.Run(probeCtx, c, "--version")
		cancel()
		if err == nil {
			return &Composer{exec: ex, binary: c}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w (tried %s)", ErrNotFound, strings.Join(candidates, ", "))
}

func (c *Composer) Binary() string { return c.binary }

// CreateProject installs the skeleton package into target, which must not exist
// yet or be empty.
func (c *Composer) CreateProject(ctx context.Context, pkg, target, version string) error {
	return c.run(ctx, "create-project", pkg, target, version, "--prefer-dist", "--no-dev")
}

// Update resolves the dependencies of the project at target.
func (c *Composer) Update(ctx context.Context, target string) error {
	return c.run(ctx, "update", "--working-dir="+target)
}

func (c *Composer) run(ctx context.Context, args ...string) error {
	out, err := c.exec.Run(ctx, c.binary, args...)
	if err != nil {
		return &CommandError{
			Args:   append([]string{c.binary}, args...),
			Output: strings.TrimSpace(string(out)),
			Err:    err,
		}
	}
	return nil
}
