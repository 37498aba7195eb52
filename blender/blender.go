// Package blender drives the Blender executable to export meshes and armatures and
// parses what the exporter addons print.
package blender

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/pkg/errors"
)

const DefaultExecutable = "blender"

// Config selects the Blender executable. The zero value runs "blender" from PATH.
type Config struct {
	Executable string
	// Args are passed before every other argument, e.g. "--factory-startup".
	Args []string
}

func (c *Config) executable() string {
	if c == nil || c.Executable == "" {
		return DefaultExecutable
	}
	return c.Executable
}

// StderrError is returned when Blender exits with an error or writes to stderr.
// Stderr holds the captured output verbatim.
type StderrError struct {
	Stderr   string
	ExitCode int
}

func (e *StderrError) Error() string {
	return fmt.Sprintf("blender failed (exit code %d): Blender stderr output: %s", e.ExitCode, e.Stderr)
}

func (c *Config) run(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	var allArgs []string
	if c != nil {
		allArgs = append(allArgs, c.Args...)
	}
	allArgs = append(allArgs, args...)

	cmd := exec.CommandContext(ctx, c.executable(), allArgs...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if exitErr, ok := err.(*exec.ExitError); ok {
		return stdout.String(), &StderrError{Stderr: stderr.String(), ExitCode: exitErr.ExitCode()}
	}
	if err != nil {
		return stdout.String(), errors.Wrapf(err, "failed to run %s", c.executable())
	}
	if stderr.Len() > 0 {
		return stdout.String(), &StderrError{Stderr: stderr.String()}
	}
	return stdout.String(), nil
}
