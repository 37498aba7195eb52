package blender

import (
	"context"
	"os"
	"strings"
	"testing"
)

func shellConfig(t *testing.T) *Config {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	return &Config{Executable: "/bin/sh"}
}

func TestRunStderr(t *testing.T) {
	c := shellConfig(t)

	_, err := c.run(context.Background(), "-c", "echo 'Error: no such operator' >&2")
	serr, ok := err.(*StderrError)
	if !ok {
		t.Fatal("expected StderrError: ", err)
	}
	if serr.Stderr != "Error: no such operator\n" {
		t.Error("stderr: ", serr.Stderr)
	}
	if !strings.Contains(serr.Error(), "Error: no such operator") {
		t.Error("message: ", serr.Error())
	}

	_, err = c.run(context.Background(), "-c", "exit 3")
	if serr, ok := err.(*StderrError); !ok || serr.ExitCode != 3 {
		t.Error("exit code: ", err)
	}

	out, err := c.run(context.Background(), "-c", "echo START_MESH_JSON a b")
	if err != nil || out != "START_MESH_JSON a b\n" {
		t.Error("stdout: ", out, err)
	}
}

func TestDefaultExecutable(t *testing.T) {
	var c *Config
	if c.executable() != "blender" {
		t.Error("default: ", c.executable())
	}
	if (&Config{Executable: "/opt/blender/blender"}).executable() != "/opt/blender/blender" {
		t.Error("configured executable")
	}
}

func TestInstallAddonMissingFile(t *testing.T) {
	c := &Config{Executable: "/nonexistent/blender"}
	if err := c.InstallAddon(context.Background(), "/nonexistent/addon.py"); err == nil {
		t.Error("missing addon must fail")
	}
}
