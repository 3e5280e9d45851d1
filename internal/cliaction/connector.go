package cliaction

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// connector abstracts the platform-specific launch script convention:
// script extension, file contents and the interpreter invocation. Every
// CLI action goes through a connector; no action hardcodes an extension.
type connector interface {
	ScriptPath(base string) string
	WriteScript(path, command string) error
	Command(ctx context.Context, path string) *exec.Cmd
}

// platformConnector picks the connector for the current host OS.
func platformConnector() connector {
	if runtime.GOOS == "windows" {
		return batConnector{}
	}
	return shConnector{}
}

// shConnector emits POSIX shell scripts with the execute bit set.
type shConnector struct{}

func (shConnector) ScriptPath(base string) string { return base + ".sh" }

func (shConnector) WriteScript(path, command string) error {
	content := "#!/bin/sh\n" + command + "\n"
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		return fmt.Errorf("cliaction: write launch script %s: %w", path, err)
	}
	return nil
}

func (shConnector) Command(ctx context.Context, path string) *exec.Cmd {
	return exec.CommandContext(ctx, "/bin/sh", path)
}

// batConnector emits Windows batch files.
type batConnector struct{}

func (batConnector) ScriptPath(base string) string { return base + ".bat" }

func (batConnector) WriteScript(path, command string) error {
	content := "@echo off\r\n" + command + "\r\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("cliaction: write launch script %s: %w", path, err)
	}
	return nil
}

func (batConnector) Command(ctx context.Context, path string) *exec.Cmd {
	return exec.CommandContext(ctx, "cmd", "/C", path)
}
