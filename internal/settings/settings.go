// Package settings carries the configuration consumed by the execution
// core: subprocess pacing, the action timeout and the executable locator.
//
// Values resolve in this precedence: session-level override map, then the
// user config file, then built-in defaults. A Settings handle is passed
// down from the session root; there are no process-wide globals.
package settings

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults used when neither the session nor the user config provides a
// value.
const (
	DefaultSubprocessPause = 2 * time.Second
	DefaultActionTimeout   = 60 * time.Second
)

// Settings holds the resolved configuration for one workflow run.
type Settings struct {
	// SubprocessPause is the sleep between settle-guard retries before a
	// launch script is executed.
	SubprocessPause time.Duration

	// ActionTimeout caps the total settle-guard wait. It does not bound the
	// tool subprocess itself; long-running tools run to completion.
	ActionTimeout time.Duration

	// ToolsPath is the search root for executables not configured
	// explicitly.
	ToolsPath string

	// ToolOverrides maps action id to an executable URL, taking precedence
	// over every other lookup source.
	ToolOverrides map[string]string

	// Tools is the parsed tools configuration file (action id to absolute
	// path or path relative to ToolsPath).
	Tools map[string]string
}

// Default returns settings populated with the built-in defaults.
func Default() *Settings {
	return &Settings{
		SubprocessPause: DefaultSubprocessPause,
		ActionTimeout:   DefaultActionTimeout,
		ToolOverrides:   map[string]string{},
		Tools:           map[string]string{},
	}
}

// userConfig is the on-disk shape of the user configuration file.
type userConfig struct {
	SubprocessPause float64           `yaml:"subprocess_pause"`
	ActionTimeout   float64           `yaml:"action_timeout"`
	ToolsPath       string            `yaml:"toolspath"`
	Tools           map[string]string `yaml:"tools"`
}

// Load reads a user configuration file and merges it over the defaults.
// A missing file is not an error; the defaults stand.
func Load(path string) (*Settings, error) {
	st := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return nil, fmt.Errorf("settings: read %s: %w", path, err)
	}
	var cfg userConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("settings: decode %s: %w", path, err)
	}
	if cfg.SubprocessPause > 0 {
		st.SubprocessPause = time.Duration(cfg.SubprocessPause * float64(time.Second))
	}
	if cfg.ActionTimeout > 0 {
		st.ActionTimeout = time.Duration(cfg.ActionTimeout * float64(time.Second))
	}
	if cfg.ToolsPath != "" {
		st.ToolsPath = cfg.ToolsPath
	}
	for id, url := range cfg.Tools {
		st.Tools[id] = url
	}
	return st, nil
}

// GuardAttempts returns the settle-guard retry count:
// ceil(ActionTimeout / SubprocessPause), at least one attempt.
func (s *Settings) GuardAttempts() int {
	if s.SubprocessPause <= 0 {
		return 1
	}
	n := int((s.ActionTimeout + s.SubprocessPause - 1) / s.SubprocessPause)
	if n < 1 {
		n = 1
	}
	return n
}
