package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ErrToolNotFound is returned when no lookup source yields an existing
// executable for an action id.
var ErrToolNotFound = errors.New("settings: tool not found")

// ExecutableURL resolves the executable path for an action id.
//
// Sources are consulted in order: the session-level override map, the
// actionConfig argument supplied by the action itself, the tools
// configuration file (relative entries join ToolsPath), and finally the
// convention path <toolspath>/<id>/<id>[.exe]. The first candidate that
// exists on disk wins.
func (s *Settings) ExecutableURL(actionID, actionConfig string) (string, error) {
	var candidates []string
	if url, ok := s.ToolOverrides[actionID]; ok && url != "" {
		candidates = append(candidates, url)
	}
	if actionConfig != "" {
		candidates = append(candidates, actionConfig)
	}
	if url, ok := s.Tools[actionID]; ok && url != "" {
		if !filepath.IsAbs(url) && s.ToolsPath != "" {
			url = filepath.Join(s.ToolsPath, url)
		}
		candidates = append(candidates, url)
	}
	if s.ToolsPath != "" {
		name := actionID
		if runtime.GOOS == "windows" {
			name += ".exe"
		}
		candidates = append(candidates, filepath.Join(s.ToolsPath, actionID, name))
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s (tried %d candidates)", ErrToolNotFound, actionID, len(candidates))
}
