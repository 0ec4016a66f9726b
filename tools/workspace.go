package tools

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/m4xw311/pengy/config"
	"github.com/m4xw311/pengy/errors"
	"github.com/m4xw311/pengy/logger"
)

// Workspace is the directory the tools operate on, together with the
// access rules from the configuration.
type Workspace struct {
	Root            string
	Access          config.FilesystemAccess
	AllowedCommands []string
}

// NewWorkspace builds a workspace rooted at root. cfg may be nil.
func NewWorkspace(root string, cfg *config.Config) *Workspace {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	ws := &Workspace{Root: abs}
	if cfg != nil {
		ws.Access = cfg.FilesystemAccess
		ws.AllowedCommands = cfg.AllowedCommands
	}
	return ws
}

// Resolve makes path absolute relative to the workspace root.
func (w *Workspace) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(w.Root, path)
}

// Rel returns path relative to the root, or the cleaned absolute path when it
// lies outside the workspace.
func (w *Workspace) Rel(path string) string {
	abs := w.Resolve(path)
	rel, err := filepath.Rel(w.Root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return abs
	}
	return filepath.ToSlash(rel)
}

// CheckRead returns the absolute path if it is not hidden.
func (w *Workspace) CheckRead(path string) (string, error) {
	if path == "" {
		return "", errors.Errorf(errors.KindExecution, "missing or invalid 'path' argument")
	}
	hidden, err := w.matches(path, w.Access.Hidden)
	if err != nil {
		return "", err
	}
	if hidden {
		return "", errors.Errorf(errors.KindPolicy, "access denied: path '%s' is hidden", path)
	}
	return w.Resolve(path), nil
}

// Contains reports whether path resolves to the root or somewhere below it.
func (w *Workspace) Contains(path string) bool {
	rel, err := filepath.Rel(w.Root, w.Resolve(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// CheckWrite returns the absolute path if it lies inside the workspace and is
// neither hidden nor read-only.
func (w *Workspace) CheckWrite(path string) (string, error) {
	abs, err := w.CheckRead(path)
	if err != nil {
		return "", err
	}
	if !w.Contains(path) {
		return "", errors.Errorf(errors.KindPolicy, "access denied: path '%s' is outside the workspace %s", path, w.Root)
	}
	readOnly, err := w.matches(path, w.Access.ReadOnly)
	if err != nil {
		return "", err
	}
	if readOnly {
		return "", errors.Errorf(errors.KindPolicy, "access denied: path '%s' is read-only", path)
	}
	return abs, nil
}

// TodoPath is where the todo tool keeps its list.
func (w *Workspace) TodoPath() string {
	return filepath.Join(w.Root, config.DirName, "todos.json")
}

func (w *Workspace) matches(path string, patterns []string) (bool, error) {
	rel := w.Rel(path)
	for _, candidate := range []string{rel, filepath.ToSlash(path)} {
		restricted, err := isPathRestricted(candidate, patterns)
		if err != nil || restricted {
			return restricted, err
		}
	}
	return false, nil
}

// isPathRestricted checks if a path matches any of the glob patterns.
func isPathRestricted(path string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		match, err := doublestar.PathMatch(pattern, path)
		if err != nil {
			return false, fmt.Errorf("invalid glob pattern '%s': %w", pattern, err)
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

// isCommandAllowed checks if a command is in the allowlist (with regex support).
func isCommandAllowed(command string, allowed []string) bool {
	if len(strings.Fields(command)) == 0 {
		return false
	}
	for _, pattern := range allowed {
		re, err := regexp.Compile(pattern)
		if err != nil {
			logger.Warn("invalid regex in allowed_commands", "pattern", pattern, "error", err)
			// Fallback to simple string comparison if regex is invalid
			if command == pattern {
				return true
			}
			continue
		}
		if re.MatchString(command) {
			return true
		}
	}
	return false
}
