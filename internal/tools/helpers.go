// Package tools implements the MCP tool handlers of the context engine.
//
// Each tool is a struct that receives its dependencies through its
// constructor and exposes Definition and Handle. One file per tool.
// Failures of external services are reported inline in the tool text with
// a ⚠️ prefix; only missing or invalid arguments produce MCP tool errors.
package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// readDocFile returns the content of path, or "" if it does not exist.
func readDocFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// resolveInProject resolves rel against root and reports whether the
// result stays inside root. Symlinks are followed when the target exists.
func resolveInProject(root, rel string) (string, bool) {
	var abs string
	if filepath.IsAbs(rel) {
		abs = filepath.Clean(rel)
	} else {
		abs = filepath.Join(root, rel)
	}

	base := root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		base = resolved
	}
	target := abs
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		target = resolved
	} else if resolvedDir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		target = filepath.Join(resolvedDir, filepath.Base(abs))
	}

	return abs, isWithin(base, target)
}

// isWithin reports whether path is base or a descendant of base.
func isWithin(base, path string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// relToRoot shortens an absolute path for display.
func relToRoot(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && isWithin(root, path) {
		return rel
	}
	return path
}
