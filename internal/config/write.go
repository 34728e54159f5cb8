package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// sampleHeader is prepended to files written by WriteSample.
const sampleHeader = "# context-engine project configuration.\n" +
	"# Environment variables prefixed with " + EnvPrefix + " override these values.\n\n"

// WriteSample writes cfg (minus Root) to <root>/.context-engine.yaml.
// An existing file is only replaced when force is true.
func WriteSample(cfg *ProjectConfig, force bool) (string, error) {
	path := filepath.Join(cfg.Root, FileName)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(sampleHeader), data...), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
