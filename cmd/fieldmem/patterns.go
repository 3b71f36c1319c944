package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/fieldmem/internal/pattern"
)

// patternFile is the on-disk fixture shape: a list of memories under a
// single "patterns" key.
type patternFile struct {
	Patterns []*pattern.Memory `yaml:"patterns"`
}

// readPatterns loads a YAML pattern file. Validation happens at store
// time, not here; this only decodes.
func readPatterns(path string) ([]*pattern.Memory, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pattern file: %w", err)
	}
	var f patternFile
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, fmt.Errorf("parsing pattern file %s: %w", path, err)
	}
	if len(f.Patterns) == 0 {
		return nil, fmt.Errorf("no patterns in %s", path)
	}
	return f.Patterns, nil
}
