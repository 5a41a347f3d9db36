package policy

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileFormat struct {
	Tiers []TierPolicy `yaml:"tiers"`
}

// Load reads a YAML tier table. An empty path returns the defaults.
func Load(path string) (*Table, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Defaults(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Table, error) {
	var f fileFormat
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("policy: decode yaml: %w", err)
	}
	return NewTable(f.Tiers...)
}
