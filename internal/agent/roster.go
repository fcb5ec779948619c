package agent

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Name identifies one of the pipeline's agents.
type Name string

const (
	PromptRefiner  Name = "promptRefiner"
	PartsExtractor Name = "partsExtractor"
	RegexGenerator Name = "regexGenerator"
)

// Names lists every agent in pipeline order.
var Names = []Name{PromptRefiner, PartsExtractor, RegexGenerator}

func ParseName(s string) (Name, bool) {
	for _, n := range Names {
		if string(n) == s {
			return n, true
		}
	}
	return "", false
}

//go:embed roster.yaml
var defaultRoster []byte

// Roster is the static agent configuration, one entry per Name in pipeline order.
type Roster struct {
	Agents []Config `yaml:"agents"`
}

// DefaultRoster returns the built-in agent definitions.
func DefaultRoster() (Roster, error) {
	return ParseRoster(defaultRoster)
}

// LoadRoster reads a roster from path, or the built-in one when path is empty.
func LoadRoster(path string) (Roster, error) {
	if path == "" {
		return DefaultRoster()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("read roster: %w", err)
	}
	return ParseRoster(data)
}

func ParseRoster(data []byte) (Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Roster{}, fmt.Errorf("parse roster: %w", err)
	}
	if err := r.validate(); err != nil {
		return Roster{}, err
	}
	return r, nil
}

// validate requires exactly one entry per known Name, each with a role.
func (r Roster) validate() error {
	seen := make(map[Name]bool, len(Names))
	for _, cfg := range r.Agents {
		n, ok := ParseName(cfg.Name)
		if !ok {
			return fmt.Errorf("roster: unknown agent %q", cfg.Name)
		}
		if seen[n] {
			return fmt.Errorf("roster: duplicate agent %q", cfg.Name)
		}
		if cfg.Role == "" {
			return fmt.Errorf("roster: agent %q has no role", cfg.Name)
		}
		seen[n] = true
	}
	for _, n := range Names {
		if !seen[n] {
			return fmt.Errorf("roster: missing agent %q", n)
		}
	}
	return nil
}

// Has reports whether name is configured in the roster.
func (r Roster) Has(name string) bool {
	for _, cfg := range r.Agents {
		if cfg.Name == name {
			return true
		}
	}
	return false
}

// Config returns the definition for n.
func (r Roster) Config(n Name) (Config, bool) {
	for _, cfg := range r.Agents {
		if cfg.Name == string(n) {
			return cfg, true
		}
	}
	return Config{}, false
}
