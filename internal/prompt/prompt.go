// Package prompt holds the instruction templates sent with every completion
// call and the user-facing strings returned when a call fails.
package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

type Fallbacks struct {
	PlanEmpty string `yaml:"plan_empty"`
	ChatAuth  string `yaml:"chat_auth"`
	ChatError string `yaml:"chat_error"`
}

// Set is a complete group of instructions and fallback messages.
type Set struct {
	Advisor   string    `yaml:"advisor"`
	Demo      string    `yaml:"demo"`
	Assistant string    `yaml:"assistant"`
	Greeting  string    `yaml:"greeting"`
	Fallbacks Fallbacks `yaml:"fallbacks"`
}

// Default returns the embedded prompt set.
func Default() Set {
	s, err := Parse(defaultPrompts)
	if err != nil {
		panic(fmt.Sprintf("prompt: embedded prompts are invalid: %v", err))
	}
	return s
}

// Load reads a YAML prompt file. Keys missing from the file keep their
// embedded values.
func Load(path string) (Set, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("prompt: read %q: %w", path, err)
	}
	base := Default()
	if err := yaml.Unmarshal(raw, &base); err != nil {
		return Set{}, fmt.Errorf("prompt: decode %q: %w", path, err)
	}
	if err := base.validate(); err != nil {
		return Set{}, err
	}
	return base, nil
}

// Parse decodes a full prompt set.
func Parse(raw []byte) (Set, error) {
	var s Set
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Set{}, fmt.Errorf("prompt: decode: %w", err)
	}
	if err := s.validate(); err != nil {
		return Set{}, err
	}
	return s, nil
}

func (s Set) validate() error {
	var missing []string
	for name, v := range map[string]string{
		"advisor":              s.Advisor,
		"demo":                 s.Demo,
		"assistant":            s.Assistant,
		"greeting":             s.Greeting,
		"fallbacks.plan_empty": s.Fallbacks.PlanEmpty,
		"fallbacks.chat_auth":  s.Fallbacks.ChatAuth,
		"fallbacks.chat_error": s.Fallbacks.ChatError,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return errors.New("prompt: missing " + strings.Join(missing, ", "))
	}
	return nil
}
