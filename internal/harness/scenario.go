package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines one deterministic assignment run.
type Scenario struct {
	// Name uniquely identifies this scenario. Used as the golden file
	// name and the fixed run token.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// MaxQuestions is the deployment maximum. Defaults to 500.
	MaxQuestions int `yaml:"max_questions,omitempty"`

	// Pseudo switches the run to pseudo mode. Pseudo scenarios cannot
	// assert on order or keys, only on counts and cache silence.
	Pseudo bool `yaml:"pseudo,omitempty"`

	// Items is the input batch, in submission order.
	Items []ScenarioItem `yaml:"items"`

	// Keys is the stubbed entropy sequence, consumed in first-seen
	// fingerprint order.
	Keys []uint64 `yaml:"keys,omitempty"`

	// SeedCache pre-populates the key cache before the run.
	SeedCache []SeedEntry `yaml:"seed_cache,omitempty"`

	// Rerun runs the scenario a second time against the same cache with
	// an empty entropy source, asserting the rerun resolves entirely
	// from cache and reproduces the first output.
	Rerun bool `yaml:"rerun,omitempty"`

	// ExpectOrder lists item texts in expected output order.
	ExpectOrder []string `yaml:"expect_order,omitempty"`

	// ExpectKeys lists expected keys in output order.
	ExpectKeys []uint64 `yaml:"expect_keys,omitempty"`

	// ExpectError names an expected failure kind: "capacity" or
	// "collision". The run must produce no output.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// ScenarioItem is one question in a scenario batch.
type ScenarioItem struct {
	Author string `yaml:"author,omitempty"`
	Text   string `yaml:"text"`
}

// SeedEntry pre-assigns a key to a question text before the run.
type SeedEntry struct {
	Text string `yaml:"text"`
	Key  uint64 `yaml:"key"`
}

// LoadScenario reads and validates a single scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("harness: read scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("harness: parse %s: %w", path, err)
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("harness: %s: scenario missing name", path)
	}
	if sc.ExpectError != "" && sc.ExpectError != "capacity" && sc.ExpectError != "collision" {
		return nil, fmt.Errorf("harness: %s: unknown expect_error %q", path, sc.ExpectError)
	}
	return &sc, nil
}

// LoadDir loads every *.yaml scenario in a directory, sorted by filename
// for stable test ordering.
func LoadDir(dir string) ([]*Scenario, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("harness: scan %s: %w", dir, err)
	}
	sort.Strings(matches)

	scenarios := make([]*Scenario, 0, len(matches))
	for _, path := range matches {
		sc, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}
