// Package journey implements the Journey Index: parsing journey YAML
// documents, building a reverse file-pattern→journey index in
// internal/store, and querying it for a changeset's affected journeys.
package journey

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"govctl/internal/obslog"
)

// State is a journey's lifecycle state.
type State string

const (
	StateDraft     State = "draft"
	StateOpen      State = "open"
	StateCommitted State = "committed"
	StateAccepted  State = "accepted"
	StateRetired   State = "retired"
)

// Implementation links a journey to the code and tests that realize it.
type Implementation struct {
	Files     []string `yaml:"files"`
	Tests     []string `yaml:"tests"`
	Framework string   `yaml:"framework,omitempty"`
}

// Journey is one parsed journey YAML document.
type Journey struct {
	SchemaVersion  int            `yaml:"schema_version"`
	ID             string         `yaml:"id"`
	Title          string         `yaml:"title"`
	State          State          `yaml:"state"`
	Actor          string         `yaml:"actor"`
	Description    string         `yaml:"description"`
	Steps          []string       `yaml:"steps"`
	Implementation Implementation `yaml:"implementation"`

	SourcePath string `yaml:"-"`
}

// validate checks the journey fields that must be non-empty for
// ParseFile to accept a document, per the data model's committed/accepted
// invariant plus the baseline schema_version=1 contract.
func (j *Journey) validate() error {
	if j.SchemaVersion != 1 {
		return fmt.Errorf("unsupported schema_version %d (expected 1)", j.SchemaVersion)
	}
	missing := []string{}
	if j.ID == "" {
		missing = append(missing, "id")
	}
	if j.Title == "" {
		missing = append(missing, "title")
	}
	if j.Actor == "" {
		missing = append(missing, "actor")
	}
	if j.Description == "" {
		missing = append(missing, "description")
	}
	if len(j.Steps) == 0 {
		missing = append(missing, "steps")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required field(s): %s", strings.Join(missing, ", "))
	}
	if j.State == StateCommitted || j.State == StateAccepted {
		if len(j.Implementation.Tests) == 0 {
			return fmt.Errorf("journeys in state %q require a non-empty implementation.tests", j.State)
		}
	}
	return nil
}

// ParseFile reads and validates one journey YAML document.
func ParseFile(path string) (*Journey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("journey: read %s: %w", path, err)
	}
	var j Journey
	if err := yaml.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("journey: parse %s: %w", path, err)
	}
	j.SourcePath = path
	if err := j.validate(); err != nil {
		return nil, fmt.Errorf("journey: %s: %w", path, err)
	}
	return &j, nil
}

// LoadAll parses every *.yaml/*.yml file directly under dir, logging
// (not failing on) individual parse errors so one malformed journey
// doesn't block the rest of the index build.
func LoadAll(dir string) ([]*Journey, []error) {
	log := obslog.Get(obslog.CategoryJourney)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{err}
	}
	var journeys []*Journey
	var errs []error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		j, err := ParseFile(filepath.Join(dir, e.Name()))
		if err != nil {
			log.Warn("skipping journey %s: %v", e.Name(), err)
			errs = append(errs, err)
			continue
		}
		journeys = append(journeys, j)
	}
	return journeys, errs
}
