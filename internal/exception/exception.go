// Package exception implements the Exception Resolver: loading EXC
// records, filtering to accepted ones, and deciding whether a Finding is
// suppressed by a matching exception.
package exception

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"govctl/internal/obslog"
)

// Status is an exception record's lifecycle state. Only Accepted records
// participate in suppression.
type Status string

const (
	StatusAccepted  Status = "accepted"
	StatusSuperseded Status = "superseded"
	StatusRetired   Status = "retired"
)

// Record is one EXC document.
type Record struct {
	ID                string   `yaml:"id"`
	Status            Status   `yaml:"status"`
	RuleReference     string   `yaml:"rule_reference"`
	AffectedFilesGlob []string `yaml:"affected_files_glob"`
	Justification     string   `yaml:"justification"`
	Conditions        []string `yaml:"conditions,omitempty"`
}

// Finding is the minimal shape suppress() needs from a finding; every
// producer (adrlint.Finding, council finding types) maps into this.
type Finding struct {
	References []string
	File       string
}

// SuppressionEvent records one firing of a suppression, for the Audit
// Logger to persist alongside the run it occurred in.
type SuppressionEvent struct {
	ExceptionID string
	RuleMatched string
	File        string
}

// Resolver holds the loaded accepted exception records for one run.
type Resolver struct {
	records []Record
	events  []SuppressionEvent
}

// Load reads every *.yaml/*.yml file directly under dir and filters to
// Accepted records; a record that fails to parse is logged and skipped
// rather than failing the whole load.
func Load(dir string) (*Resolver, error) {
	log := obslog.Get(obslog.CategoryException)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return &Resolver{}, nil
		}
		return nil, fmt.Errorf("exception: read %s: %w", dir, err)
	}

	var records []Record
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("skipping exception %s: %v", e.Name(), err)
			continue
		}
		var rec Record
		if err := yaml.Unmarshal(data, &rec); err != nil {
			log.Warn("skipping malformed exception %s: %v", e.Name(), err)
			continue
		}
		if rec.Status != StatusAccepted {
			continue
		}
		records = append(records, rec)
	}
	return &Resolver{records: records}, nil
}

// Suppress reports whether an accepted exception matches f: the finding's
// references must include the exception's rule_reference, AND the
// finding's file must fall under one of affected_files_glob. A firing
// suppression is recorded for later retrieval via Events().
func (r *Resolver) Suppress(f Finding) bool {
	for _, rec := range r.records {
		if !containsRef(f.References, rec.RuleReference) {
			continue
		}
		if !matchesAnyGlob(rec.AffectedFilesGlob, f.File) {
			continue
		}
		r.events = append(r.events, SuppressionEvent{
			ExceptionID: rec.ID,
			RuleMatched: rec.RuleReference,
			File:        f.File,
		})
		return true
	}
	return false
}

// Events returns every suppression fired so far this run.
func (r *Resolver) Events() []SuppressionEvent {
	return r.events
}

func containsRef(refs []string, ruleRef string) bool {
	for _, r := range refs {
		if r == ruleRef {
			return true
		}
	}
	return false
}

func matchesAnyGlob(globs []string, file string) bool {
	for _, g := range globs {
		if ok, err := filepath.Match(g, file); err == nil && ok {
			return true
		}
		if ok, err := filepath.Match(g, filepath.Base(file)); err == nil && ok {
			return true
		}
		if strings.HasPrefix(file, strings.TrimSuffix(g, "*")) && strings.HasSuffix(g, "*") {
			return true
		}
	}
	return false
}
