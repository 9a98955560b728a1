package adrlint

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	idLine     = regexp.MustCompile(`(?im)^id:\s*(\S+)\s*$`)
	statusLine = regexp.MustCompile(`(?im)^status:\s*(\S+)\s*$`)
)

// enforcementRules is the shape of the YAML body inside a fenced
// ```enforcement ... ``` block.
type enforcementRules struct {
	Rules []LintRule `yaml:"rules"`
}

// ParseFile reads one ADR markdown document and extracts its front-matter
// (id, status) plus any fenced `enforcement` block. Parsing errors (bad
// YAML in the enforcement block) are returned as *ConfigError so the
// caller can isolate them to this ADR alone rather than abort the run,
// per spec's "parsing errors isolate to the owning ADR" rule.
func ParseFile(path string) (*ADR, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("adrlint: read %s: %w", path, err)
	}
	text := string(data)

	adr := &ADR{Path: path}

	if m := idLine.FindStringSubmatch(text); m != nil {
		adr.ID = m[1]
	} else {
		adr.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if m := statusLine.FindStringSubmatch(text); m != nil {
		adr.Status = Status(strings.ToLower(m[1]))
	} else {
		adr.Status = StatusDraft
	}

	block, found, err := extractFencedBlock(text, "enforcement")
	if err != nil {
		return adr, &ConfigError{ADRID: adr.ID, Err: err}
	}
	if !found {
		return adr, nil
	}

	var parsed enforcementRules
	if err := yaml.Unmarshal([]byte(block), &parsed); err != nil {
		return adr, &ConfigError{ADRID: adr.ID, Err: fmt.Errorf("malformed enforcement block: %w", err)}
	}
	for i := range parsed.Rules {
		parsed.Rules[i].ADRID = adr.ID
		if parsed.Rules[i].TimeoutMS <= 0 || parsed.Rules[i].TimeoutMS > 5000 {
			parsed.Rules[i].TimeoutMS = 5000
		}
	}
	adr.Enforcement = parsed.Rules
	return adr, nil
}

// extractFencedBlock returns the contents of the first ```<lang>
// fenced code block in text whose info-string equals lang.
func extractFencedBlock(text, lang string) (string, bool, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	var inBlock bool
	var sb strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if !inBlock {
			if strings.HasPrefix(trimmed, "```"+lang) {
				inBlock = true
			}
			continue
		}
		if strings.HasPrefix(trimmed, "```") {
			return sb.String(), true, scanner.Err()
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	if inBlock {
		return "", false, fmt.Errorf("unterminated enforcement fence")
	}
	return "", false, scanner.Err()
}

// LoadAll parses every *.md file directly under dir, returning the
// accepted ADRs' rules flattened into one slice plus any per-ADR config
// errors encountered along the way (never a hard failure).
func LoadAll(dir string) ([]LintRule, []*ADR, []*ConfigError) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, []*ConfigError{{ADRID: dir, Err: err}}
	}

	var rules []LintRule
	var adrs []*ADR
	var errs []*ConfigError

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		adr, err := ParseFile(filepath.Join(dir, e.Name()))
		if err != nil {
			var cfgErr *ConfigError
			if ok := asConfigError(err, &cfgErr); ok {
				errs = append(errs, cfgErr)
			}
			continue
		}
		if adr.Status != StatusAccepted {
			continue
		}
		adrs = append(adrs, adr)
		rules = append(rules, adr.Enforcement...)
	}
	return rules, adrs, errs
}

func asConfigError(err error, target **ConfigError) bool {
	if ce, ok := err.(*ConfigError); ok {
		*target = ce
		return true
	}
	return false
}
