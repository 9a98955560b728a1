package council

import (
	"sort"

	"govctl/internal/exception"
)

// Aggregate merges per-role results into one RunResult: the overall
// verdict BLOCKs if any role still BLOCKs after exception suppression,
// findings are deduplicated and sorted severity>file>line, and the
// citation/hallucination rates are computed across the whole run.
func Aggregate(roles []RoleResult, exc *exception.Resolver) RunResult {
	var allFindings []Finding
	validRefs, totalRefs := 0, 0
	rolesWithCitation := 0
	aggregate := VerdictPass

	for _, r := range roles {
		if r.TotalReferences > 0 && r.ValidReferences > 0 {
			rolesWithCitation++
		}
		validRefs += r.ValidReferences
		totalRefs += r.TotalReferences

		for _, f := range r.Findings {
			if exc != nil && exc.Suppress(exceptionFinding(f)) {
				continue
			}
			allFindings = append(allFindings, f)
		}

		if r.Verdict == VerdictBlock && anyUnsuppressed(r.Findings, exc) {
			aggregate = VerdictBlock
		} else if r.Verdict == VerdictNeedsInfo && aggregate == VerdictPass {
			aggregate = VerdictNeedsInfo
		}
	}

	deduped := DedupFindings(allFindings)
	sortFindings(deduped)

	citationRate := 0.0
	if len(roles) > 0 {
		citationRate = float64(rolesWithCitation) / float64(len(roles))
	}
	hallucinationRate := 0.0
	if totalRefs > 0 {
		hallucinationRate = float64(totalRefs-validRefs) / float64(totalRefs)
	}

	return RunResult{
		AggregateVerdict:  aggregate,
		Roles:             roles,
		Findings:          deduped,
		CitationRate:      citationRate,
		HallucinationRate: hallucinationRate,
	}
}

func exceptionFinding(f Finding) exception.Finding {
	return exception.Finding{References: f.References, File: f.File}
}

// anyUnsuppressed reports whether at least one of the role's findings
// survives exception suppression; a role that BLOCKed solely on findings
// an accepted exception covers should not hold up the aggregate verdict.
func anyUnsuppressed(findings []Finding, exc *exception.Resolver) bool {
	if exc == nil {
		return true
	}
	for _, f := range findings {
		if !exc.Suppress(exceptionFinding(f)) {
			return true
		}
	}
	return len(findings) == 0 // a BLOCK verdict with no findings still blocks
}

func severityRank(s Severity) int {
	switch s {
	case SeverityBlock:
		return 0
	case SeverityWarn:
		return 1
	default:
		return 2
	}
}

func sortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if severityRank(a.Severity) != severityRank(b.Severity) {
			return severityRank(a.Severity) < severityRank(b.Severity)
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
}
