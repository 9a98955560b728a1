package council

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"govctl/internal/aiservice"
	"govctl/internal/retrieval"
)

// toolSpecs is the fixed set of read-only retrieval tools every role gets.
// No tool is withheld; at dispatch time only read_file is narrowed by the
// role's RelevantPathsGlob, and the other tools are not scoped to it.
var toolSpecs = []aiservice.ToolSpec{
	{Name: "read_file", Description: "Read a workspace-relative file in full.", Parameters: map[string]interface{}{
		"type": "object", "properties": map[string]interface{}{"path": map[string]interface{}{"type": "string"}}, "required": []string{"path"},
	}},
	{Name: "list_directory", Description: "List a workspace-relative directory.", Parameters: map[string]interface{}{
		"type": "object", "properties": map[string]interface{}{"path": map[string]interface{}{"type": "string"}}, "required": []string{"path"},
	}},
	{Name: "read_adr", Description: "Read an ADR by id.", Parameters: map[string]interface{}{
		"type": "object", "properties": map[string]interface{}{"id": map[string]interface{}{"type": "string"}}, "required": []string{"id"},
	}},
	{Name: "read_journey", Description: "Read a journey record by id.", Parameters: map[string]interface{}{
		"type": "object", "properties": map[string]interface{}{"id": map[string]interface{}{"type": "string"}}, "required": []string{"id"},
	}},
	{Name: "search_codebase", Description: "Regex search across the workspace.", Parameters: map[string]interface{}{
		"type": "object", "properties": map[string]interface{}{
			"pattern":      map[string]interface{}{"type": "string"},
			"path":         map[string]interface{}{"type": "string"},
			"file_pattern": map[string]interface{}{"type": "string"},
		}, "required": []string{"pattern"},
	}},
}

// maxObservationMessages bounds the Reason-Act-Observe transcript kept in
// context: the initial task framing and the most recent exchanges survive
// trimming, mirroring internal/tokens.TrimToFit's FIFO-preserving-ends
// policy but applied to tool observations instead of chat history.
const maxObservationMessages = 12

var answerPattern = regexp.MustCompile(`(?is)VERDICT:\s*(\S+).*?FINDINGS:\s*(.*?)REFERENCES:\s*(.*)`)
var findingLinePattern = regexp.MustCompile(`(?m)^\s*-\s*\[(\w+)\]\s*([^:]+):(\d+):\s*(.+?)(?:\s*\(Source:\s*([^)]*)\))?\s*$`)

// runRole drives one role's bounded Reason-Act-Observe loop against ai,
// resolving tool calls through retrieval, and returns the parsed result.
func runRole(ctx context.Context, ai aiClient, tools *retrieval.Toolset, role Role, diffText string, referenceIDs []string, maxSteps int) RoleResult {
	result := RoleResult{Role: role.Name, State: StateRunning}
	if maxSteps <= 0 || maxSteps > 10 {
		maxSteps = 10
	}

	messages := []aiservice.Message{
		{Role: aiservice.RoleSystem, Content: buildSystemInstruction(role, referenceIDs)},
		{Role: aiservice.RoleUser, Content: diffText},
	}

	for step := 0; step < maxSteps; step++ {
		select {
		case <-ctx.Done():
			result.State = StateCancelled
			result.Verdict = VerdictNeedsInfo
			result.Err = ctx.Err()
			return result
		default:
		}

		result.Steps++
		resp, err := ai.Complete(ctx, aiservice.Request{Messages: messages, Tools: toolSpecs, Temperature: 0})
		if err != nil {
			result.State = StateFailed
			result.Verdict = VerdictNeedsInfo
			result.Err = err
			return result
		}

		if len(resp.ToolCalls) == 0 {
			return finalizeRole(result, role, resp.Text)
		}

		result.State = StateWaitingTool
		messages = append(messages, aiservice.Message{Role: aiservice.RoleAssistant, Content: resp.Text})
		for _, tc := range resp.ToolCalls {
			obs := dispatchTool(ctx, tools, role, tc)
			messages = append(messages, aiservice.Message{Role: aiservice.RoleTool, Content: fmt.Sprintf("%s -> %s", tc.Name, obs)})
		}
		messages = trimObservations(messages)
		result.State = StateReplying
	}

	result.State = StateFailed
	result.Verdict = VerdictNeedsInfo
	result.Err = fmt.Errorf("council: role %s exceeded max_steps without a final answer", role.Name)
	return result
}

// buildSystemInstruction composes the scoped prompt: focus area, the
// "you may not evaluate other domains" exclusion clause, and compact
// reference ids only (never full ADR/journey bodies, which the role must
// fetch itself via read_adr/read_journey if it wants to cite them).
func buildSystemInstruction(role Role, referenceIDs []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are the %s reviewer in a change-review council.\n", role.Name)
	fmt.Fprintf(&sb, "Your focus area is: %s.\n", role.FocusArea)
	if len(role.OtherDomains) > 0 {
		fmt.Fprintf(&sb, "You may not evaluate or raise findings about: %s. Leave those to their own reviewer.\n", strings.Join(role.OtherDomains, ", "))
	}
	if len(referenceIDs) > 0 {
		fmt.Fprintf(&sb, "Available reference ids (fetch with read_adr/read_journey before citing): %s\n", strings.Join(referenceIDs, ", "))
	}
	sb.WriteString("Use the provided tools to verify any claim before citing it. ")
	sb.WriteString("Reply with exactly this structure once you are done:\n")
	sb.WriteString("VERDICT: PASS|BLOCK|needs-info\nFINDINGS:\n- [severity] file:line: message (Source: REF-ID)\nREFERENCES: REF-ID, REF-ID\n")
	return sb.String()
}

// dispatchTool executes one tool call against the shared retrieval
// toolset, refusing read_file outside the role's relevant paths where a
// glob was declared (other tools are unscoped), and never letting a tool error abort the
// loop — failures are surfaced as an observation string instead.
func dispatchTool(ctx context.Context, tools *retrieval.Toolset, role Role, tc aiservice.ToolCall) string {
	if tools == nil {
		return "error: no retrieval toolset attached"
	}
	switch tc.Name {
	case "read_file":
		path, _ := tc.Arguments["path"].(string)
		if !pathInScope(role, path) {
			return fmt.Sprintf("error: %s is outside your focus area", path)
		}
		text, err := tools.ReadFile(ctx, path)
		if err != nil {
			return "error: " + err.Error()
		}
		return text
	case "list_directory":
		path, _ := tc.Arguments["path"].(string)
		entries, err := tools.ListDirectory(ctx, path)
		if err != nil {
			return "error: " + err.Error()
		}
		var names []string
		for _, e := range entries {
			names = append(names, e.Name)
		}
		return strings.Join(names, ", ")
	case "read_adr":
		id, _ := tc.Arguments["id"].(string)
		text, err := tools.ReadADR(ctx, id)
		if err != nil {
			return "error: " + err.Error()
		}
		return text
	case "read_journey":
		id, _ := tc.Arguments["id"].(string)
		text, err := tools.ReadJourney(ctx, id)
		if err != nil {
			return "error: " + err.Error()
		}
		return text
	case "search_codebase":
		pattern, _ := tc.Arguments["pattern"].(string)
		path, _ := tc.Arguments["path"].(string)
		filePattern, _ := tc.Arguments["file_pattern"].(string)
		matches, err := tools.SearchCodebase(ctx, pattern, path, filePattern, false)
		if err != nil {
			return "error: " + err.Error()
		}
		var sb strings.Builder
		for _, m := range matches {
			fmt.Fprintf(&sb, "%s:%d: %s\n", m.File, m.LineNumber, m.Line)
		}
		return sb.String()
	default:
		return "error: unknown tool " + tc.Name
	}
}

func pathInScope(role Role, path string) bool {
	if len(role.RelevantPathsGlob) == 0 {
		return true
	}
	for _, g := range role.RelevantPathsGlob {
		if ok, _ := filepath.Match(g, path); ok {
			return true
		}
	}
	return false
}

// trimObservations keeps the system+initial task messages and the most
// recent tool exchanges, applying the same FIFO-preserving-ends policy
// internal/tokens.TrimToFit uses for chat history, scoped here to the
// tool-observation transcript instead of token budget.
func trimObservations(messages []aiservice.Message) []aiservice.Message {
	if len(messages) <= maxObservationMessages {
		return messages
	}
	head := messages[:2] // system instruction + initial diff/task message
	tailLen := maxObservationMessages - len(head)
	tail := messages[len(messages)-tailLen:]
	out := make([]aiservice.Message, 0, len(head)+len(tail))
	out = append(out, head...)
	out = append(out, tail...)
	return out
}

// finalizeRole parses a role's terminal answer text into VERDICT/FINDINGS/
// REFERENCES, dropping any finding that has no (Source: ...) tag at all or
// whose tag is not listed on the answer's own REFERENCES line. A BLOCK
// verdict is downgraded to needs-info when any cited finding was dropped,
// or when uncited findings were dropped and no finding remains — a role
// cannot BLOCK on a citation it cannot back up, and an uncited finding is
// never silently accepted either.
func finalizeRole(result RoleResult, role Role, text string) RoleResult {
	m := answerPattern.FindStringSubmatch(text)
	if m == nil {
		result.State = StateFinalized
		result.Verdict = VerdictNeedsInfo
		result.Findings = nil
		return result
	}

	verdict := VerdictKind(strings.TrimSpace(m[1]))
	refsRaw := strings.Split(m[3], ",")
	known := make(map[string]bool, len(refsRaw))
	for _, r := range refsRaw {
		r = strings.TrimSpace(r)
		if r != "" {
			known[r] = true
		}
	}

	var findings []Finding
	validRefs, totalRefs := 0, 0
	droppedUncited := false
	for _, fl := range findingLinePattern.FindAllStringSubmatch(m[2], -1) {
		sev := Severity(strings.ToLower(fl[1]))
		line, _ := strconv.Atoi(fl[3])
		ref := strings.TrimSpace(fl[5])

		if ref == "" {
			droppedUncited = true
			continue // no Source tag at all: never silently accepted, drop it
		}
		totalRefs++
		if !known[ref] {
			continue // unresolved citation: drop the finding, it didn't earn its keep
		}
		validRefs++
		findings = append(findings, Finding{
			Role: role.Name, Severity: sev, File: fl[2], Line: line,
			Message: strings.TrimSpace(fl[4]), References: []string{ref},
		})
	}

	result.State = StateFinalized
	result.Verdict = verdict
	result.Findings = findings
	result.ValidReferences = validRefs
	result.TotalReferences = totalRefs
	if verdict == VerdictBlock {
		if (totalRefs > 0 && validRefs < totalRefs) || (droppedUncited && len(findings) == 0) {
			result.Verdict = VerdictNeedsInfo
		}
	}
	return result
}
