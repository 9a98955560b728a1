package aiservice

import "regexp"

// scrubPatterns matches secret-shaped substrings that a model response
// should never echo back into an audit artifact or terminal: API keys,
// bearer tokens, and PEM-armored key material, mirroring what
// internal/secretstore treats as sensitive.
var scrubPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(sk|pk)-[a-z0-9]{20,}\b`),
	regexp.MustCompile(`(?i)\bAIza[0-9A-Za-z\-_]{20,}\b`),
	regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9\-_.]{20,}\b`),
	regexp.MustCompile(`-----BEGIN [A-Z ]+PRIVATE KEY-----[\s\S]*?-----END [A-Z ]+PRIVATE KEY-----`),
}

const redactedPlaceholder = "[redacted]"

// scrub removes secret-shaped text from request messages before they are
// sent to a provider, and from a completion before it is logged,
// persisted to an audit artifact, or printed to the terminal. It is a
// defense-in-depth layer, not a substitute for never sending secrets to a
// provider in the first place.
func scrub(text string) string {
	out := text
	for _, re := range scrubPatterns {
		out = re.ReplaceAllString(out, redactedPlaceholder)
	}
	return out
}
