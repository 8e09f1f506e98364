package policy

import "regexp"

// redactionMarker replaces every matched secret with a fixed, non-reversible
// placeholder. The surrounding field structure (key names, punctuation) is
// preserved — only the matched span is substituted.
const redactionMarker = "[REDACTED]"

// patterns matches the fixed set of sensitive substrings spec.md §4.2 names:
// api_key/authorization field assignments, and sk- prefixed API tokens.
// Case-insensitive. No redaction/DLP library appears anywhere in the
// retrieval pack, so this uses stdlib regexp — see DESIGN.md.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api_key\s*=\s*")[^"]*(")`),
	regexp.MustCompile(`(?i)(authorization\s*=\s*")[^"]*(")`),
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
}

// Redact returns text with every match of the fixed pattern set replaced by
// redactionMarker. Field-assignment patterns keep their key and quotes;
// bare tokens (sk-...) are replaced outright.
func Redact(text string) string {
	out := text
	for i, p := range patterns {
		if i < 2 {
			out = p.ReplaceAllString(out, "${1}"+redactionMarker+"${2}")
		} else {
			out = p.ReplaceAllString(out, redactionMarker)
		}
	}
	return out
}
