package cleaner

import (
	"regexp"
	"strings"
)

// Normalizer canonicalizes free-text employee identifiers into the strict
// PREFIX#### form used across the system.
type Normalizer struct {
	prefix   string
	prefixed *regexp.Regexp
	strict   *regexp.Regexp
}

// NewNormalizer builds a normalizer for the given ID prefix ("RBIS" yields
// identifiers like RBIS0007).
func NewNormalizer(prefix string) *Normalizer {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	return &Normalizer{
		prefix:   prefix,
		prefixed: regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(prefix) + `\s*[-_]?\s*(\d+)$`),
		strict:   regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `\d{4}$`),
	}
}

// Normalize canonicalizes a raw identifier. Pure digits and prefix+digits
// forms become PREFIX plus the number zero-padded to four digits; anything
// else passes through uppercased. Empty and "nan" (a spreadsheet artifact)
// become the empty string, which callers must reject. The function is
// idempotent.
func (n *Normalizer) Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "nan") {
		return ""
	}

	if isDigits(raw) {
		return n.prefix + pad4(raw)
	}

	if m := n.prefixed.FindStringSubmatch(raw); m != nil {
		return n.prefix + pad4(m[1])
	}

	return strings.ToUpper(raw)
}

// IsStrict reports whether the id already satisfies the canonical
// PREFIX#### pattern accepted by ingestion.
func (n *Normalizer) IsStrict(id string) bool {
	return n.strict.MatchString(id)
}

// Prefix returns the configured identifier prefix.
func (n *Normalizer) Prefix() string {
	return n.prefix
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func pad4(digits string) string {
	if len(digits) >= 4 {
		return digits
	}
	return strings.Repeat("0", 4-len(digits)) + digits
}
