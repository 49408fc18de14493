// Package redact finds and irreversibly replaces secret-shaped substrings in
// arbitrary text. The masked output never contains the original value; each
// replacement is recorded as an Audit holding only the secret type and a
// bucketed length.
package redact

import (
	"regexp"
	"sort"
	"strings"
)

// Marker is the constant-width replacement for every detected secret.
const Marker = "[REDACTED]"

// Audit records one redaction: what kind of secret was found, how long it
// was (rounded up to a multiple of 8 so exact length never leaks), and
// where it started in the masked output. The raw value is never stored.
type Audit struct {
	SecretType     string
	RedactedLength int
	Position       int
}

// detector matches one secret shape. group selects the submatch to replace:
// 0 replaces the whole match, otherwise only that capture group is masked
// (used for key=value shapes where the key should survive).
type detector struct {
	name  string
	re    *regexp.Regexp
	group int
}

// Detectors run in fixed order; earlier, more specific shapes win over the
// generic key/value fallback.
var detectors = []detector{
	{"aws_access_key", regexp.MustCompile(`\b(AKIA|ASIA|AGPA|AIDA|AROA|ANPA)[0-9A-Z]{16}\b`), 0},
	{"aws_secret_key", regexp.MustCompile(`(?i)\baws_secret_access_key\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})\b`), 1},
	{"github_token", regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`), 0},
	{"gitlab_token", regexp.MustCompile(`\bglpat-[A-Za-z0-9_\-]{20,}\b`), 0},
	{"slack_token", regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9\-]{10,}\b`), 0},
	{"google_api_key", regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{35}\b`), 0},
	{"private_key_block", regexp.MustCompile(`(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`), 0},
	{"jwt", regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]{8,}\.[A-Za-z0-9_\-]{8,}\.[A-Za-z0-9_\-]{8,}\b`), 0},
	{"bearer_token", regexp.MustCompile(`(?i)\bbearer\s+([A-Za-z0-9._\-+/=]{20,})`), 1},
	{"generic_key_value", regexp.MustCompile(`(?i)\b(api[_-]?key|secret[_-]?key|secret|token|password|passwd)\s*[:=]\s*["']?([A-Za-z0-9/+_\-.]{16,})`), 2},
}

// Mask replaces every secret-shaped substring in text with Marker and
// returns the masked text plus an audit entry per replacement. Idempotent:
// masking already-masked text changes nothing and produces no audits; text
// without secret shapes is returned unchanged.
func Mask(text string) (string, []Audit) {
	masked := text
	var audits []Audit

	for _, d := range detectors {
		matches := d.re.FindAllStringSubmatchIndex(masked, -1)
		if len(matches) == 0 {
			continue
		}

		// Rebuild front to back so each audit position accounts for the
		// length change of every replacement to its left.
		var b strings.Builder
		var passAudits []Audit
		type replaced struct{ start, delta int }
		var spans []replaced
		prev, delta := 0, 0
		for _, m := range matches {
			start, end := m[2*d.group], m[2*d.group+1]
			if start < 0 {
				continue
			}
			value := masked[start:end]
			if strings.Contains(value, Marker) || !plausibleSecret(d, value) {
				continue
			}
			b.WriteString(masked[prev:start])
			b.WriteString(Marker)
			passAudits = append(passAudits, Audit{
				SecretType:     d.name,
				RedactedLength: bucketLength(end - start),
				Position:       start + delta,
			})
			spans = append(spans, replaced{start, len(Marker) - (end - start)})
			delta += len(Marker) - (end - start)
			prev = end
		}
		if len(passAudits) == 0 {
			continue
		}
		b.WriteString(masked[prev:])
		masked = b.String()

		// Positions recorded by earlier detectors shift too when this pass
		// replaces text to their left.
		for i := range audits {
			orig := audits[i].Position
			for _, s := range spans {
				if s.start < orig {
					audits[i].Position += s.delta
				}
			}
		}
		audits = append(audits, passAudits...)
	}

	sort.Slice(audits, func(i, j int) bool { return audits[i].Position < audits[j].Position })
	return masked, audits
}

// bucketLength rounds a length up to the next multiple of 8 so the audit
// trail does not disclose exact secret lengths.
func bucketLength(n int) int {
	return ((n + 7) / 8) * 8
}

// plausibleSecret filters generic key/value matches that are clearly not
// secrets: low character variety reads as a word or path, not a credential.
// Format-specific detectors are precise enough to skip the check.
func plausibleSecret(d detector, value string) bool {
	if d.name != "generic_key_value" {
		return true
	}
	var lower, upper, digit bool
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	classes := 0
	for _, c := range []bool{lower, upper, digit} {
		if c {
			classes++
		}
	}
	return classes >= 2
}
