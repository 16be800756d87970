/**
 * @description
 * Content redactor for party messaging. Contact-identifying substrings
 * (emails, phone-like digit runs, social links and handles) are masked with
 * fixed placeholder tokens before a message is persisted, so the two
 * parties cannot exchange out-of-band contact details that bypass the
 * service fee.
 *
 * @notes
 * - Sanitize is deterministic and idempotent: the placeholders contain no
 *   digits and no pattern-matchable "@", so re-running it on redacted text
 *   changes nothing.
 */
package app

import (
	"regexp"
	"strings"
)

type redactionRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Redactor masks contact-identifying substrings in free text.
type Redactor struct {
	rules []redactionRule
}

// NewRedactor builds the redactor with its rule set. Rule order matters:
// emails and links are masked before the phone rule so their digit runs are
// gone by the time phone matching happens.
func NewRedactor() *Redactor {
	return &Redactor{
		rules: []redactionRule{
			{
				pattern:     regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`),
				replacement: "[email removido]",
			},
			{
				pattern:     regexp.MustCompile(`(?i)(instagram\.com/\S+|facebook\.com/\S+|t\.me/\S+|twitter\.com/\S+|x\.com/\S+|linkedin\.com/\S+|wa\.me/\S+)`),
				replacement: "[link removido]",
			},
			{
				pattern:     regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`),
				replacement: "[telefone removido]",
			},
			{
				pattern:     regexp.MustCompile(`(^|\s)@[A-Za-z0-9_.]{2,}`),
				replacement: "${1}[@ removido]",
			},
		},
	}
}

// Sanitize masks every detected contact pattern in raw and reports whether
// any substitution occurred.
func (r *Redactor) Sanitize(raw string) (content string, hasRedactions bool) {
	content = raw
	for _, rule := range r.rules {
		if !rule.pattern.MatchString(content) {
			continue
		}
		content = rule.pattern.ReplaceAllString(content, rule.replacement)
		hasRedactions = true
	}
	return strings.TrimSpace(content), hasRedactions
}
