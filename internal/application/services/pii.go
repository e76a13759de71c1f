package services

import "regexp"

// piiPattern pairs a compiled detector with the redaction tag used in its
// placeholder ("[REDACTED_<TYPE>]").
type piiPattern struct {
	tag string
	re  *regexp.Regexp
}

// piiPatterns is the exact pattern set from §4.6.1, in detection order.
// SSN and credit-card patterns are checked ahead of the looser phone
// pattern so a hyphenated SSN is never re-masked as a phone number.
var piiPatterns = []piiPattern{
	{"SSN", regexp.MustCompile(`\d{3}-\d{2}-\d{4}`)},
	{"CREDIT_CARD", regexp.MustCompile(`\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}`)},
	{"EMAIL", regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)},
	{"PHONE", regexp.MustCompile(`(\+?\d{1,2}\s?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`)},
	{"IP_ADDRESS", regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
	{"PASSPORT", regexp.MustCompile(`\b[A-Z]{1,2}\d{6,9}\b`)},
}

// ContainsPII reports whether text matches any pattern in the PII set.
func ContainsPII(text string) bool {
	for _, p := range piiPatterns {
		if p.re.MatchString(text) {
			return true
		}
	}
	return false
}

// MaskPII replaces every PII match in text with its tagged placeholder,
// e.g. "[REDACTED_EMAIL]". Used by the evidence sanitizer, never by the
// policy validator (which hard-fails instead of masking).
func MaskPII(text string) string {
	for _, p := range piiPatterns {
		text = p.re.ReplaceAllString(text, "[REDACTED_"+p.tag+"]")
	}
	return text
}
