package redact

import "regexp"

// Replacement tokens for redacted substrings.
const (
	TokenLink  = "[LINK]"
	TokenEmail = "[EMAIL]"
	TokenPhone = "[PHONE]"
)

var (
	reURL   = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
	reEmail = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	// Brazilian numbers with optional +55/55 prefix and area code.
	rePhoneBR = regexp.MustCompile(`(?:\+?55[\s\-]?)\(?\d{2}\)?[\s\-]?9?\d{4}[\s\-]?\d{4}`)
	// Generic international form: + country code then 2-4 digit groups.
	rePhoneIntl = regexp.MustCompile(`\+\d{1,3}(?:[\s\-]?\d{2,4}){2,4}`)
)

// Redact replaces URL, email, and phone-like substrings with fixed tokens.
// URLs and emails are rewritten before phone matching so a URL's digit run
// is not mis-tagged as a phone number. This is a best-effort heuristic, not
// airtight PII detection.
func Redact(text string) string {
	if text == "" {
		return text
	}
	text = reURL.ReplaceAllString(text, TokenLink)
	text = reEmail.ReplaceAllString(text, TokenEmail)
	text = rePhoneBR.ReplaceAllString(text, TokenPhone)
	text = rePhoneIntl.ReplaceAllString(text, TokenPhone)
	return text
}
