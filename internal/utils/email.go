package utils

import (
	"regexp"
	"strings"
)

var subjectPrefixRe = regexp.MustCompile(`(?i)^(re|fwd|fw|aw|sv)(\s*:|\s*\[\d+\]\s*:)+\s*`)

// NormalizeSubject strips reply/forward prefixes, case insensitive.
// Prefixes stack ("RE: FWD: ..."), so strip until stable.
func NormalizeSubject(subject string) string {
	subject = strings.TrimSpace(subject)
	for {
		normalized := subjectPrefixRe.ReplaceAllString(subject, "")
		if normalized == subject {
			break
		}
		subject = strings.TrimSpace(normalized)
	}
	return subject
}

// ExtractDomainFromEmail returns the domain part of an address, handling
// display-name forms like "Reports <noreply@google.com>".
func ExtractDomainFromEmail(email string) string {
	if email == "" {
		return ""
	}

	email = strings.TrimSpace(email)

	if strings.Contains(email, "<") && strings.Contains(email, ">") {
		startIdx := strings.LastIndex(email, "<") + 1
		endIdx := strings.LastIndex(email, ">")
		if startIdx > 0 && endIdx > startIdx {
			email = email[startIdx:endIdx]
		}
	}

	atIdx := strings.LastIndex(email, "@")
	if atIdx < 0 || atIdx == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[atIdx+1:])
}
