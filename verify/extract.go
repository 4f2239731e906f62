package verify

import "regexp"

// codePatterns is ordered by specificity. The first pattern that matches
// wins, regardless of where later patterns would match in the body, so an
// explicit "verification code: 123456" always beats a bare 6-digit run.
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)verification code:?\s*(\d{6})`),
	regexp.MustCompile(`(?i)your code:?\s*(\d{6})`),
	regexp.MustCompile(`(?i)code:?\s*(\d{6})`),
	regexp.MustCompile(`(?i)(\d{6})\s*is your`),
}

// ExtractCode applies the pattern list to body and returns the first 6-digit
// code found in pattern-priority order
func ExtractCode(body string) (string, bool) {
	for _, pattern := range codePatterns {
		if m := pattern.FindStringSubmatch(body); m != nil {
			return m[1], true
		}
	}
	return "", false
}
