package util

import (
	"regexp"
	"strings"
)

var (
	rePunct  = regexp.MustCompile(`[.,'’&()\-/]`)
	reNonAln = regexp.MustCompile(`[^a-z0-9\s]`)
	reSpaces = regexp.MustCompile(`\s+`)

	// Suffix and facility tokens stripped only for match-key purposes.
	// Certification names go through CertKey instead, which keeps these
	// words: stripping them there would collapse unrelated programs.
	reStopwords = regexp.MustCompile(`\b(private limited|pvt ltd|pvt|ltd|limited|incorporated|inc|corporation|corp|company|medical cent(?:er|re)|hospitals?|clinics?|laborator(?:y|ies)|healthcare)\b`)
)

// MatchKey canonicalizes an organization name into the key used to decide
// that two records denote the same facility. Total: garbage in, empty out.
func MatchKey(name string) string {
	s := strings.ToLower(name)
	s = rePunct.ReplaceAllString(s, " ")
	s = reNonAln.ReplaceAllString(s, " ")
	s = reStopwords.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CertKey is the loose normalization used to deduplicate certification names:
// case and whitespace only, so "ISO 9001" and "ISO 15189" stay distinct.
func CertKey(name string) string {
	s := strings.ToLower(name)
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// FirstNonEmpty returns the first value with non-whitespace content.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
