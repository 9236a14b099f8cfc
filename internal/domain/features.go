package domain

import (
	"maps"
	"regexp"
	"strings"
)

// endorsementSep splits the raw endorsement list.
var endorsementSep = regexp.MustCompile(`[,;]`)

// DeriveFeatures adds issue month/year and license duration to every record
// and one-hot encodes the endorsement strings. The flag columns are the
// distinct trimmed tokens of the whole batch in first-seen order; a record's
// flag for token t is true when t occurs anywhere in its raw endorsement
// string. Input records are not modified.
func DeriveFeatures(licenses []License) Dataset {
	tokens := EndorsementTokens(licenses)

	out := make([]License, len(licenses))
	for i, l := range licenses {
		l.IssueMonth = int(l.IssueDate.Month())
		l.IssueYear = l.IssueDate.Year()
		l.Duration = l.ExpirationDate.Sub(l.IssueDate)
		l.Attributes = maps.Clone(l.Attributes)

		l.Flags = make(map[string]bool, len(tokens))
		for _, t := range tokens {
			l.Flags[t] = strings.Contains(l.Endorsements, t)
		}
		out[i] = l
	}
	return Dataset{Licenses: out, Endorsements: tokens}
}

// EndorsementTokens returns the distinct, whitespace-trimmed endorsement
// tokens across all records, in order of first appearance. Empty tokens
// produced by stray separators are skipped.
func EndorsementTokens(licenses []License) []string {
	var tokens []string
	seen := make(map[string]bool)
	for _, l := range licenses {
		for _, part := range endorsementSep.Split(l.Endorsements, -1) {
			t := strings.TrimSpace(part)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			tokens = append(tokens, t)
		}
	}
	return tokens
}
