package domain

// Year thresholds applied by Filter.
const (
	MinIssueYear      = 2010
	MinExpirationYear = 2020
)

// Filter keeps licenses issued in or after MinIssueYear, expiring in or after
// MinExpirationYear, and located in a ward between MinWard and MaxWard. Rows
// zero-filled by Clean fall outside these ranges and are removed here.
// Retained rows are copied unchanged; applying Filter twice yields the same result.
func Filter(licenses []License) []License {
	out := make([]License, 0, len(licenses))
	for _, l := range licenses {
		if !inRange(l) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func inRange(l License) bool {
	return l.IssueDate.Year() >= MinIssueYear &&
		l.ExpirationDate.Year() >= MinExpirationYear &&
		l.Ward >= MinWard && l.Ward <= MaxWard
}
