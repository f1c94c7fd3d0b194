package comparison

// severityRank orders severities from least to most severe
var severityRank = map[Severity]int{
	SeverityLow:    1,
	SeverityMedium: 2,
	SeverityHigh:   3,
}

// CountBySeverity tallies mismatches per severity
func CountBySeverity(mismatches []Mismatch) map[Severity]int {
	counts := make(map[Severity]int)
	for _, m := range mismatches {
		counts[m.Severity]++
	}
	return counts
}

// CountByType tallies mismatches per type
func CountByType(mismatches []Mismatch) map[MismatchType]int {
	counts := make(map[MismatchType]int)
	for _, m := range mismatches {
		counts[m.Type]++
	}
	return counts
}

// HighestSeverity returns the most severe level present, or "" when there
// are no mismatches
func HighestSeverity(mismatches []Mismatch) Severity {
	var highest Severity
	for _, m := range mismatches {
		if severityRank[m.Severity] > severityRank[highest] {
			highest = m.Severity
		}
	}
	return highest
}
