// Package prescription derives a structured medication schedule from
// free-form prescription text written by a doctor during a call.
package prescription

import (
	"regexp"
	"strings"
)

// Medication is a single entry of a derived medication schedule
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

var (
	// e.g. "500mg", "2 ml", "10 units"
	dosageRe = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(mg|mcg|g|ml|units?|tablets?|drops?)\b`)

	// e.g. "twice daily", "3 times a day", "every 8 hours", "once a week"
	frequencyRe = regexp.MustCompile(`(?i)\b(once|twice|thrice|\d+\s*times?)\s*(?:a|per)?\s*(day|daily|week|weekly|night|morning)\b|\bevery\s+\d+\s*(?:hours?|days?)\b`)

	// e.g. "for 5 days", "for 2 weeks"
	durationRe = regexp.MustCompile(`(?i)\bfor\s+(\d+)\s*(days?|weeks?|months?)\b`)

	// leading list markers: "1.", "-", "*"
	bulletRe = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)
)

// Parse extracts medication entries from prescription text, one candidate per
// line. Lines that do not look like a medication (no name before a dosage or
// frequency marker) are skipped; Parse never fails.
func Parse(text string) []Medication {
	var meds []Medication

	for _, line := range strings.Split(text, "\n") {
		line = bulletRe.ReplaceAllString(strings.TrimSpace(line), "")
		if line == "" {
			continue
		}

		dosage := dosageRe.FindString(line)
		frequency := frequencyRe.FindString(line)
		duration := durationRe.FindString(line)

		if dosage == "" && frequency == "" {
			continue
		}

		name := medicationName(line, dosage, frequency, duration)
		if name == "" {
			continue
		}

		meds = append(meds, Medication{
			Name:      name,
			Dosage:    strings.TrimSpace(dosage),
			Frequency: strings.TrimSpace(frequency),
			Duration:  strings.TrimSpace(duration),
		})
	}

	return meds
}

// medicationName takes everything before the first recognized marker
func medicationName(line, dosage, frequency, duration string) string {
	cut := len(line)
	for _, marker := range []string{dosage, frequency, duration} {
		if marker == "" {
			continue
		}
		if idx := strings.Index(line, marker); idx >= 0 && idx < cut {
			cut = idx
		}
	}

	name := strings.Trim(strings.TrimSpace(line[:cut]), "-:,.")
	return strings.TrimSpace(name)
}
