package extract

import (
	"regexp"
	"strings"

	"cctns-copilot/internal/models"
)

// General-purpose recognizer: dates (absolute and relative), phone numbers,
// vehicle registrations, and weak person/location cues. Loses to the domain
// recognizer on overlapping spans.

type generalPattern struct {
	re         *regexp.Regexp
	kind       models.EntityKind
	confidence float64
	// group selects a submatch as the value; 0 takes the whole match.
	group int
}

var generalPatterns = []generalPattern{
	// Absolute dates, DD-MM-YYYY or DD/MM/YYYY.
	{regexp.MustCompile(`\b(\d{1,2})[-/](\d{1,2})[-/](\d{4})\b`), models.EntityDate, 0.92, 0},
	// Relative date phrases.
	{regexp.MustCompile(`(?i)\b(today|yesterday|last week|this week|last month|this month|last year|this year)\b`), models.EntityDate, 0.85, 0},
	// Indian mobile numbers.
	{regexp.MustCompile(`\b[6-9]\d{9}\b`), models.EntityPhone, 0.85, 0},
	// Vehicle registrations like AP 16 AB 1234.
	{regexp.MustCompile(`(?i)\b[A-Z]{2}\s?\d{1,2}\s?[A-Z]{1,2}\s?\d{4}\b`), models.EntityVehicle, 0.82, 0},
	// "officer <Name>" person cue.
	{regexp.MustCompile(`(?i)\bofficer\s+([A-Z][a-z]+)`), models.EntityPerson, 0.76, 1},
	// Weak "in/at/near <Capitalized>" location cue; filtered unless nothing
	// stronger claims the span.
	{regexp.MustCompile(`(?i)\b(?:in|at|near)\s+([A-Z][a-z]+)`), models.EntityLocation, 0.60, 1},
}

type generalRecognizer struct{}

func newGeneralRecognizer() *generalRecognizer {
	return &generalRecognizer{}
}

func (r *generalRecognizer) Recognize(text string) []models.Entity {
	var out []models.Entity

	for _, p := range generalPatterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[0], m[1]
			value := text[start:end]
			if p.group > 0 && m[2*p.group] >= 0 {
				value = text[m[2*p.group]:m[2*p.group+1]]
				start, end = m[2*p.group], m[2*p.group+1]
			}
			out = append(out, models.Entity{
				Kind:       p.kind,
				Value:      normalizeGeneralValue(p.kind, value),
				Confidence: p.confidence,
				Span:       models.Span{Start: start, End: end},
			})
		}
	}

	return out
}

func normalizeGeneralValue(kind models.EntityKind, value string) string {
	switch kind {
	case models.EntityDate:
		return strings.ToLower(value)
	case models.EntityVehicle:
		return strings.ToUpper(strings.Join(strings.Fields(value), " "))
	default:
		return value
	}
}
