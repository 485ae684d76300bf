package extract

import (
	"regexp"

	"cctns-copilot/internal/models"
	"cctns-copilot/internal/terminology"
)

// Domain recognizer: police vocabulary from the terminology document. Its
// labels take precedence over the general recognizer on overlapping spans.

const domainConfidence = 0.90

type domainRecognizer struct {
	vocab    *terminology.Vocabulary
	patterns []vocabPattern
}

type vocabPattern struct {
	re    *regexp.Regexp
	kind  models.EntityKind
	value string
}

func newDomainRecognizer(vocab *terminology.Vocabulary) *domainRecognizer {
	r := &domainRecognizer{vocab: vocab}

	add := func(kind models.EntityKind, words []string) {
		for _, w := range words {
			r.patterns = append(r.patterns, vocabPattern{
				re:    wordPattern(w),
				kind:  kind,
				value: w,
			})
		}
	}

	add(models.EntityDistrict, vocab.Districts)
	add(models.EntityStation, vocab.Stations)
	add(models.EntityOfficerRank, vocab.OfficerRanks)
	for _, ct := range vocab.CrimeTypes {
		r.patterns = append(r.patterns, vocabPattern{
			re:    wordPattern(ct.Name),
			kind:  models.EntityCrimeType,
			value: ct.Name,
		})
	}

	return r
}

func wordPattern(word string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
}

// Recognize emits one entity per vocabulary occurrence, with the canonical
// casing from the vocabulary as the value.
func (r *domainRecognizer) Recognize(text string) []models.Entity {
	var out []models.Entity

	for _, p := range r.patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			out = append(out, models.Entity{
				Kind:       p.kind,
				Value:      p.value,
				Confidence: domainConfidence,
				Span:       models.Span{Start: loc[0], End: loc[1]},
			})
		}
	}

	return out
}
