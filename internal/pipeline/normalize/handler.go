// Package normalize is the terminology normalization stage: multi-word phrase
// corrections first (longest match wins), then single-token abbreviation
// expansion. Matching is case-insensitive; unknown tokens pass through
// unchanged. The stage is deterministic, idempotent, and never fails.
package normalize

import (
	"context"
	"regexp"
	"strings"

	"cctns-copilot/internal/common/logger"
	"cctns-copilot/internal/models"
	"cctns-copilot/internal/terminology"
)

const StageName = "normalize"

var wordRe = regexp.MustCompile(`[A-Za-z][A-Za-z0-9]*`)

type phrasePattern struct {
	re      *regexp.Regexp
	replace string
	label   string
}

type Handler struct {
	config  *Config
	phrases []phrasePattern
	abbrev  map[string]string
	logger  logger.Logger
}

// NewHandler compiles the phrase patterns once. The vocabulary arrives
// pre-sorted longest-match-first, so "station house officer" is applied
// before any shorter overlapping phrase.
func NewHandler(config *Config, vocab *terminology.Vocabulary, log logger.Logger) *Handler {
	h := &Handler{
		config: config,
		abbrev: make(map[string]string, len(vocab.Abbreviations)),
		logger: log.With(map[string]interface{}{"stage": StageName}),
	}

	for _, pc := range vocab.PhraseCorrections {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(pc.Match) + `\b`)
		h.phrases = append(h.phrases, phrasePattern{
			re:      re,
			replace: pc.Replace,
			label:   pc.Match + " -> " + pc.Replace,
		})
	}
	for k, v := range vocab.Abbreviations {
		h.abbrev[strings.ToLower(k)] = v
	}

	return h
}

// Execute canonicalizes the utterance. Worst case it returns the input text
// unchanged; it never returns an error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	language := input.Language
	if language == "" {
		language = h.config.DefaultLanguage
	}

	canonical := input.Text
	var corrections []string

	for _, p := range h.phrases {
		if !p.re.MatchString(canonical) {
			continue
		}
		replaced := p.re.ReplaceAllString(canonical, p.replace)
		if replaced != canonical {
			canonical = replaced
			corrections = append(corrections, p.label)
		}
	}

	canonical = wordRe.ReplaceAllStringFunc(canonical, func(word string) string {
		if expansion, ok := h.abbrev[strings.ToLower(word)]; ok {
			if expansion != word {
				corrections = append(corrections, word+" -> "+expansion)
			}
			return expansion
		}
		return word
	})

	if len(corrections) > 0 {
		h.logger.Debug("terminology corrections applied", map[string]interface{}{
			"count":       len(corrections),
			"corrections": corrections,
		})
	}

	return &Output{
		Utterance: models.NormalizedUtterance{
			Source:      input.Text,
			Language:    language,
			Canonical:   canonical,
			Corrections: corrections,
			Confidence:  input.Confidence,
		},
	}, nil
}
