// Package extract is the intent classification and entity extraction stage.
// Two recognizers run over the canonical text: the domain recognizer (police
// vocabulary) and the general recognizer (dates, phones, vehicles). Their
// results are merged; on overlapping spans the domain label wins.
package extract

import (
	"context"
	"sort"

	"cctns-copilot/internal/common/logger"
	"cctns-copilot/internal/models"
	"cctns-copilot/internal/terminology"
)

const StageName = "extract"

type Handler struct {
	config  *Config
	rules   []compiledRule
	domain  *domainRecognizer
	general *generalRecognizer
	logger  logger.Logger
}

func NewHandler(config *Config, vocab *terminology.Vocabulary, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		rules:   compileIntentRules(),
		domain:  newDomainRecognizer(vocab),
		general: newGeneralRecognizer(),
		logger:  log.With(map[string]interface{}{"stage": StageName}),
	}
}

// Execute classifies the intent and extracts entities. If no intent clears
// the threshold the safe default is help_request with zero entities; the
// extractor never guesses a data intent.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	text := input.Utterance.Canonical

	intent := classifyIntent(h.rules, text)
	if intent.Confidence < h.config.IntentThreshold {
		h.logger.Info("no intent cleared threshold", map[string]interface{}{
			"bestIntent":     string(intent.Type),
			"bestConfidence": intent.Confidence,
			"threshold":      h.config.IntentThreshold,
		})
		return &Output{
			Intent: models.Intent{Type: models.IntentHelpRequest, Confidence: intent.Confidence},
		}, nil
	}

	merged := mergeEntities(h.domain.Recognize(text), h.general.Recognize(text))

	entities := merged[:0]
	for _, e := range merged {
		if e.Confidence >= h.config.EntityThreshold {
			entities = append(entities, e)
		}
	}

	h.logger.Info("utterance classified", map[string]interface{}{
		"intent":      string(intent.Type),
		"confidence":  intent.Confidence,
		"entityCount": len(entities),
	})

	return &Output{Intent: intent, Entities: entities}, nil
}

// mergeEntities combines both recognizer outputs. Domain entities suppress
// any general entity they overlap; within one source the higher confidence
// claim on an overlap wins. Output is ordered by span start.
func mergeEntities(domain, general []models.Entity) []models.Entity {
	out := make([]models.Entity, 0, len(domain)+len(general))
	out = append(out, dedupe(domain)...)

	for _, g := range general {
		overlapped := false
		for _, d := range out {
			if g.Overlaps(d) {
				overlapped = true
				break
			}
		}
		if !overlapped {
			out = append(out, g)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Span.Start != out[j].Span.Start {
			return out[i].Span.Start < out[j].Span.Start
		}
		return out[i].Confidence > out[j].Confidence
	})

	return out
}

// dedupe keeps the highest-confidence claim per overlapping span within a
// single recognizer's output.
func dedupe(entities []models.Entity) []models.Entity {
	sorted := make([]models.Entity, len(entities))
	copy(sorted, entities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	var out []models.Entity
	for _, e := range sorted {
		overlapped := false
		for _, kept := range out {
			if e.Overlaps(kept) {
				overlapped = true
				break
			}
		}
		if !overlapped {
			out = append(out, e)
		}
	}
	return out
}
