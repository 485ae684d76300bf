// Package synthesize turns a classified utterance into a candidate SQL
// query. The generative strategy is tried first when a model client is
// configured; any generative failure falls back to the deterministic rule
// templates, so the pipeline keeps answering when the model is down.
package synthesize

import (
	"context"
	"errors"

	"cctns-copilot/internal/common/logger"
	"cctns-copilot/internal/common/metrics"
	"cctns-copilot/internal/models"
	"cctns-copilot/internal/schema"
)

const StageName = "synthesize"

var (
	ErrSynthesisFailed   = errors.New("SYNTHESIS_FAILED")
	ErrGenerationTimeout = errors.New("GENERATION_TIMEOUT")
	ErrCannotAnswer      = errors.New("CANNOT_ANSWER")
)

type Handler struct {
	config     *Config
	generative *generativeStrategy
	rules      *ruleStrategy
	logger     logger.Logger
}

// NewHandler builds the stage. client may be nil; the handler then runs
// rule-based only regardless of config.Generative.
func NewHandler(config *Config, client ChatCompleter, catalog *schema.Catalog, log logger.Logger) *Handler {
	h := &Handler{
		config: config,
		rules:  newRuleStrategy(config, catalog),
		logger: log.With(map[string]interface{}{"stage": StageName}),
	}
	if config.Generative && client != nil {
		h.generative = newGenerativeStrategy(config, client, catalog)
	}
	return h
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if h.generative != nil {
		query, err := h.generative.Synthesize(ctx, input)
		if err == nil {
			h.logger.Info("query generated", map[string]interface{}{
				"origin": string(query.Origin),
				"tables": query.Tables,
			})
			return &Output{Query: *query}, nil
		}

		cause := "error"
		if errors.Is(err, ErrGenerationTimeout) {
			cause = "timeout"
		}
		metrics.SynthesisFallbacks.WithLabelValues(cause).Inc()
		h.logger.Warn("generative synthesis failed, falling back to rules", map[string]interface{}{
			"cause": cause,
			"error": err.Error(),
		})
	}

	query, err := h.rules.Synthesize(input)
	if err != nil {
		h.logger.Info("rule synthesis declined", map[string]interface{}{
			"intent": string(input.Intent.Type),
			"error":  err.Error(),
		})
		return nil, err
	}

	h.logger.Info("query generated", map[string]interface{}{
		"origin": string(query.Origin),
		"tables": query.Tables,
	})
	return &Output{Query: *query}, nil
}

// Suggestions returns rephrasing hints for a declined utterance, used to
// build the CANNOT_ANSWER response.
func Suggestions(intent models.IntentType) []string {
	switch intent {
	case models.IntentCompareData:
		return []string{
			"Name the two districts to compare, e.g. \"compare thefts in Guntur and Kurnool\"",
		}
	case models.IntentQueryData, models.IntentSearchRecords, models.IntentReport:
		return []string{
			"Mention a district, station, or crime type",
			"Add a time period, e.g. \"last month\" or \"between 01-01-2024 and 31-03-2024\"",
		}
	default:
		return []string{
			"Ask about FIRs, arrests, or crime statistics",
			"Example: \"How many thefts were reported in Guntur district last month?\"",
		}
	}
}
