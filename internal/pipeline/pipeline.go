// Package pipeline chains the six processing stages: normalize, extract,
// synthesize, validate, execute, format. Each stage is timed; the first
// failure short-circuits the run and maps onto the shared error taxonomy.
package pipeline

import (
	"context"
	"errors"
	"time"

	commonerrors "cctns-copilot/internal/common/errors"
	"cctns-copilot/internal/common/logger"
	"cctns-copilot/internal/common/metrics"
	"cctns-copilot/internal/models"
	"cctns-copilot/internal/pipeline/execute"
	"cctns-copilot/internal/pipeline/extract"
	"cctns-copilot/internal/pipeline/format"
	"cctns-copilot/internal/pipeline/normalize"
	"cctns-copilot/internal/pipeline/synthesize"
	"cctns-copilot/internal/pipeline/validate"
)

// conversationalReplies answers the intents that never touch the store.
var conversationalReplies = map[models.IntentType]string{
	models.IntentGreeting: "Hello! Ask me about FIRs, arrests, or crime statistics.",
	models.IntentGoodbye:  "Goodbye. Stay safe!",
	models.IntentHelpRequest: "I answer questions about police records. " +
		"Try \"How many thefts were reported in Guntur district last month?\"",
}

type Pipeline struct {
	normalize  *normalize.Handler
	extract    *extract.Handler
	synthesize *synthesize.Handler
	validate   *validate.Handler
	execute    *execute.Handler
	format     *format.Handler
	logger     logger.Logger
}

func New(
	normalizeH *normalize.Handler,
	extractH *extract.Handler,
	synthesizeH *synthesize.Handler,
	validateH *validate.Handler,
	executeH *execute.Handler,
	formatH *format.Handler,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{
		normalize:  normalizeH,
		extract:    extractH,
		synthesize: synthesizeH,
		validate:   validateH,
		execute:    executeH,
		format:     formatH,
		logger:     log.With(map[string]interface{}{"component": "pipeline"}),
	}
}

// Process runs one request end to end. Errors come back as *StandardError
// so the transport layer can map them without inspecting stage internals.
func (p *Pipeline) Process(ctx context.Context, req *Request) (*Response, error) {
	log := p.logger.With(map[string]interface{}{"requestId": req.RequestID})
	started := time.Now()

	resp, err := p.process(ctx, req, log)
	outcome := "ok"
	if err != nil {
		outcome = outcomeOf(err)
	}
	metrics.QueriesProcessed.WithLabelValues(outcome).Inc()

	log.Info("request finished", map[string]interface{}{
		"outcome":    outcome,
		"durationMs": time.Since(started).Milliseconds(),
	})
	return resp, err
}

func (p *Pipeline) process(ctx context.Context, req *Request, log logger.Logger) (*Response, error) {
	resp := &Response{RequestID: req.RequestID}

	// Normalize.
	normOut, err := p.timed(ctx, normalize.StageName, func(ctx context.Context) (interface{}, error) {
		return p.normalize.Execute(ctx, &normalize.Input{
			Text:       req.Text,
			Language:   req.Language,
			Confidence: req.Confidence,
		})
	})
	if err != nil {
		return nil, commonerrors.NewSynthesisFailedError(err.Error())
	}
	utterance := normOut.(*normalize.Output).Utterance
	resp.Utterance = utterance

	// Extract.
	extractOut, err := p.timed(ctx, extract.StageName, func(ctx context.Context) (interface{}, error) {
		return p.extract.Execute(ctx, &extract.Input{Utterance: utterance})
	})
	if err != nil {
		return nil, commonerrors.NewSynthesisFailedError(err.Error())
	}
	extraction := extractOut.(*extract.Output)
	resp.Intent = extraction.Intent
	resp.Entities = extraction.Entities

	// Conversational intents stop here.
	if message, ok := conversationalReplies[extraction.Intent.Type]; ok {
		resp.Message = message
		return resp, nil
	}

	// Synthesize.
	synthOut, err := p.timed(ctx, synthesize.StageName, func(ctx context.Context) (interface{}, error) {
		return p.synthesize.Execute(ctx, &synthesize.Input{
			Utterance: utterance,
			Intent:    extraction.Intent,
			Entities:  extraction.Entities,
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, synthesize.ErrCannotAnswer):
			return nil, commonerrors.NewCannotAnswerError(err.Error(), synthesize.Suggestions(extraction.Intent.Type))
		case errors.Is(err, synthesize.ErrGenerationTimeout):
			return nil, commonerrors.NewGenerationTimeoutError()
		default:
			return nil, commonerrors.NewSynthesisFailedError(err.Error())
		}
	}
	candidate := synthOut.(*synthesize.Output).Query

	// Validate. A rejection is final; the pipeline never rewrites and
	// resubmits a refused statement.
	validateOut, err := p.timed(ctx, validate.StageName, func(ctx context.Context) (interface{}, error) {
		return p.validate.Execute(ctx, &validate.Input{Query: candidate})
	})
	if err != nil {
		return nil, commonerrors.NewValidationRejectedError("internal", err.Error())
	}
	verdict := validateOut.(*validate.Output).Verdict
	if !verdict.Accepted {
		return nil, commonerrors.NewValidationRejectedError(string(verdict.Reason), verdict.Detail)
	}
	resp.SQL = verdict.NormalizedSQL
	resp.Origin = candidate.Origin

	// Execute.
	execOut, err := p.timed(ctx, execute.StageName, func(ctx context.Context) (interface{}, error) {
		return p.execute.Execute(ctx, &execute.Input{
			SQL:    verdict.NormalizedSQL,
			Params: candidate.Params,
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, execute.ErrQueryTimeout):
			return nil, commonerrors.NewQueryTimeoutError(p.execute.Timeout())
		case errors.Is(err, execute.ErrDatabaseConnectionFailed):
			return nil, commonerrors.NewDatabaseConnectionFailedError(err)
		default:
			return nil, commonerrors.NewQueryExecutionFailedError(err)
		}
	}
	result := execOut.(*execute.Output).Result
	resp.RowCount = result.RowCount
	resp.Truncated = result.Truncated
	resp.FromCache = result.FromCache
	resp.ExecutionTimeMillis = result.ExecutionTimeMillis

	// Format.
	formatOut, err := p.timed(ctx, format.StageName, func(ctx context.Context) (interface{}, error) {
		return p.format.Execute(ctx, &format.Input{
			Intent: extraction.Intent,
			Result: result,
			Locale: req.Locale,
		})
	})
	if err != nil {
		return nil, commonerrors.NewQueryExecutionFailedError(err)
	}
	formatted := formatOut.(*format.Output)
	resp.Table = &formatted.Table
	resp.Summary = &formatted.Summary

	return resp, nil
}

func (p *Pipeline) timed(ctx context.Context, stage string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	started := time.Now()
	out, err := fn(ctx)
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
	return out, err
}

func outcomeOf(err error) string {
	var std *commonerrors.StandardError
	if errors.As(err, &std) {
		switch std.Code {
		case commonerrors.ErrCodeValidationRejected:
			return "rejected"
		case commonerrors.ErrCodeCannotAnswer:
			return "declined"
		case commonerrors.ErrCodeQueryTimeout, commonerrors.ErrCodeGenerationTimeout:
			return "timeout"
		}
	}
	return "error"
}
