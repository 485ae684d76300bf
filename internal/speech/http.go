package speech

import (
	"context"
	"fmt"
	"time"

	commonhttp "cctns-copilot/internal/common/http"
	"cctns-copilot/internal/common/logger"
)

// Config points the adapter at the STT service. FallbackModel is optional;
// when set, transcripts below ConfidenceThreshold are retried with it and
// the better of the two wins.
type Config struct {
	BaseURL             string
	PrimaryModel        string
	FallbackModel       string
	ConfidenceThreshold float64
	Timeout             time.Duration
	MaxRetries          int
}

type HTTPTranscriber struct {
	config *Config
	client *commonhttp.Client
	logger logger.Logger
}

func NewHTTPTranscriber(config *Config, log logger.Logger) *HTTPTranscriber {
	return &HTTPTranscriber{
		config: config,
		client: commonhttp.NewClient(config.Timeout),
		logger: log.With(map[string]interface{}{"component": "speech"}),
	}
}

func (t *HTTPTranscriber) Transcribe(ctx context.Context, req Request) (*Transcript, error) {
	primary, err := t.transcribeWith(ctx, req, t.config.PrimaryModel)
	if err != nil {
		return nil, err
	}
	if primary.Confidence >= t.config.ConfidenceThreshold || t.config.FallbackModel == "" {
		return primary, nil
	}

	t.logger.Info("primary transcript below threshold, trying fallback model", map[string]interface{}{
		"primaryModel":  t.config.PrimaryModel,
		"fallbackModel": t.config.FallbackModel,
		"confidence":    primary.Confidence,
	})

	fallback, err := t.transcribeWith(ctx, req, t.config.FallbackModel)
	if err != nil {
		// The primary transcript survives a fallback outage.
		t.logger.Warn("fallback transcription failed", map[string]interface{}{"error": err.Error()})
		return primary, nil
	}
	if fallback.Confidence > primary.Confidence {
		return fallback, nil
	}
	return primary, nil
}

func (t *HTTPTranscriber) transcribeWith(ctx context.Context, req Request, model string) (*Transcript, error) {
	payload := struct {
		Request
		Model string `json:"model"`
	}{Request: req, Model: model}

	var lastErr error
	for attempt := 0; attempt <= t.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrTranscriptionFailed, ctx.Err())
			}
		}

		var out Transcript
		if err := t.client.PostJSON(ctx, t.config.BaseURL+"/api/stt/transcribe", payload, &out); err != nil {
			lastErr = err
			continue
		}
		out.Model = model
		return &out, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrTranscriptionFailed, lastErr)
}
