// Package translate moves utterances between the supported languages
// (English, Hindi, Telugu) so the pipeline always reasons in the query
// language.
package translate

import (
	"context"
	"errors"
	"fmt"
	"time"

	commonhttp "cctns-copilot/internal/common/http"
	"cctns-copilot/internal/common/logger"
)

var ErrTranslationFailed = errors.New("TRANSLATION_FAILED")

type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

type HTTPTranslator struct {
	config *Config
	client *commonhttp.Client
	logger logger.Logger
}

func NewHTTPTranslator(config *Config, log logger.Logger) *HTTPTranslator {
	return &HTTPTranslator{
		config: config,
		client: commonhttp.NewClient(config.Timeout),
		logger: log.With(map[string]interface{}{"component": "translate"}),
	}
}

func (t *HTTPTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if source == target || text == "" {
		return text, nil
	}

	payload := map[string]string{
		"text":   text,
		"source": source,
		"target": target,
	}

	var lastErr error
	for attempt := 0; attempt <= t.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrTranslationFailed, ctx.Err())
			}
		}

		var out struct {
			Text string `json:"text"`
		}
		if err := t.client.PostJSON(ctx, t.config.BaseURL+"/api/translate", payload, &out); err != nil {
			lastErr = err
			continue
		}
		return out.Text, nil
	}

	return "", fmt.Errorf("%w: %s->%s: %v", ErrTranslationFailed, source, target, lastErr)
}

// MockTranslator echoes the input, optionally through a fixed mapping.
type MockTranslator struct {
	Mapping map[string]string
	Err     error
}

func (m MockTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if translated, ok := m.Mapping[text]; ok {
		return translated, nil
	}
	return text, nil
}
