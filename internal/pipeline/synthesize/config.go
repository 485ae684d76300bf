package synthesize

import "time"

// Config controls both synthesis strategies. The generative path is optional;
// with Generative disabled the handler goes straight to the rule templates.
type Config struct {
	Generative  bool
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int

	// DefaultLimit bounds rule-based queries. Generated queries are bounded
	// later by the validator regardless of what the model emits.
	DefaultLimit int
}
