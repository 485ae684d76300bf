package extract

// Config holds the extractor thresholds.
type Config struct {
	// IntentThreshold is the minimum confidence for a classified intent;
	// below it the extractor answers help_request with zero entities.
	IntentThreshold float64
	// EntityThreshold filters low-confidence entities before synthesis.
	EntityThreshold float64
}
