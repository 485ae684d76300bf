package normalize

// Config holds the normalizer settings.
type Config struct {
	// DefaultLanguage is assumed when the request does not carry one.
	DefaultLanguage string
}
