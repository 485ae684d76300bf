package validate

// Config tunes the validator limits. BlockedKeywords supplements the
// built-in set; it can never remove an entry from it.
type Config struct {
	BlockedKeywords []string
	MaxQueryLength  int
	DefaultLimit    int
	MaxLimit        int
	MaxJoins        int
	MaxSubqueries   int
}
