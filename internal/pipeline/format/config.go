package format

// Config selects the summary locale. Cell formatting (dates, digit
// grouping) is locale-independent.
type Config struct {
	DefaultLocale string
}
