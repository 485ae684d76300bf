package models

// QueryOrigin says which synthesis path produced a candidate query.
type QueryOrigin string

const (
	OriginGenerated QueryOrigin = "generated"
	OriginRuleBased QueryOrigin = "rule_based"
)

// CandidateQuery is a synthesized SQL statement awaiting validation. Params
// are positional ($1, $2, ...) in the order they appear in SQL; entity values
// are always bound, never interpolated into the text.
type CandidateQuery struct {
	SQL    string        `json:"sql"`
	Tables []string      `json:"referencedTables"`
	Params []interface{} `json:"boundParameters"`
	Origin QueryOrigin   `json:"origin"`
}

// RejectionReason enumerates why the validator declined a statement.
type RejectionReason string

const (
	ReasonBlockedKeyword   RejectionReason = "blocked_keyword"
	ReasonUnknownSchemaRef RejectionReason = "unknown_schema_reference"
	ReasonLengthExceeded   RejectionReason = "length_exceeded"
	ReasonInjectionPattern RejectionReason = "injection_pattern"
	ReasonNotSelect        RejectionReason = "statement_not_select"
)

// Verdict is the validator's decision. NormalizedSQL is only set on accepted
// verdicts and always carries an effective row limit.
type Verdict struct {
	Accepted      bool            `json:"accepted"`
	Reason        RejectionReason `json:"reason,omitempty"`
	Detail        string          `json:"detail,omitempty"`
	NormalizedSQL string          `json:"normalizedSql,omitempty"`
}

// Row is one result record keyed by column name.
type Row map[string]interface{}

// QueryResult is produced by the executor and consumed by the formatter. It
// is discarded after the response is sent; only the cache holds it longer.
type QueryResult struct {
	Columns             []string `json:"columns"`
	Rows                []Row    `json:"rows"`
	RowCount            int      `json:"rowCount"`
	Truncated           bool     `json:"truncated"`
	ExecutionTimeMillis int64    `json:"executionTimeMs"`
	FromCache           bool     `json:"fromCache,omitempty"`
}

// DisplayTable is the locale-formatted rendering of a QueryResult.
type DisplayTable struct {
	Headers []string   `json:"headers"`
	Cells   [][]string `json:"cells"`
}

// Summary is the bounded natural-language description of a result set.
type Summary struct {
	Text   string `json:"text"`
	Locale string `json:"locale"`
}
