package pipeline

import "cctns-copilot/internal/models"

// Request is one natural-language question entering the pipeline. Text is
// expected in the query language (English); voice input is transcribed and
// translated before it gets here.
type Request struct {
	RequestID string `json:"requestId"`
	Text      string `json:"text"`
	Language  string `json:"language,omitempty"`
	Locale    string `json:"locale,omitempty"`
	// Confidence carries the transcription confidence for voice requests;
	// typed requests default to 1.
	Confidence float64 `json:"confidence,omitempty"`
}

// Response is the full pipeline answer. For conversational intents only
// Message is set; for data intents the SQL, table, and summary are present.
type Response struct {
	RequestID string                     `json:"requestId"`
	Utterance models.NormalizedUtterance `json:"utterance"`
	Intent    models.Intent              `json:"intent"`
	Entities  []models.Entity            `json:"entities,omitempty"`

	SQL     string               `json:"sql,omitempty"`
	Origin  models.QueryOrigin   `json:"origin,omitempty"`
	Table   *models.DisplayTable `json:"table,omitempty"`
	Summary *models.Summary      `json:"summary,omitempty"`

	RowCount            int   `json:"rowCount"`
	Truncated           bool  `json:"truncated,omitempty"`
	FromCache           bool  `json:"fromCache,omitempty"`
	ExecutionTimeMillis int64 `json:"executionTimeMillis,omitempty"`

	// Message answers conversational intents (greeting, help, goodbye).
	Message string `json:"message,omitempty"`
}
