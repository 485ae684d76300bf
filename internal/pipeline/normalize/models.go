package normalize

import "cctns-copilot/internal/models"

// Input is the raw utterance entering the pipeline.
type Input struct {
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"` // transcript confidence, 1.0 for typed text
}

// Output carries the canonicalized utterance.
type Output struct {
	Utterance models.NormalizedUtterance `json:"utterance"`
}
