package extract

import "cctns-copilot/internal/models"

// Input is the canonicalized utterance from the normalization stage.
type Input struct {
	Utterance models.NormalizedUtterance `json:"utterance"`
}

// Output is the selected intent and the filtered entity set.
type Output struct {
	Intent   models.Intent   `json:"intent"`
	Entities []models.Entity `json:"entities"`
}
