package synthesize

import "cctns-copilot/internal/models"

type Input struct {
	Utterance models.NormalizedUtterance `json:"utterance"`
	Intent    models.Intent              `json:"intent"`
	Entities  []models.Entity            `json:"entities"`
}

type Output struct {
	Query models.CandidateQuery `json:"query"`
}
