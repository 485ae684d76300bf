package validate

import "cctns-copilot/internal/models"

type Input struct {
	Query models.CandidateQuery `json:"query"`
}

type Output struct {
	Verdict models.Verdict `json:"verdict"`
}
