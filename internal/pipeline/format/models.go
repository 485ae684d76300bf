package format

import "cctns-copilot/internal/models"

type Input struct {
	Intent models.Intent      `json:"intent"`
	Result models.QueryResult `json:"result"`
	Locale string             `json:"locale"`
}

type Output struct {
	Table   models.DisplayTable `json:"table"`
	Summary models.Summary      `json:"summary"`
}
