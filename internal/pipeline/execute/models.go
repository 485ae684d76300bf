package execute

import "cctns-copilot/internal/models"

// Input carries the validator-approved statement. Nothing upstream of the
// validator may reach this stage.
type Input struct {
	SQL    string        `json:"sql"`
	Params []interface{} `json:"params"`
}

type Output struct {
	Result models.QueryResult `json:"result"`
}
