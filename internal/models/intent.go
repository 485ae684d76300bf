package models

// IntentType is the closed set of intents the pipeline understands.
type IntentType string

const (
	IntentQueryData     IntentType = "query_data"
	IntentReport        IntentType = "generate_report"
	IntentStatistics    IntentType = "get_statistics"
	IntentSearchRecords IntentType = "search_records"
	IntentCompareData   IntentType = "compare_data"
	IntentTrendAnalysis IntentType = "trend_analysis"
	IntentHelpRequest   IntentType = "help_request"
	IntentGreeting      IntentType = "greeting"
	IntentGoodbye       IntentType = "goodbye"
)

// IntentPriority is the fixed tie-break order when several intents score the
// same confidence: the earlier entry wins.
var IntentPriority = []IntentType{
	IntentQueryData,
	IntentReport,
	IntentStatistics,
	IntentSearchRecords,
	IntentCompareData,
	IntentTrendAnalysis,
	IntentHelpRequest,
	IntentGreeting,
	IntentGoodbye,
}

// Rank returns the tie-break rank of t, lower is stronger. Unknown types rank
// after every known intent.
func (t IntentType) Rank() int {
	for i, it := range IntentPriority {
		if it == t {
			return i
		}
	}
	return len(IntentPriority)
}

// Valid reports whether t is a member of the closed intent set.
func (t IntentType) Valid() bool {
	return t.Rank() < len(IntentPriority)
}

// Intent is the selected intent for an utterance. Exactly one is chosen per
// request.
type Intent struct {
	Type       IntentType `json:"type"`
	Confidence float64    `json:"confidence"`
}
