package extract

import (
	"regexp"
	"strings"

	"cctns-copilot/internal/models"
)

// Intent evidence weights. A single strong cue clears the default threshold
// on its own; weak cues only do so in combination.
const (
	strongCueWeight = 0.75
	weakCueWeight   = 0.30
	maxConfidence   = 0.95
)

type intentRule struct {
	intent models.IntentType
	strong []string
	weak   []string
}

// intentRules lists the evidence per intent. Order does not matter for
// scoring; ties are broken by models.IntentPriority.
var intentRules = []intentRule{
	{
		intent: models.IntentStatistics,
		strong: []string{`how many`, `\bcount\b`, `number of`, `statistics`, `\btotal\b`},
		weak:   []string{`percentage`, `average`},
	},
	{
		intent: models.IntentReport,
		strong: []string{`generate (a )?report`, `monthly report`, `\breport\b`},
		weak:   []string{`\bsummary\b`, `\bexport\b`},
	},
	{
		intent: models.IntentSearchRecords,
		strong: []string{`\bsearch\b`, `\bfind\b`, `look up`, `look for`},
		weak:   []string{`\brecords\b`, `\bcases\b`},
	},
	{
		intent: models.IntentCompareData,
		strong: []string{`\bcompare\b`, `\bversus\b`, `\bvs\b`, `difference between`},
		weak:   []string{`higher than`, `lower than`},
	},
	{
		intent: models.IntentTrendAnalysis,
		strong: []string{`\btrend\b`, `over time`, `month wise`, `year wise`},
		weak:   []string{`increase`, `decrease`, `growth`},
	},
	{
		intent: models.IntentQueryData,
		strong: []string{`\bshow\b`, `\blist\b`, `\bdisplay\b`, `\bget\b`},
		weak:   []string{`details`, `\ball\b`, `what are`},
	},
	{
		intent: models.IntentHelpRequest,
		strong: []string{`\bhelp\b`, `how do i`, `what can you`},
		weak:   []string{`\bexplain\b`},
	},
	{
		intent: models.IntentGreeting,
		strong: []string{`\bhello\b`, `\bhi\b`, `\bnamaste\b`, `good (morning|afternoon|evening)`},
	},
	{
		intent: models.IntentGoodbye,
		strong: []string{`\bbye\b`, `goodbye`, `thank you`, `\bthanks\b`},
	},
}

type compiledRule struct {
	intent models.IntentType
	strong []*regexp.Regexp
	weak   []*regexp.Regexp
}

func compileIntentRules() []compiledRule {
	out := make([]compiledRule, 0, len(intentRules))
	for _, r := range intentRules {
		cr := compiledRule{intent: r.intent}
		for _, p := range r.strong {
			cr.strong = append(cr.strong, regexp.MustCompile(`(?i)`+p))
		}
		for _, p := range r.weak {
			cr.weak = append(cr.weak, regexp.MustCompile(`(?i)`+p))
		}
		out = append(out, cr)
	}
	return out
}

// classifyIntent scores every intent and returns the winner. Ties on
// confidence fall back to the fixed priority order, never to map iteration
// order.
func classifyIntent(rules []compiledRule, text string) models.Intent {
	text = strings.TrimSpace(text)

	best := models.Intent{Type: models.IntentHelpRequest, Confidence: 0}
	bestRank := models.IntentHelpRequest.Rank()

	for _, r := range rules {
		score := 0.0
		for _, re := range r.strong {
			if re.MatchString(text) {
				score += strongCueWeight
			}
		}
		for _, re := range r.weak {
			if re.MatchString(text) {
				score += weakCueWeight
			}
		}
		if score > maxConfidence {
			score = maxConfidence
		}
		if score == 0 {
			continue
		}

		rank := r.intent.Rank()
		if score > best.Confidence || (score == best.Confidence && rank < bestRank) {
			best = models.Intent{Type: r.intent, Confidence: score}
			bestRank = rank
		}
	}

	return best
}
