package format

import (
	"fmt"
	"strings"

	"cctns-copilot/internal/models"
)

// Summary templates by locale and intent. %s is the formatted row count.
// Telugu and Hindi phrasings mirror the English ones; an unknown locale
// falls back to English rather than failing the request.

type summaryTexts struct {
	zeroMatch  string
	statistics string
	comparison string
	trend      string
	records    string
	truncated  string
	cached     string
}

var summariesByLocale = map[string]summaryTexts{
	"en": {
		zeroMatch:  "No matching records were found.",
		statistics: "Found %s result(s) with the requested counts.",
		comparison: "Comparison across %s group(s).",
		trend:      "Trend over %s period(s).",
		records:    "Found %s matching record(s).",
		truncated:  " Showing the first %s; narrow the question for the rest.",
		cached:     " (from cache)",
	},
	"hi": {
		zeroMatch:  "कोई मिलान रिकॉर्ड नहीं मिला।",
		statistics: "अनुरोधित गणना के साथ %s परिणाम मिले।",
		comparison: "%s समूहों में तुलना।",
		trend:      "%s अवधियों में रुझान।",
		records:    "%s मिलान रिकॉर्ड मिले।",
		truncated:  " पहले %s दिखाए जा रहे हैं; शेष के लिए प्रश्न सीमित करें।",
		cached:     " (कैश से)",
	},
	"te": {
		zeroMatch:  "సరిపోలిన రికార్డులు కనబడలేదు.",
		statistics: "అభ్యర్థించిన గణనలతో %s ఫలితాలు లభించాయి.",
		comparison: "%s సమూహాల మధ్య పోలిక.",
		trend:      "%s కాలాల్లో ధోరణి.",
		records:    "%s సరిపోలిన రికార్డులు లభించాయి.",
		truncated:  " మొదటి %s చూపుతున్నాం; మిగిలినవాటికి ప్రశ్నను పరిమితం చేయండి.",
		cached:     " (కాష్ నుండి)",
	},
}

// buildSummary writes the bounded one-liner for a result set. Zero matches
// always produce the explicit zero-match sentence, never an empty string.
func buildSummary(intent models.IntentType, result models.QueryResult, locale string) models.Summary {
	texts, ok := summariesByLocale[locale]
	if !ok {
		locale = "en"
		texts = summariesByLocale["en"]
	}

	if result.RowCount == 0 {
		return models.Summary{Text: texts.zeroMatch, Locale: locale}
	}

	count := formatIndianInt(int64(result.RowCount))

	var b strings.Builder
	switch intent {
	case models.IntentStatistics:
		fmt.Fprintf(&b, texts.statistics, count)
	case models.IntentCompareData:
		fmt.Fprintf(&b, texts.comparison, count)
	case models.IntentTrendAnalysis:
		fmt.Fprintf(&b, texts.trend, count)
	default:
		fmt.Fprintf(&b, texts.records, count)
	}

	if result.Truncated {
		fmt.Fprintf(&b, texts.truncated, count)
	}
	if result.FromCache {
		b.WriteString(texts.cached)
	}

	return models.Summary{Text: b.String(), Locale: locale}
}
