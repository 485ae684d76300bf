package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"cctns-copilot/internal/common/logger"
	"cctns-copilot/internal/models"
	"cctns-copilot/internal/terminology"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		IntentThreshold: 0.7,
		EntityThreshold: 0.75,
	}
}

func createTestVocabulary() *terminology.Vocabulary {
	return &terminology.Vocabulary{
		PhraseCorrections: []terminology.PhraseCorrection{
			{Match: "first information report", Replace: "FIR"},
		},
		Districts:    []string{"Guntur", "Vijayawada", "Visakhapatnam", "Tirupati", "Kurnool"},
		Stations:     []string{"Guntur Town PS", "Benz Circle PS"},
		OfficerRanks: []string{"SHO", "Inspector", "Constable", "DSP"},
		CrimeTypes: []terminology.CrimeType{
			{Name: "Theft", IPCSection: "379"},
			{Name: "Murder", IPCSection: "302"},
			{Name: "Robbery", IPCSection: "392"},
		},
	}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func createTestHandler(t *testing.T) *Handler {
	return NewHandler(createTestConfig(), createTestVocabulary(), createTestLogger(t))
}

func entityValues(entities []models.Entity, kind models.EntityKind) []string {
	var values []string
	for _, e := range entities {
		if e.Kind == kind {
			values = append(values, e.Value)
		}
	}
	return values
}

// ==========================
// Intent Classification Tests
// ==========================

func TestHandler_Execute_IntentClassification(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantIntent models.IntentType
	}{
		{
			name:       "count question maps to statistics",
			text:       "how many thefts were reported in Guntur district last month",
			wantIntent: models.IntentStatistics,
		},
		{
			name:       "report request",
			text:       "generate a report of all FIRs registered this week",
			wantIntent: models.IntentReport,
		},
		{
			name:       "record search",
			text:       "find all FIRs filed against vehicle AP16BQ1234",
			wantIntent: models.IntentSearchRecords,
		},
		{
			name:       "comparison",
			text:       "compare theft cases between Guntur and Vijayawada",
			wantIntent: models.IntentCompareData,
		},
		{
			name:       "trend",
			text:       "what is the trend of murder cases over the last year",
			wantIntent: models.IntentTrendAnalysis,
		},
		{
			name:       "greeting",
			text:       "good morning",
			wantIntent: models.IntentGreeting,
		},
		{
			name:       "off-domain text falls back to help",
			text:       "the weather is pleasant",
			wantIntent: models.IntentHelpRequest,
		},
	}

	handler := createTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := handler.Execute(context.Background(), &Input{
				Utterance: models.NormalizedUtterance{Canonical: tt.text},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantIntent, output.Intent.Type)
		})
	}
}

func TestHandler_Execute_BelowThresholdYieldsHelpWithNoEntities(t *testing.T) {
	handler := createTestHandler(t)

	// Mentions a district but carries no actionable intent cue.
	output, err := handler.Execute(context.Background(), &Input{
		Utterance: models.NormalizedUtterance{Canonical: "something about Guntur maybe"},
	})

	require.NoError(t, err)
	assert.Equal(t, models.IntentHelpRequest, output.Intent.Type)
	assert.Less(t, output.Intent.Confidence, 0.7)
	assert.Empty(t, output.Entities)
}

func TestClassifyIntent_TieBreakIsDeterministic(t *testing.T) {
	rules := compileIntentRules()

	// Run the same ambiguous text repeatedly; the winner must never change.
	text := "show records and statistics"
	first := classifyIntent(rules, text)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first.Type, classifyIntent(rules, text).Type)
	}
}

// ==========================
// Entity Extraction Tests
// ==========================

func TestHandler_Execute_EntityExtraction(t *testing.T) {
	handler := createTestHandler(t)

	output, err := handler.Execute(context.Background(), &Input{
		Utterance: models.NormalizedUtterance{
			Canonical: "how many theft cases were registered in Guntur district between 01-01-2024 and 31-03-2024",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.IntentStatistics, output.Intent.Type)
	assert.Contains(t, entityValues(output.Entities, models.EntityDistrict), "Guntur")
	assert.Contains(t, entityValues(output.Entities, models.EntityCrimeType), "Theft")
	assert.ElementsMatch(t, []string{"01-01-2024", "31-03-2024"}, entityValues(output.Entities, models.EntityDate))
}

func TestHandler_Execute_DomainBeatsGeneralOnOverlap(t *testing.T) {
	handler := createTestHandler(t)

	// "in Guntur" matches the weak general LOCATION cue and the domain
	// district list; only the district reading may survive.
	output, err := handler.Execute(context.Background(), &Input{
		Utterance: models.NormalizedUtterance{Canonical: "how many arrests in Guntur"},
	})
	require.NoError(t, err)

	assert.Contains(t, entityValues(output.Entities, models.EntityDistrict), "Guntur")
	assert.Empty(t, entityValues(output.Entities, models.EntityLocation))
}

func TestHandler_Execute_GeneralPatterns(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantKind  models.EntityKind
		wantValue string
	}{
		{
			name:      "indian mobile number",
			text:      "search records for phone number 9876543210",
			wantKind:  models.EntityPhone,
			wantValue: "9876543210",
		},
		{
			name:      "vehicle registration",
			text:      "find the FIR for vehicle ap16bq1234",
			wantKind:  models.EntityVehicle,
			wantValue: "AP16BQ1234",
		},
		{
			name:      "relative date",
			text:      "how many arrests last month",
			wantKind:  models.EntityDate,
			wantValue: "last month",
		},
		{
			name:      "named officer",
			text:      "show cases handled by officer Ramesh",
			wantKind:  models.EntityPerson,
			wantValue: "Ramesh",
		},
	}

	handler := createTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := handler.Execute(context.Background(), &Input{
				Utterance: models.NormalizedUtterance{Canonical: tt.text},
			})
			require.NoError(t, err)
			assert.Contains(t, entityValues(output.Entities, tt.wantKind), tt.wantValue)
		})
	}
}

func TestHandler_Execute_WeakCuesFilteredByThreshold(t *testing.T) {
	handler := createTestHandler(t)

	// "in Nellore" is not in the district vocabulary, so only the weak
	// general LOCATION cue (0.60) applies and the 0.75 threshold drops it.
	output, err := handler.Execute(context.Background(), &Input{
		Utterance: models.NormalizedUtterance{Canonical: "how many thefts in Nellore"},
	})
	require.NoError(t, err)

	assert.Empty(t, entityValues(output.Entities, models.EntityLocation))
}

func TestHandler_Execute_EntitiesSortedBySpan(t *testing.T) {
	handler := createTestHandler(t)

	output, err := handler.Execute(context.Background(), &Input{
		Utterance: models.NormalizedUtterance{
			Canonical: "compare murder cases between Vijayawada and Guntur last year",
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, output.Entities)

	for i := 1; i < len(output.Entities); i++ {
		assert.LessOrEqual(t, output.Entities[i-1].Span.Start, output.Entities[i].Span.Start)
	}
}

func TestMergeEntities_DedupesWithinSource(t *testing.T) {
	overlapping := []models.Entity{
		{Kind: models.EntityDistrict, Value: "Guntur", Confidence: 0.90, Span: models.Span{Start: 10, End: 16}},
		{Kind: models.EntityStation, Value: "Guntur Town PS", Confidence: 0.95, Span: models.Span{Start: 10, End: 24}},
	}

	merged := mergeEntities(overlapping, nil)

	require.Len(t, merged, 1)
	assert.Equal(t, models.EntityStation, merged[0].Kind)
}
