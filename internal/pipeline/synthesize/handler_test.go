package synthesize

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"cctns-copilot/internal/common/logger"
	"cctns-copilot/internal/models"
	"cctns-copilot/internal/schema"
)

// ==========================
// Test Helper Functions
// ==========================

const testCatalogYAML = `
tables:
  - name: DISTRICT_MASTER
    kind: master
    columns: [district_id, district_name]
    primary_key: district_id
  - name: STATION_MASTER
    kind: master
    columns: [station_id, station_name, district_id]
    primary_key: station_id
    foreign_keys:
      - column: district_id
        references: DISTRICT_MASTER.district_id
  - name: CRIME_TYPE_MASTER
    kind: master
    columns: [crime_type_id, crime_name, ipc_section]
    primary_key: crime_type_id
  - name: FIR
    kind: transaction
    columns: [fir_id, fir_number, district_id, station_id, crime_type_id, registration_date, status, complainant_name, description]
    primary_key: fir_id
    foreign_keys:
      - column: district_id
        references: DISTRICT_MASTER.district_id
      - column: station_id
        references: STATION_MASTER.station_id
      - column: crime_type_id
        references: CRIME_TYPE_MASTER.crime_type_id
`

func createTestCatalog(t *testing.T) *schema.Catalog {
	catalog, err := schema.Parse([]byte(testCatalogYAML))
	require.NoError(t, err)
	return catalog
}

func createTestConfig() *Config {
	return &Config{
		Generative:   true,
		Model:        "gpt-4o-mini",
		MaxTokens:    512,
		Timeout:      5 * time.Second,
		DefaultLimit: 100,
	}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

type mockChatCompleter struct {
	response string
	err      error
	calls    int
}

func (m *mockChatCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.calls++
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: m.response}},
		},
	}, nil
}

func statisticsInput(entities ...models.Entity) *Input {
	return &Input{
		Utterance: models.NormalizedUtterance{Canonical: "how many theft cases in Guntur district last month"},
		Intent:    models.Intent{Type: models.IntentStatistics, Confidence: 0.85},
		Entities:  entities,
	}
}

// ==========================
// Generative Strategy Tests
// ==========================

func TestHandler_Execute_GenerativeSuccess(t *testing.T) {
	mock := &mockChatCompleter{
		response: "```sql\nSELECT COUNT(*) FROM FIR WHERE district_id = 3;\n```",
	}
	handler := NewHandler(createTestConfig(), mock, createTestCatalog(t), createTestLogger(t))

	output, err := handler.Execute(context.Background(), statisticsInput())
	require.NoError(t, err)

	assert.Equal(t, models.OriginGenerated, output.Query.Origin)
	assert.Equal(t, "SELECT COUNT(*) FROM FIR WHERE district_id = 3", output.Query.SQL)
	assert.Contains(t, output.Query.Tables, "FIR")
	assert.Equal(t, 1, mock.calls)
}

func TestHandler_Execute_GenerativeNonSelectFallsBack(t *testing.T) {
	mock := &mockChatCompleter{response: "DELETE FROM FIR"}
	handler := NewHandler(createTestConfig(), mock, createTestCatalog(t), createTestLogger(t))

	output, err := handler.Execute(context.Background(), statisticsInput())
	require.NoError(t, err)

	assert.Equal(t, models.OriginRuleBased, output.Query.Origin)
}

func TestHandler_Execute_GenerativeUnknownColumnFallsBack(t *testing.T) {
	// A completion referencing a column outside the catalog is a synthesis
	// failure, recovered by the rule templates rather than travelling on to
	// become a validation rejection.
	mock := &mockChatCompleter{response: "SELECT aadhaar_number FROM FIR"}
	handler := NewHandler(createTestConfig(), mock, createTestCatalog(t), createTestLogger(t))

	output, err := handler.Execute(context.Background(), statisticsInput(
		models.Entity{Kind: models.EntityDistrict, Value: "Guntur", Confidence: 0.9},
	))
	require.NoError(t, err)

	assert.Equal(t, models.OriginRuleBased, output.Query.Origin)
	assert.Equal(t, 1, mock.calls)
}

func TestHandler_Execute_GenerativeUnknownTableFallsBack(t *testing.T) {
	mock := &mockChatCompleter{response: "SELECT name FROM SUSPECTS"}
	handler := NewHandler(createTestConfig(), mock, createTestCatalog(t), createTestLogger(t))

	output, err := handler.Execute(context.Background(), statisticsInput(
		models.Entity{Kind: models.EntityDistrict, Value: "Guntur", Confidence: 0.9},
	))
	require.NoError(t, err)
	assert.Equal(t, models.OriginRuleBased, output.Query.Origin)
}

func TestHandler_Execute_GenerativeBindsEntityPlaceholders(t *testing.T) {
	mock := &mockChatCompleter{
		response: "SELECT f.fir_number FROM FIR f JOIN DISTRICT_MASTER d ON f.district_id = d.district_id WHERE d.district_name = $1",
	}
	handler := NewHandler(createTestConfig(), mock, createTestCatalog(t), createTestLogger(t))

	output, err := handler.Execute(context.Background(), statisticsInput(
		models.Entity{Kind: models.EntityDistrict, Value: "Guntur", Confidence: 0.9},
	))
	require.NoError(t, err)

	assert.Equal(t, models.OriginGenerated, output.Query.Origin)
	assert.Equal(t, []interface{}{"Guntur"}, output.Query.Params)
}

func TestHandler_Execute_GenerativePlaceholderBeyondEntitiesFallsBack(t *testing.T) {
	// $2 with one bindable entity means the model ignored the binding
	// contract; rule synthesis answers instead.
	mock := &mockChatCompleter{
		response: "SELECT fir_number FROM FIR WHERE status = $2",
	}
	handler := NewHandler(createTestConfig(), mock, createTestCatalog(t), createTestLogger(t))

	output, err := handler.Execute(context.Background(), statisticsInput(
		models.Entity{Kind: models.EntityDistrict, Value: "Guntur", Confidence: 0.9},
	))
	require.NoError(t, err)
	assert.Equal(t, models.OriginRuleBased, output.Query.Origin)
}

func TestBindEntityParams(t *testing.T) {
	entities := []models.Entity{
		{Kind: models.EntityDistrict, Value: "Guntur"},
		{Kind: models.EntityDate, Value: "last month"},
		{Kind: models.EntityCrimeType, Value: "Theft"},
	}

	t.Run("no placeholders binds nothing", func(t *testing.T) {
		params, err := bindEntityParams("SELECT COUNT(*) FROM FIR", entities)
		require.NoError(t, err)
		assert.Nil(t, params)
	})

	t.Run("dates are skipped in numbering", func(t *testing.T) {
		params, err := bindEntityParams(
			"SELECT COUNT(*) FROM FIR WHERE district_id = $1 AND crime_type_id = $2", entities)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{"Guntur", "Theft"}, params)
	})

	t.Run("gap in numbering is an error", func(t *testing.T) {
		_, err := bindEntityParams("SELECT COUNT(*) FROM FIR WHERE crime_type_id = $2", entities)
		assert.Error(t, err)
	})

	t.Run("placeholder beyond entity count is an error", func(t *testing.T) {
		_, err := bindEntityParams(
			"SELECT COUNT(*) FROM FIR WHERE district_id = $1 AND crime_type_id = $2 AND status = $3", entities)
		assert.Error(t, err)
	})
}

func TestHandler_Execute_GenerativeErrorFallsBackToRules(t *testing.T) {
	mock := &mockChatCompleter{err: errors.New("connection refused")}
	handler := NewHandler(createTestConfig(), mock, createTestCatalog(t), createTestLogger(t))

	output, err := handler.Execute(context.Background(), statisticsInput(
		models.Entity{Kind: models.EntityDistrict, Value: "Guntur", Confidence: 0.9},
	))
	require.NoError(t, err)

	assert.Equal(t, models.OriginRuleBased, output.Query.Origin)
	assert.Contains(t, output.Query.SQL, "COUNT(*)")
	assert.Contains(t, output.Query.Params, "Guntur")
}

func TestHandler_Execute_NilClientSkipsGenerative(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, createTestCatalog(t), createTestLogger(t))

	output, err := handler.Execute(context.Background(), statisticsInput())
	require.NoError(t, err)
	assert.Equal(t, models.OriginRuleBased, output.Query.Origin)
}

// ==========================
// Rule Strategy Tests
// ==========================

func TestRuleStrategy_StatisticsQuery(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, createTestCatalog(t), createTestLogger(t))

	output, err := handler.Execute(context.Background(), statisticsInput(
		models.Entity{Kind: models.EntityDistrict, Value: "Guntur", Confidence: 0.9},
		models.Entity{Kind: models.EntityDate, Value: "last month", Confidence: 0.85},
	))
	require.NoError(t, err)

	q := output.Query
	assert.Contains(t, q.SQL, "SELECT ct.crime_name, COUNT(*) AS fir_count")
	assert.Contains(t, q.SQL, "d.district_name = $1")
	assert.Contains(t, q.SQL, "f.registration_date BETWEEN $2 AND $3")
	assert.Contains(t, q.SQL, "LIMIT 100")
	assert.ElementsMatch(t, []string{"FIR", "CRIME_TYPE_MASTER", "DISTRICT_MASTER"}, q.Tables)
	require.Len(t, q.Params, 3)
	assert.Equal(t, "Guntur", q.Params[0])
}

func TestRuleStrategy_RecordsQueryBindsEveryValue(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, createTestCatalog(t), createTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		Intent: models.Intent{Type: models.IntentSearchRecords, Confidence: 0.8},
		Entities: []models.Entity{
			{Kind: models.EntityCrimeType, Value: "Theft", Confidence: 0.9},
			{Kind: models.EntityVehicle, Value: "AP16BQ1234", Confidence: 0.82},
		},
	})
	require.NoError(t, err)

	q := output.Query
	// No user value may appear in the statement text.
	assert.NotContains(t, q.SQL, "Theft")
	assert.NotContains(t, q.SQL, "AP16BQ1234")
	assert.Contains(t, q.Params, "Theft")
	assert.Contains(t, q.Params, "%AP16BQ1234%")
}

func TestRuleStrategy_RecordsQueryWithoutFiltersDeclines(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, createTestCatalog(t), createTestLogger(t))

	_, err := handler.Execute(context.Background(), &Input{
		Intent: models.Intent{Type: models.IntentQueryData, Confidence: 0.8},
	})
	assert.ErrorIs(t, err, ErrCannotAnswer)
}

func TestRuleStrategy_ComparisonNeedsTwoDistricts(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, createTestCatalog(t), createTestLogger(t))

	_, err := handler.Execute(context.Background(), &Input{
		Intent: models.Intent{Type: models.IntentCompareData, Confidence: 0.8},
		Entities: []models.Entity{
			{Kind: models.EntityDistrict, Value: "Guntur", Confidence: 0.9},
		},
	})
	assert.ErrorIs(t, err, ErrCannotAnswer)

	output, err := handler.Execute(context.Background(), &Input{
		Intent: models.Intent{Type: models.IntentCompareData, Confidence: 0.8},
		Entities: []models.Entity{
			{Kind: models.EntityDistrict, Value: "Guntur", Confidence: 0.9},
			{Kind: models.EntityDistrict, Value: "Kurnool", Confidence: 0.9},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, output.Query.SQL, "d.district_name IN ($1, $2)")
	assert.Equal(t, []interface{}{"Guntur", "Kurnool"}, output.Query.Params)
}

func TestRuleStrategy_TrendQuery(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, createTestCatalog(t), createTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		Intent: models.Intent{Type: models.IntentTrendAnalysis, Confidence: 0.8},
		Entities: []models.Entity{
			{Kind: models.EntityCrimeType, Value: "Murder", Confidence: 0.9},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, output.Query.SQL, "DATE_TRUNC('month', f.registration_date)")
	assert.Contains(t, output.Query.SQL, "GROUP BY month")
}

func TestRuleStrategy_ConversationalIntentDeclines(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, createTestCatalog(t), createTestLogger(t))

	_, err := handler.Execute(context.Background(), &Input{
		Intent: models.Intent{Type: models.IntentHelpRequest, Confidence: 0.9},
	})
	assert.ErrorIs(t, err, ErrCannotAnswer)
}

// ==========================
// Date Range Tests
// ==========================

func TestDateRange(t *testing.T) {
	now := time.Date(2024, time.April, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		values   []string
		wantFrom string
		wantTo   string
		wantOK   bool
	}{
		{
			name:     "two absolute dates",
			values:   []string{"01-01-2024", "31-03-2024"},
			wantFrom: "2024-01-01",
			wantTo:   "2024-03-31",
			wantOK:   true,
		},
		{
			name:     "reversed absolute dates are reordered",
			values:   []string{"31-03-2024", "01-01-2024"},
			wantFrom: "2024-01-01",
			wantTo:   "2024-03-31",
			wantOK:   true,
		},
		{
			name:     "single absolute date",
			values:   []string{"15/02/2024"},
			wantFrom: "2024-02-15",
			wantTo:   "2024-02-15",
			wantOK:   true,
		},
		{
			name:     "last month",
			values:   []string{"last month"},
			wantFrom: "2024-03-01",
			wantTo:   "2024-03-31",
			wantOK:   true,
		},
		{
			name:     "yesterday",
			values:   []string{"yesterday"},
			wantFrom: "2024-04-09",
			wantTo:   "2024-04-09",
			wantOK:   true,
		},
		{
			name:     "last year",
			values:   []string{"last year"},
			wantFrom: "2023-01-01",
			wantTo:   "2023-12-31",
			wantOK:   true,
		},
		{
			name:   "unparseable value is skipped",
			values: []string{"sometime"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var entities []models.Entity
			for _, v := range tt.values {
				entities = append(entities, models.Entity{Kind: models.EntityDate, Value: v})
			}

			from, to, ok := dateRange(entities, now)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantFrom, from.Format("2006-01-02"))
				assert.Equal(t, tt.wantTo, to.Format("2006-01-02"))
			}
		})
	}
}

// ==========================
// Suggestion Tests
// ==========================

func TestSuggestions_NeverEmpty(t *testing.T) {
	for _, intent := range models.IntentPriority {
		assert.NotEmpty(t, Suggestions(intent), string(intent))
	}
}
