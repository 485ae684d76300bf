package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	commonerrors "cctns-copilot/internal/common/errors"
	"cctns-copilot/internal/common/logger"
	"cctns-copilot/internal/models"
	"cctns-copilot/internal/pipeline/execute"
	"cctns-copilot/internal/pipeline/extract"
	"cctns-copilot/internal/pipeline/format"
	"cctns-copilot/internal/pipeline/normalize"
	"cctns-copilot/internal/pipeline/synthesize"
	"cctns-copilot/internal/pipeline/validate"
	"cctns-copilot/internal/schema"
	"cctns-copilot/internal/terminology"
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

const testTerminologyYAML = `
phrase_corrections:
  - match: first information report
    replace: FIR
  - match: station house officer
    replace: SHO
abbreviations:
  fir: FIR
  sho: SHO
districts: [Guntur, Vijayawada, Kurnool]
stations: [Guntur Town PS]
officer_ranks: [SHO, Inspector]
crime_types:
  - name: Theft
    ipc_section: "379"
  - name: Murder
    ipc_section: "302"
`

func createTestPipeline(t *testing.T, mockSetup func(sqlmock.Sqlmock)) *Pipeline {
	t.Helper()

	log := logger.NewZapAdapter(zaptest.NewLogger(t))

	catalog, err := schema.Parse([]byte(testCatalogYAML))
	require.NoError(t, err)
	vocab, err := terminology.Parse([]byte(testTerminologyYAML))
	require.NoError(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	if mockSetup != nil {
		mockSetup(mock)
	}

	return New(
		normalize.NewHandler(&normalize.Config{DefaultLanguage: "te"}, vocab, log),
		extract.NewHandler(&extract.Config{IntentThreshold: 0.7, EntityThreshold: 0.75}, vocab, log),
		synthesize.NewHandler(&synthesize.Config{DefaultLimit: 100}, nil, catalog, log),
		validate.NewHandler(&validate.Config{
			MaxQueryLength: 500,
			DefaultLimit:   100,
			MaxLimit:       1000,
			MaxJoins:       10,
			MaxSubqueries:  5,
		}, catalog, log),
		execute.NewHandler(&execute.Config{
			Timeout:       5 * time.Second,
			MaxResultRows: 1000,
		}, db, nil, log),
		format.NewHandler(&format.Config{DefaultLocale: "en"}, log),
		log,
	)
}

// ==========================
// End-To-End Tests
// ==========================

func TestPipeline_Process_DistrictStatisticsQuestion(t *testing.T) {
	p := createTestPipeline(t, func(mock sqlmock.Sqlmock) {
		rows := sqlmock.NewRows([]string{"crime_name", "fir_count"}).
			AddRow("Theft", int64(42))
		mock.ExpectQuery("SELECT ct.crime_name, COUNT").
			WithArgs("Guntur", "Theft", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(rows)
	})

	resp, err := p.Process(context.Background(), &Request{
		RequestID:  "req-1",
		Text:       "How many theft cases were registered in Guntur district last month",
		Confidence: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, models.IntentStatistics, resp.Intent.Type)
	assert.Equal(t, models.OriginRuleBased, resp.Origin)
	assert.Contains(t, resp.SQL, "LIMIT 100")
	assert.Equal(t, 1, resp.RowCount)
	require.NotNil(t, resp.Table)
	assert.Equal(t, []string{"Crime Name", "FIR Count"}, resp.Table.Headers)
	require.NotNil(t, resp.Summary)
	assert.NotEmpty(t, resp.Summary.Text)
}

func TestPipeline_Process_AppliesTerminologyBeforeExtraction(t *testing.T) {
	p := createTestPipeline(t, func(mock sqlmock.Sqlmock) {
		mock.ExpectQuery("SELECT f.fir_number").
			WillReturnRows(sqlmock.NewRows([]string{"fir_number"}))
	})

	resp, err := p.Process(context.Background(), &Request{
		RequestID: "req-2",
		Text:      "find first information report records for theft in Guntur",
	})
	require.NoError(t, err)

	assert.Contains(t, resp.Utterance.Canonical, "FIR")
	assert.NotEmpty(t, resp.Utterance.Corrections)
	assert.Equal(t, models.IntentSearchRecords, resp.Intent.Type)
}

func TestPipeline_Process_GreetingShortCircuits(t *testing.T) {
	// No mock setup: a database round trip would fail the test.
	p := createTestPipeline(t, nil)

	resp, err := p.Process(context.Background(), &Request{
		RequestID: "req-3",
		Text:      "hello",
	})
	require.NoError(t, err)

	assert.Equal(t, models.IntentGreeting, resp.Intent.Type)
	assert.NotEmpty(t, resp.Message)
	assert.Empty(t, resp.SQL)
	assert.Nil(t, resp.Table)
}

func TestPipeline_Process_UnintelligibleTextGetsHelp(t *testing.T) {
	p := createTestPipeline(t, nil)

	resp, err := p.Process(context.Background(), &Request{
		RequestID: "req-4",
		Text:      "the weather is pleasant",
	})
	require.NoError(t, err)

	assert.Equal(t, models.IntentHelpRequest, resp.Intent.Type)
	assert.NotEmpty(t, resp.Message)
}

func TestPipeline_Process_UnanswerableDataQuestionDeclines(t *testing.T) {
	p := createTestPipeline(t, nil)

	// A search with no extractable filter cannot be answered.
	_, err := p.Process(context.Background(), &Request{
		RequestID: "req-5",
		Text:      "find the records please",
	})
	require.Error(t, err)

	var std *commonerrors.StandardError
	require.ErrorAs(t, err, &std)
	assert.Equal(t, commonerrors.ErrCodeCannotAnswer, std.Code)
	assert.NotEmpty(t, std.Metadata["suggestions"])
}

func TestPipeline_Process_ZeroMatchesProduceZeroMatchSummary(t *testing.T) {
	p := createTestPipeline(t, func(mock sqlmock.Sqlmock) {
		mock.ExpectQuery("SELECT ct.crime_name, COUNT").
			WillReturnRows(sqlmock.NewRows([]string{"crime_name", "fir_count"}))
	})

	resp, err := p.Process(context.Background(), &Request{
		RequestID: "req-6",
		Text:      "how many murder cases in Kurnool this year",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, resp.RowCount)
	require.NotNil(t, resp.Summary)
	assert.Equal(t, "No matching records were found.", resp.Summary.Text)
}
