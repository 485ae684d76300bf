package format

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"cctns-copilot/internal/common/logger"
	"cctns-copilot/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T) *Handler {
	return NewHandler(&Config{DefaultLocale: "en"}, logger.NewZapAdapter(zaptest.NewLogger(t)))
}

func statisticsResult() models.QueryResult {
	return models.QueryResult{
		Columns: []string{"crime_name", "fir_count"},
		Rows: []models.Row{
			{"crime_name": "Theft", "fir_count": int64(123456)},
			{"crime_name": "Robbery", "fir_count": int64(789)},
		},
		RowCount: 2,
	}
}

// ==========================
// Table Rendering Tests
// ==========================

func TestHandler_Execute_RendersTable(t *testing.T) {
	handler := createTestHandler(t)

	output, err := handler.Execute(context.Background(), &Input{
		Intent: models.Intent{Type: models.IntentStatistics},
		Result: statisticsResult(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Crime Name", "FIR Count"}, output.Table.Headers)
	require.Len(t, output.Table.Cells, 2)
	assert.Equal(t, []string{"Theft", "1,23,456"}, output.Table.Cells[0])
	assert.Equal(t, []string{"Robbery", "789"}, output.Table.Cells[1])
}

func TestHandler_Execute_FormatsDatesAsDDMMYYYY(t *testing.T) {
	handler := createTestHandler(t)

	output, err := handler.Execute(context.Background(), &Input{
		Intent: models.Intent{Type: models.IntentSearchRecords},
		Result: models.QueryResult{
			Columns: []string{"fir_number", "registration_date"},
			Rows: []models.Row{
				{"fir_number": "FIR-2024-0001", "registration_date": "2024-03-31T00:00:00Z"},
				{"fir_number": "FIR-2024-0002", "registration_date": "2024-01-05"},
			},
			RowCount: 2,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "31-03-2024", output.Table.Cells[0][1])
	assert.Equal(t, "05-01-2024", output.Table.Cells[1][1])
	// Non-date strings pass through untouched.
	assert.Equal(t, "FIR-2024-0001", output.Table.Cells[0][0])
}

func TestHandler_Execute_NullsAndBooleans(t *testing.T) {
	handler := createTestHandler(t)

	output, err := handler.Execute(context.Background(), &Input{
		Intent: models.Intent{Type: models.IntentQueryData},
		Result: models.QueryResult{
			Columns:  []string{"status", "phone"},
			Rows:     []models.Row{{"status": true, "phone": nil}},
			RowCount: 1,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"yes", "-"}, output.Table.Cells[0])
}

func TestFormatIndianInt(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{12345, "12,345"},
		{123456, "1,23,456"},
		{1234567, "12,34,567"},
		{123456789, "12,34,56,789"},
		{-123456, "-1,23,456"},
		{math.MaxInt64, "92,23,37,20,36,85,47,75,807"},
		{math.MinInt64, "-92,23,37,20,36,85,47,75,808"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatIndianInt(tt.in))
	}
}

func TestHumanizeHeader(t *testing.T) {
	assert.Equal(t, "FIR Number", humanizeHeader("fir_number"))
	assert.Equal(t, "District Name", humanizeHeader("district_name"))
	assert.Equal(t, "IPC Section", humanizeHeader("ipc_section"))
	assert.Equal(t, "Station ID", humanizeHeader("station_id"))
}

// ==========================
// Summary Tests
// ==========================

func TestHandler_Execute_ZeroMatchSummary(t *testing.T) {
	handler := createTestHandler(t)

	output, err := handler.Execute(context.Background(), &Input{
		Intent: models.Intent{Type: models.IntentSearchRecords},
		Result: models.QueryResult{Columns: []string{"fir_number"}},
	})
	require.NoError(t, err)

	assert.Empty(t, output.Table.Cells)
	assert.Equal(t, "No matching records were found.", output.Summary.Text)
	assert.Equal(t, "en", output.Summary.Locale)
}

func TestHandler_Execute_SummaryPerLocale(t *testing.T) {
	handler := createTestHandler(t)

	for _, locale := range []string{"en", "hi", "te"} {
		output, err := handler.Execute(context.Background(), &Input{
			Intent: models.Intent{Type: models.IntentStatistics},
			Result: statisticsResult(),
			Locale: locale,
		})
		require.NoError(t, err)
		assert.Equal(t, locale, output.Summary.Locale)
		assert.NotEmpty(t, output.Summary.Text)
	}
}

func TestHandler_Execute_UnknownLocaleFallsBackToEnglish(t *testing.T) {
	handler := createTestHandler(t)

	output, err := handler.Execute(context.Background(), &Input{
		Intent: models.Intent{Type: models.IntentStatistics},
		Result: statisticsResult(),
		Locale: "fr",
	})
	require.NoError(t, err)
	assert.Equal(t, "en", output.Summary.Locale)
}

func TestHandler_Execute_TruncatedSummaryMentionsCutoff(t *testing.T) {
	handler := createTestHandler(t)

	result := statisticsResult()
	result.Truncated = true

	output, err := handler.Execute(context.Background(), &Input{
		Intent: models.Intent{Type: models.IntentQueryData},
		Result: result,
	})
	require.NoError(t, err)
	assert.Contains(t, output.Summary.Text, "Showing the first")
}
