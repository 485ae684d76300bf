// Package format renders query results for display: DD-MM-YYYY dates,
// Indian digit grouping, humanized column headers, and a bounded natural
// language summary in the caller's locale.
package format

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cctns-copilot/internal/common/logger"
	"cctns-copilot/internal/models"
)

const StageName = "format"

const displayDateLayout = "02-01-2006"

// dateInputLayouts are the shapes date values reach this stage in: driver
// times serialized by the executor, bare dates from the store, and
// timestamp strings.
var dateInputLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// headerAcronyms stay upper-case when column names are humanized.
var headerAcronyms = map[string]string{
	"fir": "FIR", "id": "ID", "ipc": "IPC", "ps": "PS",
}

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.With(map[string]interface{}{"stage": StageName}),
	}
}

// Execute never fails: whatever the executor produced is rendered as-is,
// with unrecognized values passed through fmt formatting.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	locale := input.Locale
	if locale == "" {
		locale = h.config.DefaultLocale
	}

	table := models.DisplayTable{
		Headers: make([]string, len(input.Result.Columns)),
	}
	for i, col := range input.Result.Columns {
		table.Headers[i] = humanizeHeader(col)
	}

	for _, row := range input.Result.Rows {
		cells := make([]string, len(input.Result.Columns))
		for i, col := range input.Result.Columns {
			cells[i] = formatCell(row[col])
		}
		table.Cells = append(table.Cells, cells)
	}

	return &Output{
		Table:   table,
		Summary: buildSummary(input.Intent.Type, input.Result, locale),
	}, nil
}

// formatCell renders one value: dates as DD-MM-YYYY, integers with Indian
// grouping, NULLs as a dash.
func formatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		if t, ok := parseDate(val); ok {
			return t.Format(displayDateLayout)
		}
		return val
	case time.Time:
		return val.Format(displayDateLayout)
	case int64:
		return formatIndianInt(val)
	case int:
		return formatIndianInt(int64(val))
	case float64:
		// JSON decoding turns every cached number into float64; render
		// whole values as integers again.
		if val == float64(int64(val)) {
			return formatIndianInt(int64(val))
		}
		return formatIndianFloat(val)
	case bool:
		if val {
			return "yes"
		}
		return "no"
	default:
		return fmt.Sprintf("%v", val)
	}
}

func parseDate(s string) (time.Time, bool) {
	if len(s) < 10 || s[4] != '-' {
		return time.Time{}, false
	}
	for _, layout := range dateInputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// humanizeHeader turns "fir_number" into "FIR Number".
func humanizeHeader(column string) string {
	parts := strings.Split(strings.ToLower(column), "_")
	for i, p := range parts {
		if a, ok := headerAcronyms[p]; ok {
			parts[i] = a
			continue
		}
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
