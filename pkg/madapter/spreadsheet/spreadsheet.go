// Package spreadsheet implements the spreadsheet/static adapter: a workbook
// sheet read through github.com/xuri/excelize/v2, or an inline "rows" array
// carried directly in the connection record for monikers with no live
// connection at all. Filtering happens in Go after reading, since there is
// no query language to rewrite the way the SQL adapters rewrite one.
package spreadsheet

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/open-moniker/moniker-client/pkg/mconfig"
	"github.com/open-moniker/moniker-client/pkg/merrors"
	"github.com/open-moniker/moniker-client/pkg/mlog"
	"github.com/open-moniker/moniker-client/pkg/mmodel"
)

// Adapter is the spreadsheet/static adapter.
type Adapter struct {
	logger mlog.Logger
}

// New builds an Adapter. logger may be nil.
func New(logger mlog.Logger) *Adapter {
	if logger == nil {
		logger = mlog.NopLogger{}
	}
	return &Adapter{logger: logger}
}

func isStatic(conn map[string]any) bool {
	_, ok := conn["rows"]
	return ok
}

func inlineRows(conn map[string]any) []map[string]any {
	raw, ok := conn["rows"].([]any)
	if !ok {
		return nil
	}

	rows := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			rows = append(rows, m)
		}
	}
	return rows
}

func readWorkbookSheet(conn map[string]any) ([]map[string]any, error) {
	filePath, _ := conn["file_path"].(string)
	if filePath == "" {
		return nil, &merrors.ConfigurationError{Option: "file_path", Message: "file_path required for spreadsheet source"}
	}

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, &merrors.FetchError{Path: filePath, Err: err}
	}
	defer f.Close()

	sheetName, _ := conn["sheet_name"].(string)
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}

	grid, err := f.GetRows(sheetName)
	if err != nil {
		return nil, &merrors.FetchError{Path: filePath, Err: err}
	}
	if len(grid) == 0 {
		return nil, nil
	}

	headers := grid[0]
	rows := make([]map[string]any, 0, len(grid)-1)
	for _, record := range grid[1:] {
		row := make(map[string]any, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = record[i]
			} else {
				row[header] = nil
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func applyFilters(rows []map[string]any, params map[string]any) []map[string]any {
	filters := make(map[string]any)
	for k, v := range params {
		if mmodel.IsReservedParamKey(k) || v == nil {
			continue
		}
		filters[k] = v
	}
	if len(filters) == 0 {
		return rows
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var filtered []map[string]any
	for _, row := range rows {
		match := true
		for _, k := range keys {
			if fmt.Sprintf("%v", row[k]) != fmt.Sprintf("%v", filters[k]) {
				match = false
				break
			}
		}
		if match {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

func applyLimitOffset(rows []map[string]any, params map[string]any) []map[string]any {
	offset := 0
	if v, ok := params["offset"]; ok {
		offset = toInt(v)
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]

	if v, ok := params["limit"]; ok {
		limit := toInt(v)
		if limit >= 0 && limit < len(rows) {
			rows = rows[:limit]
		}
	}

	return rows
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// Fetch implements madapter.Adapter.
func (a *Adapter) Fetch(ctx context.Context, binding mmodel.ResolvedSource, cfg *mconfig.Config, extra map[string]any) (*mmodel.AdapterResult, error) {
	start := time.Now()

	var rows []map[string]any
	var err error

	if isStatic(binding.Connection) {
		rows = inlineRows(binding.Connection)
	} else {
		rows, err = readWorkbookSheet(binding.Connection)
		if err != nil {
			return nil, err
		}
	}

	rows = applyFilters(rows, binding.Params)
	rows = applyLimitOffset(rows, binding.Params)

	sourceType := mmodel.SourceSpreadsheet
	if isStatic(binding.Connection) {
		sourceType = mmodel.SourceStatic
	}

	return &mmodel.AdapterResult{
		Data:            rows,
		RowCount:        len(rows),
		ExecutionTimeMS: time.Since(start).Milliseconds(),
		SourceType:      sourceType,
	}, nil
}

// ListChildren returns sheet names, or rows[0]'s keys for the static
// variant. All errors are swallowed.
func (a *Adapter) ListChildren(ctx context.Context, binding mmodel.ResolvedSource, cfg *mconfig.Config) []string {
	if isStatic(binding.Connection) {
		rows := inlineRows(binding.Connection)
		if len(rows) == 0 {
			return nil
		}
		keys := make([]string, 0, len(rows[0]))
		for k := range rows[0] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	}

	filePath, _ := binding.Connection["file_path"].(string)
	if filePath == "" {
		return nil
	}

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return f.GetSheetList()
}

// HealthCheck verifies the file is readable or the inline rows are present.
// It never raises.
func (a *Adapter) HealthCheck(ctx context.Context, binding mmodel.ResolvedSource, cfg *mconfig.Config) mmodel.HealthCheckResult {
	start := time.Now()

	if isStatic(binding.Connection) {
		rows := inlineRows(binding.Connection)
		return mmodel.HealthCheckResult{
			Healthy:   len(rows) > 0,
			Message:   fmt.Sprintf("%d inline rows", len(rows)),
			LatencyMS: time.Since(start).Milliseconds(),
		}
	}

	filePath, _ := binding.Connection["file_path"].(string)
	if filePath == "" {
		return mmodel.HealthCheckResult{Healthy: false, Message: "file_path not configured"}
	}

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return mmodel.HealthCheckResult{Healthy: false, Message: err.Error(), LatencyMS: time.Since(start).Milliseconds()}
	}
	defer f.Close()

	return mmodel.HealthCheckResult{
		Healthy:   true,
		Message:   "workbook readable",
		LatencyMS: time.Since(start).Milliseconds(),
	}
}
