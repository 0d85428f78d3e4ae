package genericsql

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/open-moniker/moniker-client/pkg/mmodel"
)

var endMarkersNoWhere = []string{" GROUP ", " ORDER ", " HAVING ", " UNION ", ";"}

func extractFilters(params map[string]any) map[string]any {
	filters := make(map[string]any)

	if nested, ok := params["moniker_params"].(map[string]any); ok {
		for k, v := range nested {
			if mmodel.IsReservedParamKey(k) || v == nil {
				continue
			}
			filters[k] = v
		}
	}

	for k, v := range params {
		if mmodel.IsReservedParamKey(k) || v == nil {
			continue
		}
		if _, isMap := v.(map[string]any); isMap {
			continue
		}
		filters[k] = v
	}

	return filters
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func injectWhere(query string, filters map[string]any) string {
	conditions := make([]string, 0, len(filters))

	for _, k := range sortedKeys(filters) {
		if cond, ok := buildCondition(k, filters[k]); ok {
			conditions = append(conditions, cond)
		}
	}

	if len(conditions) == 0 {
		return query
	}

	conditionStr := strings.Join(conditions, " AND ")

	upper := strings.ToUpper(query)
	if wherePos := strings.Index(upper, " WHERE "); wherePos != -1 {
		insertAt := wherePos + len(" WHERE ")
		return query[:insertAt] + conditionStr + " AND " + query[insertAt:]
	}

	insertPos := len(query)
	for _, marker := range endMarkersNoWhere {
		if pos := strings.Index(upper, marker); pos != -1 && pos < insertPos {
			insertPos = pos
		}
	}

	return query[:insertPos] + " WHERE " + conditionStr + query[insertPos:]
}

func buildCondition(key string, value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return fmt.Sprintf("%s = '%s'", key, v), true
	case []any:
		if len(v) == 0 {
			return "", false
		}
		return fmt.Sprintf("%s IN (%s)", key, joinValues(v)), true
	case []string:
		if len(v) == 0 {
			return "", false
		}
		quoted := make([]string, len(v))
		for i, s := range v {
			quoted[i] = "'" + s + "'"
		}
		return fmt.Sprintf("%s IN (%s)", key, strings.Join(quoted, ", ")), true
	case bool:
		return fmt.Sprintf("%s = %t", key, v), true
	case int:
		return fmt.Sprintf("%s = %d", key, v), true
	case int64:
		return fmt.Sprintf("%s = %d", key, v), true
	case float64:
		return fmt.Sprintf("%s = %s", key, strconv.FormatFloat(v, 'g', -1, 64)), true
	default:
		return fmt.Sprintf("%s = %v", key, v), true
	}
}

func joinValues(values []any) string {
	allStrings := true
	for _, v := range values {
		if _, ok := v.(string); !ok {
			allStrings = false
			break
		}
	}

	parts := make([]string, len(values))
	for i, v := range values {
		if allStrings {
			parts[i] = fmt.Sprintf("'%v'", v)
		} else {
			parts[i] = fmt.Sprintf("%v", v)
		}
	}

	return strings.Join(parts, ", ")
}

// injectLimit appends an OFFSET/FETCH clause unless the query already
// carries one. T-SQL's TOP form sits between SELECT and the column list,
// which a post-hoc rewrite cannot reach, so the ANSI OFFSET/FETCH form
// (supported since SQL Server 2012) is used instead; it requires an ORDER
// BY, hence the ORDER BY (SELECT NULL) stub when none exists.
func injectLimit(query string, limit any) string {
	upper := strings.ToUpper(query)
	if strings.Contains(upper, "FETCH NEXT") || strings.Contains(upper, "OFFSET ") {
		return query
	}

	trimmed := strings.TrimRight(strings.TrimSpace(query), ";")
	trimmed = strings.TrimRight(trimmed, " ")

	if !strings.Contains(upper, " ORDER ") {
		return fmt.Sprintf("%s ORDER BY (SELECT NULL) OFFSET 0 ROWS FETCH NEXT %v ROWS ONLY", trimmed, limit)
	}

	return fmt.Sprintf("%s OFFSET 0 ROWS FETCH NEXT %v ROWS ONLY", trimmed, limit)
}
