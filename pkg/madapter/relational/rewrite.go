// Package relational implements the relational-with-temporal (Oracle-class)
// adapter, the template the generic-SQL adapter narrows. Query construction
// is pure textual rewriting in three ordered passes; no SQL parser is
// involved, so queries mixing unusual whitespace or CTEs with AS OF are
// out of scope.
package relational

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/open-moniker/moniker-client/pkg/mmodel"
)

var endMarkers = []string{" WHERE ", " GROUP ", " ORDER ", " HAVING ", " UNION ", ";"}
var endMarkersNoWhere = []string{" GROUP ", " ORDER ", " HAVING ", " UNION ", ";"}

// BuildQuery runs the three-pass rewrite (temporal injection, filter
// injection, limit injection) over resolved.Query using resolved.Params. An
// empty query is returned unchanged (as the empty string).
func BuildQuery(query string, params map[string]any) string {
	if query == "" {
		return ""
	}

	if asOf, ok := temporalValue(params); ok {
		query = injectTemporal(query, asOf)
	}

	if filters := extractFilters(params); len(filters) > 0 {
		query = injectWhere(query, filters)
	}

	if limit, ok := params["limit"]; ok {
		query = injectLimit(query, limit)
	}

	return query
}

func temporalValue(params map[string]any) (string, bool) {
	for _, key := range []string{"as_of", "moniker_version"} {
		switch v := params[key].(type) {
		case string:
			if v != "" {
				return v, true
			}
		case int:
			return strconv.Itoa(v), true
		case int64:
			return strconv.FormatInt(v, 10), true
		case float64:
			// a bare JSON number decodes as float64; an SCN is integral
			return strconv.FormatFloat(v, 'f', -1, 64), true
		}
	}
	return "", false
}

// injectTemporal inserts the AS OF clause immediately after the first table
// reference following FROM and before any terminating keyword. A query
// with no FROM clause, or one that already carries an AS OF clause from a
// prior rewrite pass, is returned unchanged so repeated rewrites stay
// idempotent.
func injectTemporal(query, asOf string) string {
	upper := strings.ToUpper(query)
	if strings.Contains(upper, " AS OF ") {
		return query
	}

	var clause string
	if isNumeric(asOf) {
		clause = fmt.Sprintf(" AS OF SCN %s", asOf)
	} else {
		clause = fmt.Sprintf(" AS OF TIMESTAMP TO_TIMESTAMP('%s', 'YYYY-MM-DD HH24:MI:SS')", asOf)
	}

	fromPos := strings.Index(upper, " FROM ")
	if fromPos == -1 {
		return query
	}

	endPos := len(query)
	for _, marker := range endMarkers {
		if pos := strings.Index(upper[fromPos+6:], marker); pos != -1 {
			abs := fromPos + 6 + pos
			if abs < endPos {
				endPos = abs
			}
		}
	}

	return query[:endPos] + clause + query[endPos:]
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// extractFilters collects candidate filter keys from params["moniker_params"]
// (a nested map) and from top-level params, excluding reserved keys and
// nulls. The returned map is unordered; injectWhere sorts its keys so the
// rewrite is deterministic across repeated calls.
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
		v := filters[k]
		cond, ok := buildCondition(k, v)
		if !ok {
			continue
		}
		// A condition already present in the query was injected by a prior
		// rewrite pass over this same query; skip it so rewriting twice
		// doesn't duplicate the clause.
		if strings.Contains(query, cond) {
			continue
		}
		conditions = append(conditions, cond)
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

// buildCondition renders one filter as a SQL condition. An empty sequence
// filter is dropped entirely (ok=false) rather than emitting "IN ()".
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

// injectLimit appends FETCH FIRST n ROWS ONLY unless the query already
// contains a FETCH token.
func injectLimit(query string, limit any) string {
	upper := strings.ToUpper(query)
	if strings.Contains(upper, "FETCH ") {
		return query
	}

	trimmed := strings.TrimRight(strings.TrimSpace(query), ";")
	trimmed = strings.TrimRight(trimmed, " ")

	return fmt.Sprintf("%s FETCH FIRST %v ROWS ONLY", trimmed, limit)
}
