package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
)

// View names accepted by Query (spec §4.1).
const (
	ViewThemeFlowSummary      = "theme_flow_summary"
	ViewFlowThemeSummary      = "flow_theme_summary"
	ViewActiveSidequestsByTask = "active_sidequests_by_task"
	ViewSidequestLimitStatus  = "sidequest_limit_status"
	ViewRecentEvents          = "recent_events"
	ViewEventImpactSummary    = "event_impact_summary"
	ViewThemeSharedFileCounts = "theme_shared_file_counts"
	ViewSubtaskSidequestSummary = "subtask_sidequest_summary"
	ViewThemeEventActivity    = "theme_event_activity"
)

var allowedViews = map[string]bool{
	ViewThemeFlowSummary:        true,
	ViewFlowThemeSummary:        true,
	ViewActiveSidequestsByTask:  true,
	ViewSidequestLimitStatus:    true,
	ViewRecentEvents:            true,
	ViewEventImpactSummary:      true,
	ViewThemeSharedFileCounts:   true,
	ViewSubtaskSidequestSummary: true,
	ViewThemeEventActivity:      true,
}

// Row is a generic result row from Query, keyed by column name.
type Row map[string]any

// Query returns every row of one of the Store's prebuilt views. The view
// name is validated against an allow-list — it is never interpolated from
// untrusted input beyond that set, so this cannot become a SQL-injection
// vector.
func (s *Store) Query(ctx context.Context, view string) ([]Row, error) {
	if !allowedViews[view] {
		return nil, model.New(model.ErrValidation, "unknown view %q", view)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", view))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", view, err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(Row, len(cols))
		for i, c := range cols {
			r[c] = vals[i]
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// NotFound reports whether err represents a Store NotFound condition.
func NotFound(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*model.Error); ok {
		return e.Kind == model.ErrNotFound
	}
	return false
}

// marshalJSON is a small helper used throughout the store package to embed
// Go slices/maps as JSON text columns.
func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalJSON[T any](s string) T {
	var v T
	if s == "" {
		return v
	}
	_ = json.Unmarshal([]byte(s), &v)
	return v
}
