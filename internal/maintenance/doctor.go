package maintenance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/store"
)

// Issue is one detected problem in the project's operational state.
type Issue struct {
	Severity    string `json:"severity"` // critical, warning, info
	Type        string `json:"type"`     // orphaned_sidequest, shared_file_over_threshold, at_sidequest_limit
	EntityID    string `json:"entityId"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion,omitempty"`
}

// Report summarizes one doctor pass.
type Report struct {
	IssuesFound    int     `json:"issuesFound"`
	CriticalIssues int     `json:"criticalIssues"`
	Warnings       int     `json:"warnings"`
	Issues         []Issue `json:"issues"`
}

// RunDoctor scans the Store's views for integrity problems a careful
// maintainer would want surfaced, without fixing anything (spec §9's
// reconciliation-is-user-approved stance extends naturally to this sweep:
// doctor only proposes, never writes).
func RunDoctor(ctx context.Context, st *store.Store, sharedFileThreshold int) (*Report, error) {
	report := &Report{}

	sidequestRows, err := st.Query(ctx, store.ViewActiveSidequestsByTask)
	if err != nil {
		return nil, fmt.Errorf("querying active sidequests: %w", err)
	}
	for _, row := range sidequestRows {
		taskID, _ := row["parent_task_id"].(string)
		if taskID == "" {
			continue
		}
		if _, err := st.GetTask(ctx, taskID); store.NotFound(err) {
			report.Issues = append(report.Issues, Issue{
				Severity:    "critical",
				Type:        "orphaned_sidequest",
				EntityID:    taskID,
				Description: fmt.Sprintf("active sidequests reference missing parent task %s", taskID),
				Suggestion:  "cancel the orphaned sidequests or restore the parent task row",
			})
		}
	}

	sharedRows, err := st.Query(ctx, store.ViewThemeSharedFileCounts)
	if err == nil {
		for _, row := range sharedRows {
			count, _ := row["theme_count"].(int64)
			if int(count) > sharedFileThreshold {
				path, _ := row["file_path"].(string)
				report.Issues = append(report.Issues, Issue{
					Severity:    "warning",
					Type:        "shared_file_over_threshold",
					EntityID:    path,
					Description: fmt.Sprintf("%s is shared by %d themes (threshold %d)", path, count, sharedFileThreshold),
					Suggestion:  "consider splitting the file's responsibilities across themes",
				})
			}
		}
	}

	limitRows, err := st.Query(ctx, store.ViewSidequestLimitStatus)
	if err == nil {
		for _, row := range limitRows {
			atLimit, _ := row["at_limit"].(int64)
			if atLimit == 1 {
				taskID, _ := row["task_id"].(string)
				report.Issues = append(report.Issues, Issue{
					Severity:    "info",
					Type:        "at_sidequest_limit",
					EntityID:    taskID,
					Description: fmt.Sprintf("task %s is at its simultaneous-sidequest limit", taskID),
				})
			}
		}
	}

	for _, i := range report.Issues {
		switch i.Severity {
		case "critical":
			report.CriticalIssues++
		case "warning":
			report.Warnings++
		}
	}
	report.IssuesFound = len(report.Issues)
	return report, nil
}

// DoctorJob runs RunDoctor periodically and logs anything found, feeding
// the read-only TUI dashboard and noteworthy_events.
type DoctorJob struct {
	Store               *store.Store
	Logger              *slog.Logger
	SharedFileThreshold int
	NoteworthySizeLimit int
}

func (j *DoctorJob) Name() string { return "doctor-sweep" }

func (j *DoctorJob) Run(ctx context.Context) error {
	report, err := RunDoctor(ctx, j.Store, j.SharedFileThreshold)
	if err != nil {
		return err
	}
	if report.IssuesFound == 0 {
		return nil
	}
	j.Logger.Warn("doctor sweep found issues", "count", report.IssuesFound, "critical", report.CriticalIssues)
	for _, i := range report.Issues {
		if i.Severity != "critical" {
			continue
		}
		ev := &model.NoteworthyEvent{
			ID:        fmt.Sprintf("event-doctor-%s", i.EntityID),
			Type:      "warning",
			Title:     i.Description,
			Impact:    string(model.ImpactModerate),
			Reasoning: "doctor sweep",
			Outcome:   "flagged",
			Severity:  i.Severity,
		}
		if err := j.Store.RecordEvent(ctx, ev, j.NoteworthySizeLimit); err != nil {
			j.Logger.Error("recording doctor event", "error", err)
		}
	}
	return nil
}
