package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/gitutil"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/maintenance"
)

var doctorJSON bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Dry-run integrity sweep and Git change detection, writes nothing",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output as JSON")
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	srv, err := openServer()
	if err != nil {
		return fmt.Errorf("opening project: %w", err)
	}
	defer srv.Close()

	report, err := maintenance.RunDoctor(cmd.Context(), srv.Store, srv.ProjectConfig.Themes.SharedFileThreshold)
	if err != nil {
		return fmt.Errorf("running doctor sweep: %w", err)
	}

	changed, files, currentHash, err := srv.GitBridge.DetectChanges(cmd.Context())
	if err != nil {
		return fmt.Errorf("detecting git changes: %w", err)
	}

	if doctorJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"report":       report,
			"git_changed":  changed,
			"current_hash": currentHash,
			"changed_files": fileNames(files),
		})
	}

	fmt.Printf("Issues found: %d (critical: %d, warnings: %d)\n", report.IssuesFound, report.CriticalIssues, report.Warnings)
	for _, iss := range report.Issues {
		fmt.Printf("  [%s] %s %s: %s\n", iss.Severity, iss.Type, iss.EntityID, iss.Description)
		if iss.Suggestion != "" {
			fmt.Printf("      suggestion: %s\n", iss.Suggestion)
		}
	}

	if changed {
		fmt.Printf("\nGit: %d file(s) changed since last reconciled hash (current: %s)\n", len(files), currentHash)
		for _, f := range files {
			fmt.Printf("  %s %s\n", f.ChangeType, f.Path)
		}
	} else {
		fmt.Println("\nGit: no changes detected since last reconciliation")
	}
	return nil
}

func fileNames(files []gitutil.ChangedFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}
