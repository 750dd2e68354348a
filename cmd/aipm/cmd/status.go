package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Read-only dashboard: active tasks, branches, recent events",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	srv, err := openServer()
	if err != nil {
		return fmt.Errorf("opening project: %w", err)
	}
	defer srv.Close()

	p := tea.NewProgram(tui.New(srv.Store, srv.Branch))
	_, err = p.Run()
	return err
}
