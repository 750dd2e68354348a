package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/appconfig"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/server"
)

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "BranchManager passthrough for operators debugging outside the MCP client",
}

var branchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked work branches",
	RunE:  runBranchList,
}

var branchStaleCmd = &cobra.Command{
	Use:   "stale",
	Short: "Report branches with no recent commits",
	RunE:  runBranchStale,
}

var branchCreateCmd = &cobra.Command{
	Use:   "create PURPOSE",
	Short: "Create a new work branch off the organizational main branch",
	Args:  cobra.ExactArgs(1),
	RunE:  runBranchCreate,
}

func init() {
	rootCmd.AddCommand(branchCmd)
	branchCmd.AddCommand(branchListCmd, branchStaleCmd, branchCreateCmd)
}

func openServer() (*server.Server, error) {
	cfg, err := appconfig.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)}))
	return server.New(projectRoot, cfg, logger)
}

func runBranchList(cmd *cobra.Command, _ []string) error {
	srv, err := openServer()
	if err != nil {
		return err
	}
	defer srv.Close()

	all, err := srv.Branch.ListBranches(cmd.Context())
	if err != nil {
		return err
	}
	for _, b := range all {
		fmt.Printf("%-6d %-20s %-10s %s\n", b.Number, b.Name, b.Status, b.Purpose)
	}
	return nil
}

func runBranchStale(cmd *cobra.Command, _ []string) error {
	srv, err := openServer()
	if err != nil {
		return err
	}
	defer srv.Close()

	stale, err := srv.Branch.StaleBranches(cmd.Context(), time.Now())
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		fmt.Println("no stale branches")
		return nil
	}
	for _, b := range stale {
		fmt.Printf("%-20s created %s\n", b.Name, b.CreatedAt)
	}
	return nil
}

func runBranchCreate(cmd *cobra.Command, args []string) error {
	srv, err := openServer()
	if err != nil {
		return err
	}
	defer srv.Close()

	b, err := srv.Branch.CreateWorkBranch(cmd.Context(), args[0], false)
	if err != nil {
		return err
	}
	fmt.Printf("created %s (base %s)\n", b.Name, b.BaseHash)
	return nil
}
