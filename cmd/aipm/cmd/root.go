package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	projectRoot string

	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:           "aipm",
	Short:         "Persistent structured memory for an AI coding agent's project work",
	Long: `aipm runs the AI Project Manager MCP server: hierarchical work items
(tasks, subtasks, sidequests), theme/flow-driven context loading, Git-branch
work isolation, and session boot/restoration, exposed over the Model Context
Protocol.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion records the build-time version for the --version flag and the
// MCP server's initialize response.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"ambient config file (default: ./ai-pm.toml)")
	rootCmd.PersistentFlags().StringVar(&projectRoot, "project-root", ".",
		"project root containing projectManagement/")
}
