package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/projectconfig"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap projectManagement/ in the current project",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

var projectManagementDirs = []string{
	filepath.Join("projectManagement", "Tasks", "active"),
	filepath.Join("projectManagement", "Tasks", "archive"),
	filepath.Join("projectManagement", "ProjectBlueprint"),
	filepath.Join("projectManagement", "ProjectFlow"),
	filepath.Join("projectManagement", "ProjectLogic"),
	filepath.Join("projectManagement", "Themes"),
	filepath.Join("projectManagement", "UserSettings"),
}

func runInit(_ *cobra.Command, _ []string) error {
	for _, dir := range projectManagementDirs {
		path := filepath.Join(projectRoot, dir)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(projectRoot, "projectManagement", "UserSettings", "config.json")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := projectconfig.DefaultJSON()
		b, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding default config: %w", err)
		}
		if err := os.WriteFile(configPath, b, 0o644); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
	}

	st, err := store.Open(projectRoot)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer st.Close()

	fmt.Printf("initialized projectManagement/ at %s\n", projectRoot)
	return nil
}
