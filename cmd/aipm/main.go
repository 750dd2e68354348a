// Command aipm runs the AI Project Manager MCP server, and provides the
// operator-facing CLI around it (init, doctor, status, branch).
package main

import (
	"fmt"
	"os"

	"github.com/aryanduntley/AIProjectManager-sub003/cmd/aipm/cmd"
)

// Version is set via ldflags at build time.
var Version = "dev"

func main() {
	cmd.SetVersion(Version)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "aipm: %v\n", err)
		os.Exit(1)
	}
}
