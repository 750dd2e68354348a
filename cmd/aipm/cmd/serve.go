package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/appconfig"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/content"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/mcpserver"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/metrics"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/server"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/tools/branches"
	contexttools "github.com/aryanduntley/AIProjectManager-sub003/internal/tools/context"
	sessiontools "github.com/aryanduntley/AIProjectManager-sub003/internal/tools/session"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/tools/sidequests"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/tools/tasks"
)

// watchDebounce batches bursty filesystem events (editors often emit
// several writes per save) before triggering GitBridge reconciliation.
const watchDebounce = 500 * time.Millisecond

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server (stdio or HTTP transport)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := appconfig.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	srv, err := server.New(projectRoot, cfg, logger)
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	defer srv.Close()

	registry := buildRegistry(srv)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	srv.Start(ctx)

	go func() {
		err := srv.GitBridge.Watch(ctx, logger, watchDebounce, func(paths []string) {
			if sessionID := srv.Boot.ActiveSessionID(); sessionID != "" {
				if _, err := srv.GitBridge.Reconcile(ctx, sessionID); err != nil {
					logger.Warn("live reconciliation failed", "error", err, "paths", paths)
				}
			}
		})
		if err != nil && ctx.Err() == nil {
			logger.Warn("gitbridge watch stopped", "error", err)
		}
	}()

	mcpSrv := mcpserver.NewServer(registry, mcpserver.ServerInfo{
		Name:    cfg.Server.Name,
		Version: version,
	}, logger)

	if cfg.Transport.Mode == "http" {
		return runHTTP(ctx, cfg, mcpSrv, logger)
	}

	logger.Info("starting aipm", "version", version, "transport", "stdio")
	return mcpSrv.Run(ctx)
}

func runHTTP(ctx context.Context, cfg *appconfig.Config, mcpSrv *mcpserver.Server, logger *slog.Logger) error {
	var metricsHandler http.Handler
	metricsPath := cfg.Metrics.Path
	if cfg.Metrics.Enabled {
		metricsHandler = promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})
	} else {
		metricsPath = ""
	}

	httpSrv := mcpserver.NewHTTPServer(mcpSrv, cfg.Transport.CORSOrigins, logger, metricsHandler, metricsPath)
	addr := cfg.Transport.Host + ":" + cfg.Transport.Port

	logger.Info("starting aipm", "version", version, "transport", "http", "addr", addr)

	server := &http.Server{Addr: addr, Handler: httpSrv.Handler()}
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return server.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

func buildRegistry(srv *server.Server) *mcpserver.Registry {
	registry := mcpserver.NewRegistry()

	registry.Register(tasks.NewCreateTask(srv.Scheduler))
	registry.Register(tasks.NewStartTask(srv.Scheduler))
	registry.Register(tasks.NewCompleteTask(srv.Scheduler))
	registry.Register(tasks.NewUpdateTaskProgress(srv.Scheduler))
	registry.Register(tasks.NewUpdateSubtaskProgress(srv.Scheduler))

	registry.Register(sidequests.NewCreateSidequest(srv.Scheduler, srv.Store))
	registry.Register(sidequests.NewCompleteSidequest(srv.Scheduler))
	registry.Register(sidequests.NewCancelSidequest(srv.Scheduler))

	registry.Register(contexttools.NewLoadContext(srv.ContextLoad))
	registry.Register(contexttools.NewEscalateContext(srv.ContextLoad))

	registry.Register(branches.NewCreateBranch(srv.Branch))
	registry.Register(branches.NewMergeBranch(srv.Branch))
	registry.Register(branches.NewListBranches(srv.Branch))
	registry.Register(branches.NewStaleBranches(srv.Branch))

	registry.Register(sessiontools.NewBootSession(srv.Boot))
	registry.Register(sessiontools.NewEndSession(srv.Boot))

	registry.RegisterPrompt(&content.BootSessionPrompt{})
	registry.RegisterPrompt(&content.PlanTaskPrompt{})
	registry.RegisterPrompt(&content.HandleSidequestPrompt{})

	registry.RegisterResource(&content.EntityModelResource{})
	registry.RegisterResource(&content.GuardrailsResource{})
	registry.RegisterResource(&content.ToolReferenceResource{})

	return registry
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
