// Package server wires every core component behind one explicit handle
// (spec §9 redesign: "no module-level tool registries or singletons —
// model as explicit handles owned by a Server value").
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/appconfig"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/branch"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/contextload"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/gitbridge"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/maintenance"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/projectconfig"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/scheduler"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/session"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/store"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/themeflow"
)

// Server owns every long-lived component for one project, plus the
// process-wide resources spec §5 requires be explicit rather than
// implicit statics: the Git mutex serializing BranchManager/GitBridge,
// and the Store's own write-backpressure semaphore (held inside Store
// itself, not duplicated here).
type Server struct {
	Logger *slog.Logger

	Store       *store.Store
	Scheduler   *scheduler.Scheduler
	ThemeFlow   *themeflow.Index
	ContextLoad *contextload.Loader
	Branch      *branch.Manager
	GitBridge   *gitbridge.Bridge
	Boot        *session.Boot
	Maintenance *maintenance.Runner

	AppConfig     *appconfig.Config
	ProjectConfig *projectconfig.Config

	gitMu sync.Mutex
}

// New opens the Store at projectRoot and wires every component against
// it, in the teacher's constructor-chain style: each component takes
// exactly the handles it needs, nothing global.
func New(projectRoot string, appCfg *appconfig.Config, logger *slog.Logger) (*Server, error) {
	st, err := store.Open(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	projCfg, err := projectconfig.Load(projectRoot)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	s := &Server{
		Logger:        logger,
		Store:         st,
		AppConfig:     appCfg,
		ProjectConfig: projCfg,
	}

	s.Scheduler = scheduler.New(st, projCfg.Events.NoteworthySizeLimit, projCfg.Tasks.MaxActiveSidequests)
	s.ThemeFlow = themeflow.New(st)
	s.ContextLoad = contextload.New(st, s.ThemeFlow)
	s.Branch = branch.New(projectRoot, st, &s.gitMu)
	s.GitBridge = gitbridge.New(projectRoot, st, &s.gitMu)
	s.Boot = session.New(st, s.Scheduler, s.GitBridge, projectRoot, projCfg)

	s.Maintenance = maintenance.NewRunner(logger)
	if appCfg.Maintenance.Enabled {
		interval := time.Duration(intervalOrDefault(appCfg.Maintenance.IntervalMinutes)) * time.Minute
		s.Maintenance.AddJob(&maintenance.StaleBranchJob{
			Store:               st,
			Logger:              logger,
			StaleAfter:          branch.StaleAfterNoCommits,
			NoteworthySizeLimit: projCfg.Events.NoteworthySizeLimit,
		}, interval)
		s.Maintenance.AddJob(&maintenance.DoctorJob{
			Store:               st,
			Logger:              logger,
			SharedFileThreshold: projCfg.Themes.SharedFileThreshold,
			NoteworthySizeLimit: projCfg.Events.NoteworthySizeLimit,
		}, interval)
	}

	return s, nil
}

// Start begins background maintenance jobs (stale-branch sweep, doctor).
func (s *Server) Start(ctx context.Context) {
	if s.AppConfig.Maintenance.Enabled {
		s.Maintenance.Start(ctx)
	}
}

// Close stops background jobs and closes the Store.
func (s *Server) Close() error {
	s.Maintenance.Stop()
	return s.Store.Close()
}

func intervalOrDefault(minutes int) int {
	if minutes <= 0 {
		return 30
	}
	return minutes
}
