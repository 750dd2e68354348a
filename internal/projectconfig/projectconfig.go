// Package projectconfig loads the per-project configuration file
// (projectManagement/UserSettings/config.json), the option table from spec
// §6: file-size thresholds, task/sidequest limits, context-loading
// defaults, theme/flow bounds, Git and branch-management toggles, and
// validation strictness. Unlike internal/appconfig (the server process's
// own TOML config), this is JSON because it lives alongside the rest of
// projectManagement/'s human-editable artifacts. `aipm init` writes the
// default file directly; internal/store does not write it.
package projectconfig

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full, flattened option set recognized from
// UserSettings/config.json, with spec §6's defaults pre-populated.
type Config struct {
	Project       ProjectOptions       `mapstructure:"project"`
	Tasks         TaskOptions          `mapstructure:"tasks"`
	ContextLoading ContextLoadingOptions `mapstructure:"contextLoading"`
	Themes        ThemeOptions         `mapstructure:"themes"`
	Git           GitOptions           `mapstructure:"git"`
	BranchManagement BranchManagementOptions `mapstructure:"branchManagement"`
	Validation    ValidationOptions    `mapstructure:"validation"`
	Events        EventOptions         `mapstructure:"events"`
}

type ProjectOptions struct {
	MaxFileLineCount  int  `mapstructure:"maxFileLineCount"`
	AvoidPlaceholders bool `mapstructure:"avoidPlaceholders"`
	MinifyJSON        bool `mapstructure:"minifyJson"`
}

type TaskOptions struct {
	MaxActiveSidequests int  `mapstructure:"maxActiveSidequests"`
	ResumeTasksOnStart  bool `mapstructure:"resumeTasksOnStart"`
	AutoTaskCreation    bool `mapstructure:"autoTaskCreation"`
}

type ContextLoadingOptions struct {
	DefaultMode  string `mapstructure:"defaultMode"`
	MaxFlowFiles int    `mapstructure:"maxFlowFiles"`
	ReadmeFirst  bool   `mapstructure:"readmeFirst"`
}

type ThemeOptions struct {
	SharedFileThreshold int `mapstructure:"sharedFileThreshold"`
	MaxFlowsPerTheme    int `mapstructure:"maxFlowsPerTheme"`
}

type GitOptions struct {
	Enabled             bool `mapstructure:"enabled"`
	AutoInitRepo        bool `mapstructure:"autoInitRepo"`
	CodeChangeDetection bool `mapstructure:"codeChangeDetection"`
}

type BranchManagementOptions struct {
	MaxActiveBranches  int  `mapstructure:"maxActiveBranches"`
	MainBranchAuthority bool `mapstructure:"mainBranchAuthority"`
}

// ValidationOptions controls flow-reference strictness: "smart" resolves
// approximate matches via fuzzy lookup before failing, "strict" requires
// an exact id, "disabled" skips the check entirely (spec §4.3).
type ValidationOptions struct {
	FlowReferences string `mapstructure:"flowReferences"`
}

// EventOptions bounds the noteworthy_events DB table before archival
// (spec §3's NoteworthyEvent invariant, spec §8's archival scenario).
type EventOptions struct {
	NoteworthySizeLimit int `mapstructure:"noteworthySizeLimit"`
}

// Load reads UserSettings/config.json from projectRoot, applying
// defaults for any option left unset and AI_PM_*-prefixed environment
// overrides (e.g. AI_PM_TASKS_MAXACTIVESIDEQUESTS=5, plus AI_PM_MAX_FILE_LINES
// for project.maxFileLineCount).
func Load(projectRoot string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(projectRoot + "/projectManagement/UserSettings")

	v.SetEnvPrefix("AI_PM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("project.maxFileLineCount", "AI_PM_MAX_FILE_LINES")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading project config: %w", err)
		}
		// No config.json yet; defaults + env stand alone until init writes one.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding project config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("project.maxFileLineCount", 900)
	v.SetDefault("project.avoidPlaceholders", true)
	v.SetDefault("project.minifyJson", true)

	v.SetDefault("tasks.maxActiveSidequests", 3)
	v.SetDefault("tasks.resumeTasksOnStart", false)
	v.SetDefault("tasks.autoTaskCreation", false)

	v.SetDefault("contextLoading.defaultMode", "focused")
	v.SetDefault("contextLoading.maxFlowFiles", 3)
	v.SetDefault("contextLoading.readmeFirst", true)

	v.SetDefault("themes.sharedFileThreshold", 3)
	v.SetDefault("themes.maxFlowsPerTheme", 10)

	v.SetDefault("git.enabled", true)
	v.SetDefault("git.autoInitRepo", true)
	v.SetDefault("git.codeChangeDetection", true)

	v.SetDefault("branchManagement.maxActiveBranches", 10)
	v.SetDefault("branchManagement.mainBranchAuthority", true)

	v.SetDefault("validation.flowReferences", "smart")

	v.SetDefault("events.noteworthySizeLimit", 500)
}

// DefaultJSON returns the default config as a Config value, for `aipm init`
// to write out a fresh UserSettings/config.json.
func DefaultJSON() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}
