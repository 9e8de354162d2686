package schema

import (
	"fmt"
	"strings"
	"time"
)

// Companion defaults.
const (
	DefaultPaneName      = "Jelly J"
	DefaultLaunchCommand = "jelly-j"
	DefaultTraceLimit    = 200
)

// TieBreak names a rule used to pick the canonical companion among duplicates.
type TieBreak string

const (
	// TieBreakTracked prefers the pane already tracked from a prior cycle.
	TieBreakTracked TieBreak = "tracked"
	// TieBreakCurrentTab prefers a pane in the caller's current tab.
	TieBreakCurrentTab TieBreak = "current_tab"
	// TieBreakFocused prefers a focused pane.
	TieBreakFocused TieBreak = "focused"
)

// DefaultTieBreak is the canonical selection order; the first pane wins when no rule matches.
var DefaultTieBreak = []TieBreak{TieBreakTracked, TieBreakCurrentTab, TieBreakFocused}

// ServiceConfig defines identity and pacing for the orchestrator.
type ServiceConfig struct {
	PaneName      string
	LaunchCommand string
	TieBreak      []TieBreak
	// TypedLaunch is set when the host cannot take the initial command as part
	// of launch. The command is then typed into the new pane once it is bound.
	// The zero value launches atomically.
	TypedLaunch bool
	// StallLimit is the number of pane updates a session may wait without progress.
	StallLimit int
	// RehideEvery re-issues the hide command every N updates while waiting for suppression.
	RehideEvery int
	// RelaxTabAfter allows any unseen pane in the target tab after N updates.
	RelaxTabAfter int
	// RelaxAnyAfter allows any unseen pane after N updates.
	RelaxAnyAfter int
	// ProgressEvery traces waiting progress every N updates.
	ProgressEvery        int
	DedupWindow          time.Duration
	StickyGrace          time.Duration
	StickyRevealAttempts int
	TraceLimit           int
}

// DefaultServiceConfig returns the stock orchestrator settings.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		PaneName:             DefaultPaneName,
		LaunchCommand:        DefaultLaunchCommand,
		TieBreak:             append([]TieBreak(nil), DefaultTieBreak...),
		StallLimit:           1200,
		RehideEvery:          30,
		RelaxTabAfter:        4,
		RelaxAnyAfter:        6,
		ProgressEvery:        100,
		DedupWindow:          100 * time.Millisecond,
		StickyGrace:          1500 * time.Millisecond,
		StickyRevealAttempts: 2,
		TraceLimit:           DefaultTraceLimit,
	}
}

// NormalizeServiceConfig applies defaults and validates the config.
// Zero values fall back to defaults, so a zero ServiceConfig behaves like
// DefaultServiceConfig.
func NormalizeServiceConfig(cfg ServiceConfig) (ServiceConfig, error) {
	def := DefaultServiceConfig()
	cfg.PaneName = strings.TrimSpace(cfg.PaneName)
	if cfg.PaneName == "" {
		cfg.PaneName = def.PaneName
	}
	cfg.LaunchCommand = strings.TrimSpace(cfg.LaunchCommand)
	if cfg.LaunchCommand == "" {
		cfg.LaunchCommand = def.LaunchCommand
	}
	if len(cfg.TieBreak) == 0 {
		cfg.TieBreak = def.TieBreak
	}
	seen := make(map[TieBreak]bool, len(cfg.TieBreak))
	for _, rule := range cfg.TieBreak {
		switch rule {
		case TieBreakTracked, TieBreakCurrentTab, TieBreakFocused:
		default:
			return ServiceConfig{}, fmt.Errorf("unsupported tie-break rule %q", rule)
		}
		if seen[rule] {
			return ServiceConfig{}, fmt.Errorf("duplicate tie-break rule %q", rule)
		}
		seen[rule] = true
	}
	if cfg.StallLimit <= 0 {
		cfg.StallLimit = def.StallLimit
	}
	if cfg.RehideEvery <= 0 {
		cfg.RehideEvery = def.RehideEvery
	}
	if cfg.RelaxTabAfter <= 0 {
		cfg.RelaxTabAfter = def.RelaxTabAfter
	}
	if cfg.RelaxAnyAfter <= 0 {
		cfg.RelaxAnyAfter = def.RelaxAnyAfter
	}
	if cfg.RelaxAnyAfter < cfg.RelaxTabAfter {
		return ServiceConfig{}, fmt.Errorf("relax_any_after (%d) must not be less than relax_tab_after (%d)", cfg.RelaxAnyAfter, cfg.RelaxTabAfter)
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = def.ProgressEvery
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = def.DedupWindow
	}
	if cfg.StickyGrace <= 0 {
		cfg.StickyGrace = def.StickyGrace
	}
	if cfg.StickyRevealAttempts <= 0 {
		cfg.StickyRevealAttempts = def.StickyRevealAttempts
	}
	if cfg.TraceLimit <= 0 {
		cfg.TraceLimit = def.TraceLimit
	}
	return cfg, nil
}
