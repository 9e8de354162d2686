package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pkt.systems/jellyj/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int                `mapstructure:"config_version" yaml:"config_version"`
	Companion     CompanionConfig    `mapstructure:"companion" yaml:"companion"`
	Orchestrator  OrchestratorConfig `mapstructure:"orchestrator" yaml:"orchestrator"`
	Host          HostConfig         `mapstructure:"host" yaml:"host"`
	Control       ControlConfig      `mapstructure:"control" yaml:"control"`
	HTTP          HTTPConfig         `mapstructure:"http" yaml:"http"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// CompanionConfig identifies the companion pane.
type CompanionConfig struct {
	PaneName      string   `mapstructure:"pane_name" yaml:"pane_name"`
	LaunchCommand string   `mapstructure:"launch_command" yaml:"launch_command"`
	TieBreak      []string `mapstructure:"tie_break" yaml:"tie_break"`
}

// OrchestratorConfig tunes session pacing.
type OrchestratorConfig struct {
	StallLimit           int `mapstructure:"stall_limit" yaml:"stall_limit"`
	RehideEvery          int `mapstructure:"rehide_every" yaml:"rehide_every"`
	RelaxTabAfter        int `mapstructure:"relax_tab_after" yaml:"relax_tab_after"`
	RelaxAnyAfter        int `mapstructure:"relax_any_after" yaml:"relax_any_after"`
	ProgressEvery        int `mapstructure:"progress_every" yaml:"progress_every"`
	DedupWindowMS        int `mapstructure:"dedup_window_ms" yaml:"dedup_window_ms"`
	StickyGraceMS        int `mapstructure:"sticky_grace_ms" yaml:"sticky_grace_ms"`
	StickyRevealAttempts int `mapstructure:"sticky_reveal_attempts" yaml:"sticky_reveal_attempts"`
	TraceLimit           int `mapstructure:"trace_limit" yaml:"trace_limit"`
}

// HostConfig configures the host bridge.
type HostConfig struct {
	SocketPath   string `mapstructure:"socket_path" yaml:"socket_path"`
	AtomicLaunch bool   `mapstructure:"atomic_launch" yaml:"atomic_launch"`
	OneBasedTabs bool   `mapstructure:"one_based_tabs" yaml:"one_based_tabs"`
}

// ControlConfig configures the CLI control socket.
type ControlConfig struct {
	SocketPath  string `mapstructure:"socket_path" yaml:"socket_path"`
	AllowAnyUID bool   `mapstructure:"allow_any_uid" yaml:"allow_any_uid"`
}

// HTTPConfig configures the optional HTTP status API. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	runtimeDir, err := defaultRuntimeDir()
	if err != nil {
		return Config{}, err
	}
	svc := schema.DefaultServiceConfig()
	tieBreak := make([]string, 0, len(svc.TieBreak))
	for _, rule := range svc.TieBreak {
		tieBreak = append(tieBreak, string(rule))
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Companion: CompanionConfig{
			PaneName:      svc.PaneName,
			LaunchCommand: svc.LaunchCommand,
			TieBreak:      tieBreak,
		},
		Orchestrator: OrchestratorConfig{
			StallLimit:           svc.StallLimit,
			RehideEvery:          svc.RehideEvery,
			RelaxTabAfter:        svc.RelaxTabAfter,
			RelaxAnyAfter:        svc.RelaxAnyAfter,
			ProgressEvery:        svc.ProgressEvery,
			DedupWindowMS:        int(svc.DedupWindow / time.Millisecond),
			StickyGraceMS:        int(svc.StickyGrace / time.Millisecond),
			StickyRevealAttempts: svc.StickyRevealAttempts,
			TraceLimit:           svc.TraceLimit,
		},
		Host: HostConfig{
			SocketPath:   filepath.Join(runtimeDir, "jellyj", "host.sock"),
			AtomicLaunch: !svc.TypedLaunch,
			OneBasedTabs: false,
		},
		Control: ControlConfig{
			SocketPath:  filepath.Join(runtimeDir, "jellyj", "control.sock"),
			AllowAnyUID: false,
		},
		HTTP: HTTPConfig{
			Addr: "",
		},
	}, nil
}

// ServiceConfig converts the file layout into the core service settings.
func (c Config) ServiceConfig() schema.ServiceConfig {
	tieBreak := make([]schema.TieBreak, 0, len(c.Companion.TieBreak))
	for _, rule := range c.Companion.TieBreak {
		tieBreak = append(tieBreak, schema.TieBreak(rule))
	}
	return schema.ServiceConfig{
		PaneName:             c.Companion.PaneName,
		LaunchCommand:        c.Companion.LaunchCommand,
		TieBreak:             tieBreak,
		TypedLaunch:          !c.Host.AtomicLaunch,
		StallLimit:           c.Orchestrator.StallLimit,
		RehideEvery:          c.Orchestrator.RehideEvery,
		RelaxTabAfter:        c.Orchestrator.RelaxTabAfter,
		RelaxAnyAfter:        c.Orchestrator.RelaxAnyAfter,
		ProgressEvery:        c.Orchestrator.ProgressEvery,
		DedupWindow:          time.Duration(c.Orchestrator.DedupWindowMS) * time.Millisecond,
		StickyGrace:          time.Duration(c.Orchestrator.StickyGraceMS) * time.Millisecond,
		StickyRevealAttempts: c.Orchestrator.StickyRevealAttempts,
		TraceLimit:           c.Orchestrator.TraceLimit,
	}
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".jellyj", "config.yaml"), nil
}

func defaultRuntimeDir() (string, error) {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir, nil
	}
	dir := filepath.Join("/run", "user", fmt.Sprintf("%d", os.Getuid()))
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".jellyj", "run"), nil
}
