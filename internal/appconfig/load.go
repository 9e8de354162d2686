package appconfig

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	"pkt.systems/jellyj/schema"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("companion.pane_name", cfg.Companion.PaneName)
	v.SetDefault("companion.launch_command", cfg.Companion.LaunchCommand)
	v.SetDefault("companion.tie_break", cfg.Companion.TieBreak)
	v.SetDefault("orchestrator.stall_limit", cfg.Orchestrator.StallLimit)
	v.SetDefault("orchestrator.rehide_every", cfg.Orchestrator.RehideEvery)
	v.SetDefault("orchestrator.relax_tab_after", cfg.Orchestrator.RelaxTabAfter)
	v.SetDefault("orchestrator.relax_any_after", cfg.Orchestrator.RelaxAnyAfter)
	v.SetDefault("orchestrator.progress_every", cfg.Orchestrator.ProgressEvery)
	v.SetDefault("orchestrator.dedup_window_ms", cfg.Orchestrator.DedupWindowMS)
	v.SetDefault("orchestrator.sticky_grace_ms", cfg.Orchestrator.StickyGraceMS)
	v.SetDefault("orchestrator.sticky_reveal_attempts", cfg.Orchestrator.StickyRevealAttempts)
	v.SetDefault("orchestrator.trace_limit", cfg.Orchestrator.TraceLimit)
	v.SetDefault("host.socket_path", cfg.Host.SocketPath)
	v.SetDefault("host.atomic_launch", cfg.Host.AtomicLaunch)
	v.SetDefault("host.one_based_tabs", cfg.Host.OneBasedTabs)
	v.SetDefault("control.socket_path", cfg.Control.SocketPath)
	v.SetDefault("control.allow_any_uid", cfg.Control.AllowAnyUID)
	v.SetDefault("http.addr", cfg.HTTP.Addr)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if _, err := schema.NormalizeServiceConfig(cfg.ServiceConfig()); err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}
	if strings.TrimSpace(cfg.Host.SocketPath) == "" {
		return fmt.Errorf("host.socket_path is required")
	}
	if strings.TrimSpace(cfg.Control.SocketPath) == "" {
		return fmt.Errorf("control.socket_path is required")
	}
	if addr := strings.TrimSpace(cfg.HTTP.Addr); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("http.addr must be host:port: %w", err)
		}
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Companion.LaunchCommand = expandEnv(cfg.Companion.LaunchCommand)
	cfg.Host.SocketPath = expandEnv(cfg.Host.SocketPath)
	cfg.Control.SocketPath = expandEnv(cfg.Control.SocketPath)
	cfg.HTTP.Addr = expandEnv(cfg.HTTP.Addr)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
