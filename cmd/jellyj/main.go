package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pkt.systems/psi"
	"pkt.systems/pslog"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	args := applyArgv0Alias(os.Args)
	root := newRootCmd()
	root.SetArgs(args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("jellyj command failed")
		return 1
	}
	return 0
}

// globalOptions are shared by every subcommand.
type globalOptions struct {
	configPath    string
	controlSocket string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "jellyj",
		Short:         "Companion pane orchestrator for terminal multiplexers",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file")
	root.PersistentFlags().StringVar(&opts.controlSocket, "socket", "", "control socket path (overrides control.socket_path)")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newToggleCmd(opts))
	root.AddCommand(newRequestCmd(opts))
	root.AddCommand(newStateCmd(opts))
	root.AddCommand(newTraceCmd(opts))
	root.AddCommand(newClearTraceCmd(opts))
	root.AddCommand(newPingCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}

// argv0Alias lets a keybinding invoke a symlink such as jellyj-toggle
// without extra arguments.
func argv0Alias(base string) string {
	switch base {
	case "jellyj-toggle", "jj-toggle":
		return "toggle"
	case "jellyj-serve":
		return "serve"
	default:
		return ""
	}
}

func applyArgv0Alias(args []string) []string {
	if len(args) == 0 {
		return args
	}
	alias := argv0Alias(filepath.Base(args[0]))
	if alias == "" {
		return args
	}
	out := make([]string, 0, len(args)+1)
	out = append(out, args[0], alias)
	out = append(out, args[1:]...)
	return out
}
