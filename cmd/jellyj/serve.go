package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/jellyj"
	"pkt.systems/jellyj/core"
	"pkt.systems/jellyj/internal/appconfig"
	"pkt.systems/pslog"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var stdio bool
	var httpAddr string
	var noControl bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the orchestrator daemon",
		Long: "Run the orchestrator daemon. The terminal host connects over the host socket " +
			"(or stdio with --stdio); CLI commands reach it over the control socket.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.controlSocket != "" {
				cfg.Control.SocketPath = opts.controlSocket
			}
			if cmd.Flags().Changed("http") {
				cfg.HTTP.Addr = httpAddr
			}

			serverCfg := jellyj.ServerConfigFrom(cfg)
			serverCfg.Host.Stdio = stdio
			serverOpts := []jellyj.ServerOption{jellyj.WithHost()}
			if !noControl {
				serverOpts = append(serverOpts, jellyj.WithControl())
			}
			if serverCfg.HTTP.Addr != "" {
				serverOpts = append(serverOpts, jellyj.WithHTTP())
			}
			srv, err := jellyj.New(serverCfg, jellyj.ServerDeps{
				ServiceDeps: core.ServiceDeps{Logger: logger},
			}, serverOpts...)
			if err != nil {
				return err
			}
			logger.Info("serve config", "launch_command", serverCfg.Service.LaunchCommand, "pane_name", serverCfg.Service.PaneName, "atomic_launch", !serverCfg.Service.TypedLaunch)
			if err := srv.Start(cmd.Context()); err != nil {
				return err
			}
			go func() {
				<-cmd.Context().Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Stop(stopCtx)
			}()
			return srv.Wait()
		},
	}
	cmd.Flags().BoolVar(&stdio, "stdio", false, "serve a single host over stdin/stdout")
	cmd.Flags().StringVar(&httpAddr, "http", "", "HTTP status API address (overrides http.addr)")
	cmd.Flags().BoolVar(&noControl, "no-control", false, "disable the control socket")
	return cmd
}
