package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pkt.systems/jellyj/internal/appconfig"
	"pkt.systems/jellyj/internal/control"
	"pkt.systems/jellyj/schema"
	"pkt.systems/pslog"
)

// dialControl resolves the control socket from flags or config and dials it.
func dialControl(ctx context.Context, opts *globalOptions) (*control.Client, error) {
	socket := opts.controlSocket
	if socket == "" {
		cfg, err := appconfig.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		socket = cfg.Control.SocketPath
	}
	if _, err := os.Stat(socket); err != nil {
		return nil, fmt.Errorf("daemon not running? control socket %s: %w", socket, err)
	}
	pslog.Ctx(ctx).Debug("control dial", "socket", socket)
	return control.Dial(ctx, socket)
}

func newToggleCmd(opts *globalOptions) *cobra.Command {
	var callerID string
	var anonymous bool
	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Show, hide, or launch the companion pane",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dialControl(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer client.Close()
			if callerID == "" && !anonymous {
				callerID = uuid.NewString()
			}
			result, err := client.Toggle(cmd.Context(), callerID)
			if err != nil {
				return err
			}
			log := pslog.Ctx(cmd.Context())
			switch {
			case result.Duplicate:
				log.Info("toggle ignored", "reason", "duplicate", "caller", callerID)
			case result.DedupWindow:
				log.Info("toggle ignored", "reason", "dedup_window", "caller", callerID)
			default:
				log.Debug("toggle accepted", "caller", callerID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&callerID, "caller-id", "", "caller id used for duplicate suppression (default: random)")
	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "send without a caller id, like a keybinding")
	return cmd
}

func newRequestCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "request <json>",
		Short: "Send a raw JSON request; use - to read it from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := []byte(args[0])
			if args[0] == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				payload = data
			}
			client, err := dialControl(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer client.Close()
			resp, err := client.Request(cmd.Context(), payload)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}
}

func newStateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the cached workspace and orchestrator state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(cmd, opts, schema.Request{Op: schema.OpGetState})
		},
	}
}

func newPingCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the daemon answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(cmd, opts, schema.Request{Op: schema.OpPing})
		},
	}
}

func newClearTraceCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-trace",
		Short: "Drop all diagnostics trace entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(cmd, opts, schema.Request{Op: schema.OpClearTrace})
		},
	}
}

func newTraceCmd(opts *globalOptions) *cobra.Command {
	var limit int
	var follow bool
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the diagnostics trace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("%w: --limit must be non-negative", schema.ErrInvalidRequest)
			}
			client, err := dialControl(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer client.Close()
			out := cmd.OutOrStdout()
			if follow {
				return client.WatchTrace(cmd.Context(), limit, func(ev control.WatchEvent) error {
					if ev.Host != "" {
						_, err := fmt.Fprintf(out, "-- host %s\n", ev.Host)
						return err
					}
					_, err := fmt.Fprintln(out, ev.Line)
					return err
				})
			}
			resp, err := client.Do(cmd.Context(), schema.Request{Op: schema.OpGetTrace, Limit: &limit})
			if err != nil {
				return err
			}
			if err := resp.Err(); err != nil {
				return err
			}
			lines, err := traceLines(resp)
			if err != nil {
				return err
			}
			for _, line := range lines {
				if _, err := fmt.Fprintln(out, line); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of most recent entries (0 prints none)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep streaming new entries")
	return cmd
}

func doRequest(cmd *cobra.Command, opts *globalOptions, req schema.Request) error {
	client, err := dialControl(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer client.Close()
	resp, err := client.Do(cmd.Context(), req)
	if err != nil {
		return err
	}
	return printResponse(cmd.OutOrStdout(), resp)
}

// printResponse writes the envelope and turns failures into a command error.
func printResponse(w io.Writer, resp schema.Response) error {
	if err := printJSON(w, resp); err != nil {
		return err
	}
	return resp.Err()
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func traceLines(resp schema.Response) ([]string, error) {
	data, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, err
	}
	var result schema.TraceResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode trace: %w", err)
	}
	return result.Entries, nil
}
