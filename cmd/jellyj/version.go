package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/jellyj/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if info.Revision != "" {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", info, info.Revision)
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), info)
			return err
		},
	}
}
