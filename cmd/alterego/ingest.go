package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alterego-local/alterego/ingest"
)

func newIngestCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Index every text file under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.ingestor.Ingest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d indexed, %d skipped, %d warnings\n",
				stats.Indexed, stats.Skipped, stats.Warnings)
			return nil
		},
	}
}

func newWatchCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Continuously ingest a directory as it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			w, err := ingest.NewWatcher(a.ingestor, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "watching %s\n", args[0])
			return w.Run(cmd.Context())
		},
	}
}
