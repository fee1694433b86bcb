package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alterego-local/alterego/core"
	"github.com/alterego-local/alterego/fronting"
)

func newPersonasCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List every loaded persona",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			for _, p := range a.registry.List() {
				line := p.ID
				if p.Tone != "" {
					line += " (" + p.Tone + ")"
				}
				if len(p.EchoAffinities) > 0 {
					line += " affinities: " + strings.Join(p.EchoAffinities, ", ")
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func newFrontCmd(configPath *string) *cobra.Command {
	var history bool

	cmd := &cobra.Command{
		Use:   "front [persona]",
		Short: "Record a fronting switch, or show the switch history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			out := cmd.OutOrStdout()

			if history || len(args) == 0 {
				records, err := fronting.ReadSwitchLog(a.cfg.SwitchLogPath)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Fprintln(out, "no switches recorded")
					return nil
				}
				for _, r := range records {
					line := fmt.Sprintf("%s  %s  %s", r.SwitchedAt.Format("2006-01-02 15:04:05"), r.PersonaID, r.Trigger)
					if r.Comment != "" {
						line += "  " + r.Comment
					}
					fmt.Fprintln(out, line)
				}
				return nil
			}

			rec, err := a.front.SwitchTo(args[0], core.TriggerPrompted, "cli switch")
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "now fronting: %s\n", rec.PersonaID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "show the recorded switch history")
	return cmd
}
