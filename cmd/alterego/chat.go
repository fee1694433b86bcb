package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alterego-local/alterego/core"
)

func newChatCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return runChat(cmd, a)
		},
	}
}

func runChat(cmd *cobra.Command, a *app) error {
	out := cmd.OutOrStdout()
	a.orch.StartSession()
	defer a.orch.EndSession()

	if a.cfg.AutosaveMinutes > 0 {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go a.orch.RunAutosave(ctx, time.Duration(a.cfg.AutosaveMinutes)*time.Minute)
	}

	fmt.Fprintln(out, "alterego ready. /front <persona> to switch, /who for state, /quit to leave.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := chatCommand(out, a, line); quit {
				return nil
			}
			continue
		}

		resp, err := a.orch.HandleExchange(cmd.Context(), line)
		if err != nil {
			fmt.Fprintf(out, "exchange failed: %v\n", err)
			continue
		}
		fmt.Fprintln(out, resp.Text)
		if resp.LogErr != nil {
			fmt.Fprintf(out, "(warning: this exchange was not recorded: %v)\n", resp.LogErr)
		}
	}
}

// chatCommand handles the slash commands, returning true on /quit.
func chatCommand(out io.Writer, a *app, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/who":
		current := a.front.Current()
		if current == "" {
			fmt.Fprintln(out, "nobody is fronting yet")
		} else {
			fmt.Fprintf(out, "fronting: %s\n", current)
		}

	case "/front":
		if len(fields) < 2 {
			fmt.Fprintln(out, "usage: /front <persona>")
			break
		}
		comment := strings.Join(fields[2:], " ")
		rec, err := a.front.SwitchTo(fields[1], core.TriggerPrompted, comment)
		if err != nil {
			fmt.Fprintf(out, "%v\n", err)
			break
		}
		fmt.Fprintf(out, "now fronting: %s\n", rec.PersonaID)

	case "/personas":
		for _, p := range a.registry.List() {
			fmt.Fprintf(out, "%s (%s)\n", p.ID, p.Tone)
		}

	default:
		fmt.Fprintf(out, "unknown command %s\n", fields[0])
	}
	return false
}
