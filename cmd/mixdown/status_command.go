package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and environment checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"Running", yesNo(status.Running)},
				{"PID", fmt.Sprintf("%d", status.PID)},
				{"Uptime", (time.Duration(status.UptimeSeconds) * time.Second).String()},
				{"Database", status.DatabasePath},
				{"Library", status.LibraryDir},
				{"Sessions", fmt.Sprintf("%d", status.Sessions)},
				{"Files", fmt.Sprintf("%d (%d derived)", status.Entries, status.Derived)},
				{"Modules", fmt.Sprintf("%d", status.Modules)},
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))

			if len(status.Preflight) > 0 {
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderSectionHeader("Environment checks", colorize))
				for _, result := range status.Preflight {
					kind := checkOK
					if !result.Passed {
						kind = checkError
					}
					fmt.Fprintln(out, renderCheckLine(result.Name, kind, result.Detail, colorize))
				}
			}
			return nil
		},
	}
}
