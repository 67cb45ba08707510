package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var paramFlags []string

	processCmd := &cobra.Command{
		Use:   "process <session-id> <module-id> <file-id> [file-id...]",
		Short: "Run a module against session files",
		Long: `Run a registered module against one or more files in a session.

Each selected file is processed independently: a failure on one file is
reported in the outcome table and the remaining files still run. Module
parameters are passed with repeated --param key=value flags.`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			params, err := parseParams(paramFlags)
			if err != nil {
				return err
			}

			sessionID, moduleID, targetIDs := args[0], args[1], args[2:]
			result, err := client.Dispatch(cmd.Context(), sessionID, moduleID, targetIDs, params)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(result.Outcomes))
			for _, outcome := range result.Outcomes {
				status := "ok"
				detail := outcome.OutputName
				if !outcome.Succeeded() {
					status = "failed"
					detail = outcome.Reason
				}
				rows = append(rows, []string{
					outcome.TargetName,
					status,
					outcome.NewFileID,
					detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(),
				renderTable([]string{"Target", "Status", "New file", "Detail"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft}))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d/%d succeeded in %.1fs\n",
				result.ModuleID, result.Succeeded(), len(result.Outcomes), result.Elapsed)
			return nil
		},
	}

	processCmd.Flags().StringArrayVar(&paramFlags, "param", nil, "Module parameter as key=value (repeatable)")
	return processCmd
}
