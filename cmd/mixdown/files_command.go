package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFilesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "files <session-id>",
		Short: "List the files registered in a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			files, err := client.Files(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Session has no files")
				return nil
			}
			rows := make([][]string, 0, len(files))
			for _, file := range files {
				origin := file.Origin
				if file.ProducingModuleID != "" {
					origin = fmt.Sprintf("%s (%s)", file.Origin, file.ProducingModuleID)
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", file.OrderIndex),
					file.ID,
					file.DisplayName,
					origin,
					formatBytes(file.SizeBytes),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(),
				renderTable([]string{"#", "ID", "Name", "Origin", "Size"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight}))
			return nil
		},
	}
}
