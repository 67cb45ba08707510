package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newModulesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the registered processing modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			modules, err := client.Modules(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(modules))
			for _, mod := range modules {
				accepts := "any"
				if len(mod.Accepts) > 0 {
					accepts = strings.Join(mod.Accepts, " ")
				}
				multiplicity := mod.Multiplicity
				if mod.Combines {
					multiplicity += " (combining)"
				}
				rows = append(rows, []string{mod.ID, mod.DisplayName, multiplicity, accepts, mod.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(),
				renderTable([]string{"ID", "Name", "Targets", "Accepts", "Description"}, rows, nil))
			return nil
		},
	}
}
