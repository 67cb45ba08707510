package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage daemon sessions",
	}

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			sessions, err := client.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(sessions))
			for _, sess := range sessions {
				rows = append(rows, []string{
					sess.ID,
					sess.Name,
					fmt.Sprintf("%d", sess.FileCount),
					formatAge(sess.LastActiveAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(),
				renderTable([]string{"ID", "Name", "Files", "Last active"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
			return nil
		},
	})

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a new session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			sess, err := client.CreateSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created session %s (%s)\n", sess.Name, sess.ID)
			return nil
		},
	})

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "clear <session-id>",
		Short: "Tear down a session and delete its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.DeleteSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s removed\n", args[0])
			return nil
		},
	})

	return sessionsCmd
}
