package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <person-id>",
		Short: "Resolve a person id, following a merge tombstone to its winner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			personID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid person id: %w", err)
			}
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			resolved, err := svc.ResolvePerson(cmd.Context(), personID)
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, resolved)
			}
			p := resolved.Person
			if resolved.Redirected {
				fmt.Fprintf(cmd.OutOrStdout(), "%s was merged into %s (%s %s)\n", resolved.RequestedID, p.ID, p.GivenName, p.Surname)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is live (%s %s)\n", p.ID, p.GivenName, p.Surname)
			return nil
		},
	}
}
