package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newCandidatesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "candidates <family-id>",
		Short: "List pending duplicate candidates, best first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			familyID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid family id: %w", err)
			}
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			candidates, err := svc.ListPending(cmd.Context(), familyID)
			if err != nil {
				return err
			}
			return printCandidates(cmd, ctx, candidates)
		},
	}
}

func newDismissCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <candidate-id>",
		Short: "Mark a candidate as not a duplicate",
		Long: `Dismiss records that the two persons are different people. Later scans,
forced or not, never surface the pair again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			candidateID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid candidate id: %w", err)
			}
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			candidate, err := svc.Dismiss(cmd.Context(), candidateID, ctx.actor())
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, candidate)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dismissed %s (%s / %s)\n", candidate.ID, candidate.PersonAID, candidate.PersonBID)
			return nil
		},
	}
}
