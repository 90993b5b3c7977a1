package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	types "github.com/yungbote/heirloom-backend/internal/domain"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <family-id>",
		Short: "List merges for a family, newest first",
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
			entries, err := svc.ListHistory(cmd.Context(), familyID, limit)
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No merges recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.ID.String(),
					e.MergedAt.UTC().Format(time.RFC3339),
					e.WinnerPersonID.String(),
					e.LoserPersonID.String(),
					e.ActorID,
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"Merge", "Merged At", "Winner", "Loser", "Actor"},
				rows,
				nil,
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to list")
	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <merge-id>",
		Short: "Show one merge with its field decisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			historyID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid merge id: %w", err)
			}
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			entry, err := svc.GetHistory(cmd.Context(), historyID)
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, entry)
			}
			printHistoryEntry(cmd, entry)
			return nil
		},
	}
}

func printHistoryEntry(cmd *cobra.Command, e *types.MergeHistoryEntry) {
	out := cmd.OutOrStdout()
	loser := e.LoserSnapshot.Data()
	fmt.Fprintf(out, "Merge %s\n", e.ID)
	fmt.Fprintf(out, "  Family:  %s\n", e.FamilyID)
	fmt.Fprintf(out, "  Winner:  %s\n", e.WinnerPersonID)
	fmt.Fprintf(out, "  Loser:   %s (%s %s)\n", e.LoserPersonID, loser.GivenName, loser.Surname)
	fmt.Fprintf(out, "  Actor:   %s\n", e.ActorID)
	fmt.Fprintf(out, "  Merged:  %s\n", e.MergedAt.UTC().Format(time.RFC3339))

	if len(e.Decisions) > 0 {
		rows := make([][]string, 0, len(e.Decisions))
		for _, d := range e.Decisions {
			rows = append(rows, []string{d.Field, d.Strategy, fmt.Sprint(d.Winner), fmt.Sprint(d.Loser), fmt.Sprint(d.Result)})
		}
		fmt.Fprint(out, renderTable([]string{"Field", "Strategy", "Winner", "Loser", "Result"}, rows, nil))
	}
	if len(e.Repoints) > 0 {
		rows := make([][]string, 0, len(e.Repoints))
		for _, rp := range e.Repoints {
			rows = append(rows, []string{rp.Table, strconv.FormatInt(rp.Repointed, 10), strconv.FormatInt(rp.Dropped, 10)})
		}
		fmt.Fprint(out, renderTable(
			[]string{"Table", "Repointed", "Dropped"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight},
		))
	}
}
