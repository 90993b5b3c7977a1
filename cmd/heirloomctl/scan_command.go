package main

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/heirloom-backend/internal/services"
)

func parseUUIDArgs(args []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(args))
	for _, a := range args {
		id, err := uuid.Parse(a)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", a, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var all bool
	cmd := &cobra.Command{
		Use:   "scan [family-id...]",
		Short: "Score person pairs and refresh duplicate candidates",
		Long: `Scan scores every pair of live persons in a family and stores the pairs
above the confidence floor as pending candidates. Without --force only
pairs touching persons edited since the last scan are re-scored.

With one family id the pending candidates are printed. With several ids,
or --all, each family is scanned in parallel and a summary is printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return fmt.Errorf("pass a family id or --all")
			}
			ids, err := parseUUIDArgs(args)
			if err != nil {
				return err
			}
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			if len(ids) == 1 {
				candidates, err := svc.Scan(cmd.Context(), ids[0], force)
				if err != nil {
					return err
				}
				return printCandidates(cmd, ctx, candidates)
			}
			summaries, scanErr := svc.ScanFamilies(cmd.Context(), ids, force)
			if err := printScanSummaries(cmd, ctx, summaries); err != nil {
				return err
			}
			return scanErr
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Re-score every pair instead of only recently edited persons")
	cmd.Flags().BoolVar(&all, "all", false, "Scan every family that has persons")
	return cmd
}

func printScanSummaries(cmd *cobra.Command, ctx *commandContext, summaries []services.ScanSummary) error {
	if ctx.jsonFlag {
		return writeJSON(cmd, summaries)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No families to scan")
		return nil
	}
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		status := "ok"
		if s.Error != "" {
			status = s.Error
		}
		rows = append(rows, []string{
			s.FamilyID.String(),
			s.Mode,
			strconv.Itoa(s.Pending),
			strconv.Itoa(s.Result.Inserted),
			strconv.Itoa(s.Result.Refreshed),
			strconv.Itoa(s.Result.Retracted),
			strconv.Itoa(s.Skipped),
			status,
		})
	}
	fmt.Fprint(cmd.OutOrStdout(), renderTable(
		[]string{"Family", "Mode", "Pending", "New", "Refreshed", "Retracted", "Skipped", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
	return nil
}
