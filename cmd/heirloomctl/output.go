package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	types "github.com/yungbote/heirloom-backend/internal/domain"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func joinReasons(reasons []types.Reason) string {
	parts := make([]string, 0, len(reasons))
	for _, r := range reasons {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ", ")
}

func candidateRows(candidates []*types.DuplicateCandidate) [][]string {
	rows := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		rows = append(rows, []string{
			c.ID.String(),
			c.PersonAID.String(),
			c.PersonBID.String(),
			formatScore(c.Score),
			c.Band,
			joinReasons(c.Reasons),
		})
	}
	return rows
}

func printCandidates(cmd *cobra.Command, ctx *commandContext, candidates []*types.DuplicateCandidate) error {
	if ctx.jsonFlag {
		return writeJSON(cmd, candidates)
	}
	if len(candidates) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No pending duplicate candidates")
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), renderTable(
		[]string{"Candidate", "Person A", "Person B", "Score", "Band", "Reasons"},
		candidateRows(candidates),
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
	return nil
}
