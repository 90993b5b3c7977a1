package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	domainagg "github.com/yungbote/heirloom-backend/internal/domain/aggregates"
)

func parseOptionalUUID(name, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return id, nil
}

// parseResolutions reads field=strategy pairs.
func parseResolutions(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, r := range raw {
		field, strategy, ok := strings.Cut(r, "=")
		field, strategy = strings.TrimSpace(field), strings.TrimSpace(strategy)
		if !ok || field == "" || strategy == "" {
			return nil, fmt.Errorf("invalid --resolve %q: want field=strategy", r)
		}
		out[field] = strategy
	}
	return out, nil
}

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var (
		candidateRaw string
		familyRaw    string
		winnerRaw    string
		loserRaw     string
		resolutions  []string
	)
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge two persons into one",
		Long: `Merge folds the loser into the winner. Every record that names the loser is
re-pointed to the winner, the loser becomes a tombstone, and a history entry
with a snapshot of the loser is written.

Name the pair with --candidate and --winner, or with --winner and --loser.
Field conflicts default to keep_winner; override with --resolve, e.g.
  --resolve bio=keep_loser --resolve alternate_names=union`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			candidateID, err := parseOptionalUUID("candidate id", candidateRaw)
			if err != nil {
				return err
			}
			familyID, err := parseOptionalUUID("family id", familyRaw)
			if err != nil {
				return err
			}
			winnerID, err := parseOptionalUUID("winner id", winnerRaw)
			if err != nil {
				return err
			}
			loserID, err := parseOptionalUUID("loser id", loserRaw)
			if err != nil {
				return err
			}
			fields, err := parseResolutions(resolutions)
			if err != nil {
				return err
			}
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			res, err := svc.Merge(cmd.Context(), domainagg.MergeInput{
				FamilyID:         familyID,
				CandidateID:      candidateID,
				WinnerID:         winnerID,
				LoserID:          loserID,
				FieldResolutions: fields,
				ActorID:          ctx.actor(),
			})
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged %s into %s (history %s)\n", res.LoserID, res.WinnerID, res.MergeHistoryID)
			rows := make([][]string, 0, len(res.Repoints))
			for _, rp := range res.Repoints {
				rows = append(rows, []string{rp.Table, strconv.FormatInt(rp.Repointed, 10), strconv.FormatInt(rp.Dropped, 10)})
			}
			if len(rows) > 0 {
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Table", "Repointed", "Dropped"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight},
				))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&candidateRaw, "candidate", "", "Candidate id naming the pair")
	cmd.Flags().StringVar(&familyRaw, "family", "", "Family both persons must belong to")
	cmd.Flags().StringVar(&winnerRaw, "winner", "", "Person id that survives")
	cmd.Flags().StringVar(&loserRaw, "loser", "", "Person id that becomes a tombstone")
	cmd.Flags().StringArrayVar(&resolutions, "resolve", nil, "Field resolution as field=strategy (repeatable)")
	return cmd
}
