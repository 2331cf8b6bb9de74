package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/factio"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/models"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/session"
)

// matchReport is what `match` prints.
type matchReport struct {
	Matches []models.MatchRecord `json:"matches"`
	session.Stats
}

func newMatchCommand(st *state) *cobra.Command {
	var compact bool
	cmd := &cobra.Command{
		Use:   "match FILE",
		Short: "Match a file of facts against the catalog",
		Long: `Match a file of facts against the catalog and print the match records
with per-name and per-role lookup statistics as JSON.

Files ending in .csv are read as CSV with a header row of property names;
anything else is read as JSON Lines, one object per fact.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			facts, err := factio.ReadFile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			b, err := st.openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.Close()

			sess, err := st.newSession(b)
			if err != nil {
				return err
			}
			matches, _, err := sess.Match(ctx, facts)
			if err != nil {
				return fmt.Errorf("match %s: %w", args[0], err)
			}
			if matches == nil {
				matches = []models.MatchRecord{}
			}

			report := matchReport{Matches: matches, Stats: sess.Stats()}
			st.log.Info("Matched facts",
				"file", args[0],
				"facts", len(facts),
				"records", len(matches),
				"unmatched_entities", report.Summary.Entities.Unmatched,
				"unmatched_relation_types", report.Summary.RelationTypes.Unmatched,
			)

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(report)
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "print JSON on a single line")
	return cmd
}
