package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/catalog"
)

func newSeedCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE",
		Short: "Load entities and relation types from a YAML file into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := catalog.LoadSeed(args[0])
			if err != nil {
				return err
			}
			store, err := st.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := seed.Apply(cmd.Context(), store)
			if err != nil {
				return fmt.Errorf("seed %s: %w", args[0], err)
			}
			st.log.Info("Seeded catalog", "file", args[0], "entities", res.Entities, "relation_types", res.RelationTypes)
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d entities and %d relation types\n", res.Entities, res.RelationTypes)
			return nil
		},
	}
}
