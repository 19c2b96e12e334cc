package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bizhub/credits-api/internal/domain/catalog"
	"github.com/bizhub/credits-api/internal/domain/membership"
)

func seedCatalogCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed-catalog",
		Short: "Upsert products and membership tiers from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			products, err := catalog.ParseSeed(bytes.NewReader(raw))
			if err != nil {
				return err
			}
			tiers, err := membership.ParseTierSeed(bytes.NewReader(raw))
			if err != nil {
				return err
			}

			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()
			ctx := cmd.Context()

			n, err := catalog.NewService(catalog.NewRepository(e.db)).Seed(ctx, products)
			if err != nil {
				return fmt.Errorf("seeded %d of %d products: %w", n, len(products), err)
			}
			m, err := membership.SeedTiers(ctx, membership.NewRepository(e.db), tiers)
			if err != nil {
				return fmt.Errorf("seeded %d of %d tiers: %w", m, len(tiers), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products, %d tiers\n", n, m)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "configs/catalog.yaml", "Seed file")
	return cmd
}
