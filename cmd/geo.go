package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/lanceiro/radar-cli/internal/geo"
)

var geoCmd = &cobra.Command{
	Use:   "geo",
	Short: "Municipality reference data",
	Long:  "Loads the IBGE municipal meshes that give published notices their map coordinates.",
}

var geoLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load IBGE municipality meshes into Postgres",
	Long: `Load downloads one zipped shapefile per federative unit (or reads
pre-downloaded archives with --dir), extracts every municipality with its
label point, and upserts the reference table keyed on IBGE code.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("geo"); err != nil {
			return err
		}

		pool, err := radarPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		dir, _ := cmd.Flags().GetString("dir")
		states, _ := cmd.Flags().GetStringSlice("states")
		workers, _ := cmd.Flags().GetInt("workers")

		n, err := geo.ImportMunicipalities(ctx, pool, nil, geo.Options{
			BaseURL: cfg.Geo.BaseURL,
			Dir:     dir,
			States:  states,
			Workers: workers,
		})
		if err != nil {
			return eris.Wrap(err, "geo load")
		}

		fmt.Printf("Loaded %d municipalities\n", n)
		return nil
	},
}

func init() {
	geoLoadCmd.Flags().String("dir", "", "directory of pre-downloaded UF archives (skips the download)")
	geoLoadCmd.Flags().StringSlice("states", nil, "UF subset to load (default all 27)")
	geoLoadCmd.Flags().Int("workers", 0, "concurrent UF loads (default 4)")
	geoCmd.AddCommand(geoLoadCmd)
	rootCmd.AddCommand(geoCmd)
}
