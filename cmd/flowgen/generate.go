package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/okian/bikeflow/internal/domain/flow"
	"github.com/okian/bikeflow/internal/generator"
)

func newGenerateCmd() *cobra.Command {
	cfg := generator.DefaultConfig("daily_flows")
	cfg.NTAFile = "NYC_NTAs.csv"
	var (
		from, to string
		verify   bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic dataset",
		Example: `  flowgen generate
  flowgen generate --from 202201 --to 202512 --areas 8 --pairs 200 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.From, cfg.To = flow.YearMonth(from), flow.YearMonth(to)
			stats, err := generator.Generate(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if verify {
				if err := generator.Verify(cmd.Context(), cfg, stats); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d files, %s rows, %s rides, %d areas\n",
				stats.Files, humanize.Comma(int64(stats.Rows)), humanize.Comma(stats.Rides), stats.Areas)
			return nil
		},
	}

	bindDatasetFlags(cmd, &cfg)
	f := cmd.Flags()
	f.StringVar(&from, "from", string(cfg.From), "first month, YYYYMM")
	f.StringVar(&to, "to", string(cfg.To), "last month, YYYYMM")
	f.IntVar(&cfg.Areas, "areas", cfg.Areas, "neighbourhoods per borough")
	f.IntVar(&cfg.Pairs, "pairs", cfg.Pairs, "origin/destination pairs drawn per day")
	f.IntVar(&cfg.MaxRides, "max-rides", cfg.MaxRides, "largest ride count drawn for one pair")
	f.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	f.BoolVar(&verify, "verify", true, "read the dataset back after writing")
	return cmd
}
