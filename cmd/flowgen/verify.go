package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/bikeflow/internal/generator"
)

func newVerifyCmd() *cobra.Command {
	cfg := generator.DefaultConfig("daily_flows")
	cfg.NTAFile = "NYC_NTAs.csv"

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that a dataset loads without rejected rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := generator.Verify(cmd.Context(), cfg, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	bindDatasetFlags(cmd, &cfg)
	return cmd
}
