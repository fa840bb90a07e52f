package main

import (
	"github.com/spf13/cobra"

	"github.com/okian/bikeflow/internal/generator"
	"github.com/okian/bikeflow/pkg/logger"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "flowgen",
		Short:         "Generate synthetic bike flow datasets",
		Long:          "Writes daily_flows/YYYYMM_daily.csv files and an NTA boundary file in the layout the dashboard loads.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithFormat(opts.logFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return err
			}
			return logger.SetLevelString(opts.logLevel)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format (text, json)")

	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newVerifyCmd())
	return cmd
}

// bindDatasetFlags registers the flags shared by generate and verify.
func bindDatasetFlags(cmd *cobra.Command, cfg *generator.Config) {
	f := cmd.Flags()
	f.StringVar(&cfg.OutDir, "out", cfg.OutDir, "directory for the YYYYMM_daily.csv files")
	f.StringVar(&cfg.NTAFile, "nta-file", cfg.NTAFile, "NTA boundary file path (empty to skip)")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "months processed concurrently")
}
