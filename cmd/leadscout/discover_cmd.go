package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"leadscout/internal/adapters/export"
	"leadscout/internal/domain"
)

type discoverOptions struct {
	query  domain.SearchQuery
	format string
	out    string
}

func newDiscoverCmd(root *rootOptions) *cobra.Command {
	var opts discoverOptions
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Search directories, deduplicate and verify website presence",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := export.ParseFormat(opts.format)
			if err != nil {
				return withCode(exitUsage, err)
			}
			env, err := setup(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer env.close()

			recs, runErr := env.factory.Discover(cmd.Context(), opts.query)
			if errors.Is(runErr, domain.ErrNoSources) {
				return configError(runErr)
			}
			if runErr != nil && recs == nil {
				return withCode(exitRun, runErr)
			}
			if err := writeOutput(cmd.OutOrStdout(), opts.out, format, recs); err != nil {
				return withCode(exitRun, err)
			}
			env.logger.Info("discovery finished", zap.Int("businesses", len(recs)))
			return withCode(exitRun, runErr)
		},
	}
	cmd.Flags().StringVar(&opts.query.Location, "location", "", "Area to search, e.g. \"Atlanta, GA\" (required)")
	cmd.Flags().StringVar(&opts.query.BusinessType, "type", "", "Business category, e.g. restaurant (required)")
	cmd.Flags().StringArrayVar(&opts.query.Keywords, "keyword", nil, "Extra search keyword (repeatable)")
	cmd.Flags().Float64Var(&opts.query.RadiusKm, "radius", 10, "Search radius in kilometers")
	cmd.Flags().StringVar(&opts.format, "format", "json", "Output format: json, csv or xlsx")
	cmd.Flags().StringVar(&opts.out, "out", "-", "Output file, - for stdout")
	_ = cmd.MarkFlagRequired("location")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func writeOutput(stdout io.Writer, path string, format export.Format, recs []domain.BusinessRecord) error {
	if path == "" || path == "-" {
		return export.Write(stdout, format, recs)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.Write(f, format, recs); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
