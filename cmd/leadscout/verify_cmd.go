package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"leadscout/internal/domain"
)

func newVerifyCmd(root *rootOptions) *cobra.Command {
	var rec domain.BusinessRecord
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check whether a single business has an active website",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer env.close()

			rec.Name = domain.CleanText(rec.Name)
			rec.Address = domain.CleanText(rec.Address)
			rec.DiscoveredAt = time.Now().UTC()
			res, err := env.factory.Verify(cmd.Context(), &rec)
			if err != nil {
				return withCode(exitUsage, err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&rec.Name, "name", "", "Business name (required)")
	cmd.Flags().StringVar(&rec.Address, "location", "", "City or address used for web search")
	cmd.Flags().StringVar(&rec.KnownWebsite, "website", "", "Website already known for the business")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
