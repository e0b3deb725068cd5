package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"leadscout/internal/services/classify"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>...",
		Short: "Guess the business category of free text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, conf := classify.Classify(strings.Join(args, " "))
			return json.NewEncoder(cmd.OutOrStdout()).Encode(struct {
				Category   string  `json:"category"`
				Confidence float64 `json:"confidence"`
			}{cat, conf})
		},
	}
}
