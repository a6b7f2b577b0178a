package cli

import (
	"github.com/spf13/cobra"

	"github.com/ashureev/edem-agent/internal/living"
)

func newSilenceCmd(*rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "silence",
		Short: "Print one of the responses to an empty message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"response": living.Silence(living.DefaultRand()),
			})
		},
	}
}
