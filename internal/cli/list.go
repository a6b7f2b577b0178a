package cli

import (
	"github.com/spf13/cobra"

	"github.com/ashureev/edem-agent/internal/domain"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored agents, most recently active first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(rt *runtime) error {
				agents, err := rt.service.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if agents == nil {
					agents = []domain.AgentSummary{}
				}
				return printJSON(cmd.OutOrStdout(), agents)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "Maximum number of agents")
	return cmd
}
