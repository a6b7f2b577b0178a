package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashureev/edem-agent/internal/agent"
)

func newArchetypeCmd(opts *rootOptions) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "archetype NAME",
		Short: "Record an archetype tag on a user's agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(rt *runtime) error {
				if err := rt.service.SetArchetype(cmd.Context(), agent.ArchetypeRequest{
					UserID:    userID,
					Archetype: args[0],
				}); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"userId":%q,"archetype":%q}`+"\n", userID, args[0])
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User ID (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
