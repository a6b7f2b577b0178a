package cli

import (
	"github.com/spf13/cobra"

	"github.com/ashureev/edem-agent/internal/domain"
)

func newMythCmd(opts *rootOptions) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "myth",
		Short: "Change the origin, fear or desire of a user's agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var patch domain.MythPatch
			flags := cmd.Flags()
			if flags.Changed("origin") {
				v, _ := flags.GetString("origin")
				patch.Origin = &v
			}
			if flags.Changed("fear") {
				v, _ := flags.GetString("fear")
				patch.Fear = &v
			}
			if flags.Changed("desire") {
				v, _ := flags.GetString("desire")
				patch.Desire = &v
			}

			return withRuntime(cmd, opts, func(rt *runtime) error {
				myth, err := rt.service.SetMyth(cmd.Context(), userID, patch)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), myth)
			})
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User ID (required)")
	cmd.Flags().String("origin", "", "Where the agent says it came from")
	cmd.Flags().String("fear", "", "What the agent fears")
	cmd.Flags().String("desire", "", "What the agent wants")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
