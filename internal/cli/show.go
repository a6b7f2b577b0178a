package cli

import "github.com/spf13/cobra"

func newShowCmd(opts *rootOptions) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a user's stored agent snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(rt *runtime) error {
				snap, err := rt.service.Snapshot(cmd.Context(), userID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), snap)
			})
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User ID (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
