package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd(opts *rootOptions) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete a user's agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(rt *runtime) error {
				if err := rt.service.Reset(cmd.Context(), userID); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"userId":%q}`+"\n", userID)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User ID (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
