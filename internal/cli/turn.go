package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashureev/edem-agent/internal/agent"
)

func newTurnCmd(opts *rootOptions) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "turn MESSAGE...",
		Short: "Send one message to a user's agent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(rt *runtime) error {
				resp, err := rt.service.Turn(cmd.Context(), agent.TurnRequest{
					UserID:    userID,
					Message:   strings.Join(args, " "),
					SessionID: "cli",
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User ID (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
