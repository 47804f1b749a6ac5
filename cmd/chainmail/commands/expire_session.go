package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// expire-session closes a lapsed session channel on the registry. The
// registry refuses while the session still has time left.
func expireSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire-session <peer>",
		Short: "Close the lapsed session channel with a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := unlock()
			if err != nil {
				return err
			}
			defer a.Close()

			peer, err := peerAddress(args[0])
			if err != nil {
				return err
			}

			receipt, err := a.Sessions.ForceExpire(cmd.Context(), peer)
			if err != nil {
				return err
			}
			fmt.Printf("Session closed at block %d.\n", receipt.Block)
			return nil
		},
	}
}
