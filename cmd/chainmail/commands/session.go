package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func sessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session <peer>",
		Short: "Show or establish the session channel with a peer",
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

			sess, existed, err := a.Sessions.GetOrCreate(cmd.Context(), peer)
			if err != nil {
				return err
			}

			state := "opened"
			if existed {
				state = "reusing"
			}
			expires := "unknown"
			if sess.Deadline != 0 {
				expires = time.Unix(sess.Deadline, 0).UTC().Format(time.RFC3339)
			}
			fmt.Printf("Session %s.\nChannel: %s\nExpires: %s\n", state, sess.Channel, expires)
			return nil
		},
	}
}
