package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chainmail/internal/domain"
)

var (
	sendViaSession bool
	sendExpire     time.Duration
)

// send <peer> <message>: encrypt and post a message to <peer>.
func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Encrypt and post a message to a peer",
		Args:  cobra.ExactArgs(2),
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

			expiry := domain.ExpiryNever
			if sendExpire > 0 {
				expiry = time.Now().Add(sendExpire).Unix()
			}

			post := a.Messages.SendDirect
			if sendViaSession {
				post = a.Messages.SendSession
			}
			receipt, err := post(cmd.Context(), peer, []byte(args[1]), expiry)
			if err != nil {
				return err
			}
			fmt.Printf("Sent. Block %d, cost %d.\n", receipt.Block, receipt.Cost)
			return nil
		},
	}
	cmd.Flags().BoolVar(&sendViaSession, "session", false, "post through the session channel")
	cmd.Flags().DurationVar(&sendExpire, "expire", 0, "message lifetime (e.g. 30m); 0 keeps it readable forever")
	return cmd
}
