package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"chainmail/internal/crypto"
)

// publish-key registers the wallet's encryption key in the on-ledger
// directory so peers can seal messages to us.
func publishKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish-key",
		Short: "Publish the wallet's encryption key on the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := unlock()
			if err != nil {
				return err
			}
			defer a.Close()

			pub := crypto.PublicKey(a.Wallet.PrivateKey)
			receipt, err := a.Directory.Publish(cmd.Context(), pub)
			if err != nil {
				return err
			}
			fmt.Printf("Key published.\nFingerprint: %s\nBlock: %d\n",
				crypto.Fingerprint(pub), receipt.Block)
			return nil
		},
	}
}
