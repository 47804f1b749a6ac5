package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"chainmail/internal/crypto"
)

func addressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the wallet address and key fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			w, err := wire.Identity.Unlock(passphrase)
			if err != nil {
				return err
			}
			fmt.Printf("Address: %s\nFingerprint: %s\n",
				w.Address, crypto.Fingerprint(crypto.PublicKey(w.PrivateKey)))
			return nil
		},
	}
}
