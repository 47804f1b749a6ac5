package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a wallet and store it encrypted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			w, err := wire.Identity.Create(passphrase)
			if err != nil {
				return err
			}
			fmt.Printf("Wallet created.\nAddress: %s\n", w.Address)
			return nil
		},
	}
}
