package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"chainmail/internal/app"
	"chainmail/internal/domain"
)

var (
	home       string
	configPath string
	passphrase string
	verbose    bool

	wire *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:   "chainmail",
		Short: "Confidential two-party messaging over a public ledger",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logrus.SetLevel(logrus.WarnLevel)
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}

			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".chainmail")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			cfg, err := app.LoadConfig(home, configPath)
			if err != nil {
				return err
			}
			wire, err = app.NewWire(cfg)
			return err
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "state dir (default ~/.chainmail)")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <home>/config.toml)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "wallet passphrase")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(initCmd(), addressCmd(), publishKeyCmd(), contactsCmd(),
		sessionCmd(), expireSessionCmd(), sendCmd(), readCmd())
	return root.Execute()
}

// unlock builds the full app for commands that touch the ledger.
// Callers must Close the returned app.
func unlock() (*app.App, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase required (-p)")
	}
	return wire.Unlock(passphrase)
}

// peerAddress accepts a raw ledger address or a contact alias.
func peerAddress(arg string) (domain.Address, error) {
	if addr, err := domain.ParseAddress(arg); err == nil {
		return addr, nil
	}
	addr, ok, err := wire.Contacts.ResolveContact(arg)
	if err != nil {
		return domain.Address{}, err
	}
	if !ok {
		return domain.Address{}, fmt.Errorf("%q is neither an address nor a known contact", arg)
	}
	return addr, nil
}
