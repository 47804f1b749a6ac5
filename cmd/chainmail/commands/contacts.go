package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"chainmail/internal/domain"
)

func contactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage the local alias book",
	}
	cmd.AddCommand(contactsAddCmd(), contactsLsCmd())
	return cmd
}

func contactsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <alias> <address>",
		Short: "Save an alias for an address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := domain.ParseAddress(args[1])
			if err != nil {
				return err
			}
			if err := wire.Contacts.SaveContact(args[0], addr); err != nil {
				return err
			}
			fmt.Printf("%s -> %s\n", args[0], addr)
			return nil
		},
	}
}

func contactsLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List saved contacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			contacts, err := wire.Contacts.ListContacts()
			if err != nil {
				return err
			}
			aliases := make([]string, 0, len(contacts))
			for alias := range contacts {
				aliases = append(aliases, alias)
			}
			sort.Strings(aliases)
			for _, alias := range aliases {
				fmt.Printf("%-20s %s\n", alias, contacts[alias])
			}
			return nil
		},
	}
}
