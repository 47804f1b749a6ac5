package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	readAsJSON bool
	readOut    string
)

// read <peer>: print the merged conversation, oldest first. A scan that
// was interrupted still prints what it gathered before failing.
func readCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <peer>",
		Short: "Show the merged conversation with a peer",
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

			entries, listErr := a.Conversations.List(cmd.Context(), peer)

			if readAsJSON || readOut != "" {
				blob, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return err
				}
				if readOut != "" {
					if err := os.WriteFile(readOut, append(blob, '\n'), 0o600); err != nil {
						return err
					}
					fmt.Printf("Wrote %d entries to %s\n", len(entries), readOut)
				} else {
					fmt.Println(string(blob))
				}
				return listErr
			}

			for _, e := range entries {
				who := "them"
				if e.From == a.Wallet.Address {
					who = "me"
				}
				ts := time.Unix(e.CreatedAt, 0).UTC().Format("2006-01-02 15:04:05")
				fmt.Printf("%s  %-4s %-8s %s\n", ts, who, e.Kind, e.Display())
			}
			return listErr
		},
	}
	cmd.Flags().BoolVar(&readAsJSON, "json", false, "print entries as JSON")
	cmd.Flags().StringVar(&readOut, "out", "", "write JSON entries to a file")
	return cmd
}
