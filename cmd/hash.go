package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var hashCmd = &cobra.Command{
	Use:   "hash <Name#TAG>",
	Short: "Print the identity hash used as the storage key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRiotID(args[0])
		if err != nil {
			return err
		}
		fmt.Println(id.Hash())
		return nil
	},
}
