package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/barcode-sync/internal/match"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the matching profiles",
	Run: func(cmd *cobra.Command, args []string) {
		names := match.Names()
		rows := make([][]string, 0, len(names))
		for _, name := range names {
			rows = append(rows, []string{name, match.Describe(name)})
		}
		fmt.Println(renderTable([]string{"Profile", "Description"}, rows, nil))
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}
