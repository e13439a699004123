/*
Copyright © 2025 jesse galley <jesse@jessegalley.net>
*/
package cmd

import (
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jessegalley/fsbench/internal/workload"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available tests",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		listTests(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func listTests(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Test", "Description", "Reports"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, s := range workload.All() {
		table.Append([]string{s.Tag, s.Name, s.Category})
	}
	table.Render()
}
