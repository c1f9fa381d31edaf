// Package cmd provides the command-line interface for pagesim.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pagesim",
	Short: "pagesim replays page reference traces through an LRU page table.",
	Long: `pagesim replays page reference traces through a demand-paged ` +
		`page table that uses LRU replacement. It reports hits, faults, ` +
		`evictions and write-backs, and can record them, serve them over ` +
		`HTTP, or show them in the terminal.`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("env", ".env", "The .env file to read settings from.")
	flags.Int("capacity", 0, "Number of physical frames.")
	flags.String("pages", "",
		"Pages of the address space, such as \"0-4\" or \"0,2,7\". "+
			"Defaults to the pages referenced by the trace.")
	flags.String("trace", "",
		"Reference trace, such as \"2R 2W 0R\".")
	flags.String("trace-file", "",
		"File that holds the reference trace.")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}
