package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/pagesim/datarecording"
	"github.com/sarchlab/pagesim/tracing"
)

var reportCmd = &cobra.Command{
	Use:   "report [recording.sqlite3]",
	Short: "Summarize a recording made with `run --db`.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := report(cmd, args[0])
		if err != nil {
			log.Fatalf("Error reading the recording: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().Bool("steps", false, "Also print every recorded step.")
}

func report(cmd *cobra.Command, path string) error {
	_, err := os.Stat(path)
	if err != nil {
		return err
	}

	reader, err := datarecording.NewReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	records, err := tracing.LoadRecords(context.Background(), reader)
	if err != nil {
		return err
	}

	if steps, _ := cmd.Flags().GetBool("steps"); steps {
		for _, r := range records {
			printRecord(cmd, r)
		}
	}

	printStats(cmd, tracing.Summarize(records))

	return nil
}

func printRecord(cmd *cobra.Command, r tracing.Record) {
	out := cmd.OutOrStdout()

	switch {
	case r.Error != "":
		fmt.Fprintf(out, "Step %d: ERROR: %s\n", r.Step, r.Error)
	case r.VictimPage >= 0:
		fmt.Fprintf(out, "Step %d: %s page %d (%s) -> frame %d, "+
			"evicted page %d (write-back: %t)\n",
			r.Step, r.Kind, r.Page, r.Operation, r.Frame,
			r.VictimPage, r.WriteBack)
	default:
		fmt.Fprintf(out, "Step %d: %s page %d (%s) -> frame %d\n",
			r.Step, r.Kind, r.Page, r.Operation, r.Frame)
	}
}
