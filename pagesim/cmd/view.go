package cmd

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/pagesim/replay"
	"github.com/sarchlab/pagesim/tui"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Replay a trace in a terminal page-table viewer.",
	Long: "`view` shows the page table while the trace is replayed. " +
		"Space pauses and resumes, n steps once, q quits.",
	Run: func(cmd *cobra.Command, args []string) {
		sim, err := setUpSimulation(cmd)
		if err != nil {
			log.Fatalf("Error setting up the simulation: %v", err)
		}

		delay, _ := cmd.Flags().GetDuration("delay")
		if !cmd.Flags().Changed("delay") && sim.config.Delay > 0 {
			delay = sim.config.Delay
		}

		replayer := replay.NewReplayer(sim.engine, sim.config.Trace).
			WithDelay(delay)
		viewer := tui.NewViewer(replayer, sim.config.Capacity)

		err = viewer.Run(context.Background())
		if err != nil {
			log.Fatalf("Error running the viewer: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(viewCmd)
	viewCmd.Flags().Duration("delay", time.Second,
		"Pause between two references.")
}
