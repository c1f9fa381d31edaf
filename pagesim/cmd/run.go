package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/pagesim/datarecording"
	"github.com/sarchlab/pagesim/monitoring"
	"github.com/sarchlab/pagesim/replay"
	"github.com/sarchlab/pagesim/tracing"
	"github.com/sarchlab/pagesim/tui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a trace and print every step.",
	Long: "`run` replays the trace, prints the outcome of every reference, " +
		"and ends with the page table and the statistics.",
	Run: func(cmd *cobra.Command, args []string) {
		sim, err := setUpSimulation(cmd)
		if err != nil {
			log.Fatalf("Error setting up the simulation: %v", err)
		}

		err = runSimulation(cmd, sim)
		if err != nil {
			log.Fatalf("Error running the simulation: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.Duration("delay", 0, "Pause between two references.")
	flags.String("db", "",
		"Record every reference into this SQLite file, without the "+
			".sqlite3 extension.")
	flags.String("csv", "",
		"Write every reference into this CSV file, without the .csv "+
			"extension.")
	flags.Bool("monitor", false, "Serve the page table over HTTP.")
	flags.Int("monitor-port", 0,
		"Port of the monitor. A random port is used when 0.")
	flags.Bool("open-browser", false, "Open the monitor in a browser.")
	flags.Bool("quiet", false, "Do not print the individual steps.")
}

func runSimulation(cmd *cobra.Command, sim *simulation) error {
	flags := cmd.Flags()
	c := sim.config

	if flags.Changed("delay") {
		c.Delay, _ = flags.GetDuration("delay")
	}

	if flags.Changed("db") {
		c.RecordDB, _ = flags.GetString("db")
	}

	if flags.Changed("monitor-port") {
		c.MonitorPort, _ = flags.GetInt("monitor-port")
	}

	stats := tracing.NewStatsCounter()
	sim.engine.AcceptHook(stats)

	if quiet, _ := flags.GetBool("quiet"); !quiet {
		logger := log.New(cmd.OutOrStdout(), "", 0)
		sim.engine.AcceptHook(tracing.NewOutcomeLogger(logger))
	}

	recorder := attachRecorder(sim, c.RecordDB)
	if recorder != nil {
		defer recorder.Close()
	}

	if flags.Changed("csv") {
		path, _ := flags.GetString("csv")
		csv := tracing.NewCSVTraceWriter(path)
		csv.Init()
		defer csv.Close()
		sim.engine.AcceptHook(csv)
	}

	replayer := replay.NewReplayer(sim.engine, c.Trace).WithDelay(c.Delay)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	monitorOn, _ := flags.GetBool("monitor")
	if monitorOn {
		err := startMonitor(cmd, replayer, stats, c.MonitorPort)
		if err != nil {
			return err
		}
	}

	err := replayer.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)

	err = tui.RenderTable(out, replayer.Snapshot())
	if err != nil {
		return err
	}

	tui.RenderLRU(out, replayer.Snapshot())
	printStats(cmd, stats.Stats())

	if monitorOn {
		fmt.Fprintln(os.Stderr, "Simulation finished. Press Ctrl-C to exit.")
		<-ctx.Done()
	}

	return nil
}

func attachRecorder(
	sim *simulation,
	path string,
) datarecording.DataRecorder {
	if path == "" {
		return nil
	}

	recorder := datarecording.New(strings.TrimSuffix(path, ".sqlite3"))
	sim.engine.AcceptHook(tracing.NewDBTracer(recorder))

	return recorder
}

func startMonitor(
	cmd *cobra.Command,
	replayer *replay.Replayer,
	stats *tracing.StatsCounter,
	port int,
) error {
	monitor := monitoring.NewMonitor().WithPortNumber(port)
	monitor.RegisterController(replayer)
	monitor.RegisterStatsCounter(stats)
	replayer.AddSink(monitor)

	url, err := monitor.StartServer()
	if err != nil {
		return err
	}

	if open, _ := cmd.Flags().GetBool("open-browser"); open {
		err = monitor.OpenBrowser(url)
		if err != nil {
			log.Printf("Cannot open the browser: %v", err)
		}
	}

	return nil
}

func printStats(cmd *cobra.Command, s tracing.Stats) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "References: %d (%d reads, %d writes)\n",
		s.References, s.Reads, s.Writes)
	fmt.Fprintf(out, "Hits: %d  Faults: %d  Hit ratio: %.2f\n",
		s.Hits, s.Faults, s.HitRatio())
	fmt.Fprintf(out, "Evictions: %d  Write-backs: %d\n",
		s.Evictions, s.WriteBacks)

	if s.UnknownPages > 0 {
		fmt.Fprintf(out, "Unknown pages: %d\n", s.UnknownPages)
	}
}
