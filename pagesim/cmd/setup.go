package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/pagesim/config"
	"github.com/sarchlab/pagesim/pagetable"
	"github.com/sarchlab/pagesim/reftrace"
)

// simulation is what every command needs to start replaying.
type simulation struct {
	config config.Config
	engine *pagetable.Engine
}

// loadConfig reads the configuration and lets the flags that the user set
// override it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()

	envFile, _ := flags.GetString("env")
	c, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, err
	}

	if flags.Changed("capacity") {
		c.Capacity, _ = flags.GetInt("capacity")
	}

	traceChanged := false

	if flags.Changed("trace") {
		trace, _ := flags.GetString("trace")
		c.Trace, err = reftrace.Parse(trace)
		if err != nil {
			return config.Config{}, fmt.Errorf("--trace: %w", err)
		}
		traceChanged = true
	}

	if flags.Changed("trace-file") {
		path, _ := flags.GetString("trace-file")
		c.Trace, err = readTraceFile(path)
		if err != nil {
			return config.Config{}, err
		}
		traceChanged = true
	}

	switch {
	case flags.Changed("pages"):
		pages, _ := flags.GetString("pages")
		c.Pages, err = reftrace.ParsePages(pages)
		if err != nil {
			return config.Config{}, fmt.Errorf("--pages: %w", err)
		}
	case traceChanged:
		c.Pages = reftrace.DistinctPages(c.Trace)
	}

	return c, nil
}

func readTraceFile(path string) ([]reftrace.Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	refs, err := reftrace.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return refs, nil
}

func setUpSimulation(cmd *cobra.Command) (*simulation, error) {
	c, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	engine, err := pagetable.MakeBuilder().
		WithPages(c.Pages...).
		WithCapacity(c.Capacity).
		Build()
	if err != nil {
		return nil, err
	}

	return &simulation{config: c, engine: engine}, nil
}
