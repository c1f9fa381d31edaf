// Package config loads the simulator settings from a .env file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/sarchlab/pagesim/reftrace"
)

// Names of the environment variables read by Load.
const (
	EnvCapacity    = "PAGESIM_CAPACITY"
	EnvPages       = "PAGESIM_PAGES"
	EnvTrace       = "PAGESIM_TRACE"
	EnvDelay       = "PAGESIM_DELAY"
	EnvMonitorPort = "PAGESIM_MONITOR_PORT"
	EnvRecordDB    = "PAGESIM_RECORD_DB"
)

// DefaultCapacity is the number of physical frames used when nothing else is
// configured.
const DefaultCapacity = 3

// DefaultTrace is the reference trace used when nothing else is configured.
const DefaultTrace = "2R 2W 0R 2R 3R 4W 0R 3W 2R 1R"

// Config holds everything needed to set up a simulation.
type Config struct {
	Capacity    int
	Pages       []int
	Trace       []reftrace.Reference
	Delay       time.Duration
	MonitorPort int
	RecordDB    string
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	trace := reftrace.MustParse(DefaultTrace)

	return Config{
		Capacity: DefaultCapacity,
		Pages:    reftrace.DistinctPages(trace),
		Trace:    trace,
	}
}

// Load reads envFile, if it exists, into the environment and then builds the
// configuration from the environment. Variables that are already set take
// precedence over the file. An empty envFile skips the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	return FromEnv()
}

// FromEnv builds the configuration from the environment only.
func FromEnv() (Config, error) {
	c := Default()

	var err error

	if c.Capacity, err = intVar(EnvCapacity, c.Capacity); err != nil {
		return Config{}, err
	}

	if c.Capacity < 1 {
		return Config{}, fmt.Errorf(
			"%s must be at least 1, got %d", EnvCapacity, c.Capacity)
	}

	if v, ok := os.LookupEnv(EnvTrace); ok {
		c.Trace, err = reftrace.Parse(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvTrace, err)
		}

		c.Pages = reftrace.DistinctPages(c.Trace)
	}

	if v, ok := os.LookupEnv(EnvPages); ok {
		c.Pages, err = reftrace.ParsePages(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvPages, err)
		}
	}

	if v, ok := os.LookupEnv(EnvDelay); ok {
		c.Delay, err = time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvDelay, err)
		}

		if c.Delay < 0 {
			return Config{}, fmt.Errorf("%s must not be negative", EnvDelay)
		}
	}

	if c.MonitorPort, err = intVar(EnvMonitorPort, 0); err != nil {
		return Config{}, err
	}

	c.RecordDB = os.Getenv(EnvRecordDB)

	return c, nil
}

func intVar(name string, def int) (int, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}

	return n, nil
}
