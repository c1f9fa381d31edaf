// Package tracing provides hooks that observe a paging engine and turn what it
// does into logs, statistics, and trace files.
package tracing

import (
	"errors"
	"sync"

	"github.com/sarchlab/pagesim/hooking"
	"github.com/sarchlab/pagesim/pagetable"
)

// Stats summarizes the references seen by a StatsCounter.
type Stats struct {
	References   uint64 `json:"references"`
	Reads        uint64 `json:"reads"`
	Writes       uint64 `json:"writes"`
	Hits         uint64 `json:"hits"`
	Faults       uint64 `json:"faults"`
	Evictions    uint64 `json:"evictions"`
	WriteBacks   uint64 `json:"write_backs"`
	UnknownPages uint64 `json:"unknown_pages"`
}

// HitRatio returns the fraction of successful references that hit.
func (s Stats) HitRatio() float64 {
	served := s.Hits + s.Faults
	if served == 0 {
		return 0
	}

	return float64(s.Hits) / float64(served)
}

// A StatsCounter is a hook that counts hits, faults, and evictions. It can be
// read while the engine is running.
type StatsCounter struct {
	lock  sync.Mutex
	stats Stats
}

// NewStatsCounter creates a StatsCounter with all the counters at zero.
func NewStatsCounter() *StatsCounter {
	return &StatsCounter{}
}

// Func updates the counters.
func (c *StatsCounter) Func(ctx hooking.HookCtx) {
	c.lock.Lock()
	defer c.lock.Unlock()

	switch ctx.Pos {
	case pagetable.HookPosReference:
		outcome := ctx.Detail.(pagetable.Outcome)
		c.countOutcome(outcome)
	case pagetable.HookPosUnknownPage:
		err, _ := ctx.Detail.(error)
		if errors.Is(err, pagetable.ErrUnknownPage) {
			ref := ctx.Item.(pagetable.Reference)
			c.countOperation(ref.Operation)
			c.stats.UnknownPages++
		}
	}
}

func (c *StatsCounter) countOperation(op pagetable.Operation) {
	c.stats.References++

	if op.IsWrite() {
		c.stats.Writes++
	} else {
		c.stats.Reads++
	}
}

func (c *StatsCounter) countOutcome(outcome pagetable.Outcome) {
	c.countOperation(outcome.Operation)

	if outcome.IsHit() {
		c.stats.Hits++
		return
	}

	c.stats.Faults++

	if outcome.Eviction != nil {
		c.stats.Evictions++
	}

	if outcome.WriteBackRequired() {
		c.stats.WriteBacks++
	}
}

// Stats returns a copy of the counters.
func (c *StatsCounter) Stats() Stats {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.stats
}
