package tracing

import (
	"log"

	"github.com/sarchlab/pagesim/hooking"
	"github.com/sarchlab/pagesim/pagetable"
)

// OutcomeLogger is a hook that prints one line per reference.
type OutcomeLogger struct {
	*log.Logger

	step int
}

// NewOutcomeLogger returns a new OutcomeLogger which will write in to the
// logger.
func NewOutcomeLogger(logger *log.Logger) *OutcomeLogger {
	return &OutcomeLogger{Logger: logger}
}

// Func writes the outcome into the logger.
func (h *OutcomeLogger) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case pagetable.HookPosReference:
		h.step++
		h.Printf("Step %d: %s", h.step, ctx.Detail.(pagetable.Outcome))
	case pagetable.HookPosUnknownPage:
		h.step++
		h.Printf("Step %d: ERROR: %s", h.step, ctx.Detail)
	}
}
