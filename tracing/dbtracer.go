package tracing

import (
	"context"

	"github.com/sarchlab/pagesim/datarecording"
	"github.com/sarchlab/pagesim/hooking"
)

// ReferenceTable is the table that a DBTracer writes into.
const ReferenceTable = "page_references"

// A DBTracer is a hook that records every reference into a data recorder.
type DBTracer struct {
	recorder datarecording.DataRecorder
	step     int
}

// NewDBTracer creates a DBTracer and the table it writes into.
func NewDBTracer(recorder datarecording.DataRecorder) *DBTracer {
	recorder.CreateTable(ReferenceTable, Record{})

	return &DBTracer{recorder: recorder}
}

// Func records the reference described by the hook context.
func (t *DBTracer) Func(ctx hooking.HookCtx) {
	r, ok := recordOf(t.step+1, ctx)
	if !ok {
		return
	}

	t.step++
	t.recorder.InsertData(ReferenceTable, r)
}

// LoadRecords reads back the references written by a DBTracer, in step order.
func LoadRecords(
	ctx context.Context,
	reader datarecording.DataReader,
) ([]Record, error) {
	reader.MapTable(ReferenceTable, Record{})

	results, _, err := reader.Query(ctx, ReferenceTable,
		datarecording.QueryParams{OrderBy: "Step"})
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(results))
	for _, r := range results {
		records = append(records, *r.(*Record))
	}

	return records, nil
}

// Summarize computes the statistics of recorded references.
func Summarize(records []Record) Stats {
	s := Stats{}

	for _, r := range records {
		s.References++

		switch r.Operation {
		case "WRITE":
			s.Writes++
		default:
			s.Reads++
		}

		switch r.Kind {
		case "HIT":
			s.Hits++
		case "FAULT":
			s.Faults++
			if r.VictimPage >= 0 {
				s.Evictions++
			}
			if r.WriteBack {
				s.WriteBacks++
			}
		default:
			s.UnknownPages++
		}
	}

	return s
}
