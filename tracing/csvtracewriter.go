package tracing

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/pagesim/hooking"
	"github.com/sarchlab/pagesim/pagetable"
)

// Record is one row of a reference trace. Victim fields are -1 when nothing
// was evicted.
type Record struct {
	Step        int
	Page        int
	Operation   string
	Kind        string
	Frame       int
	VictimPage  int
	VictimFrame int
	WriteBack   bool
	Error       string
}

const csvHeader = "Step, Page, Operation, Kind, Frame, " +
	"VictimPage, VictimFrame, WriteBack, Error\n"

// recordOf turns a hook context into a record. It returns false for hook
// positions that do not describe a reference.
func recordOf(step int, ctx hooking.HookCtx) (Record, bool) {
	ref, _ := ctx.Item.(pagetable.Reference)

	r := Record{
		Step:        step,
		Page:        ref.Page,
		Operation:   ref.Operation.String(),
		Frame:       pagetable.Unmapped,
		VictimPage:  -1,
		VictimFrame: -1,
	}

	switch ctx.Pos {
	case pagetable.HookPosReference:
		outcome := ctx.Detail.(pagetable.Outcome)
		r.Kind = outcome.Kind.String()
		r.Frame = outcome.Frame

		if outcome.Eviction != nil {
			r.VictimPage = outcome.Eviction.VictimPage
			r.VictimFrame = outcome.Eviction.VictimFrame
			r.WriteBack = outcome.Eviction.WasDirty
		}
	case pagetable.HookPosUnknownPage:
		r.Kind = "ERROR"
		r.Error = fmt.Sprint(ctx.Detail)
	default:
		return Record{}, false
	}

	return r, true
}

// CSVTraceWriter is a hook that stores every reference into a CSV file.
type CSVTraceWriter struct {
	path string
	w    io.Writer
	file *os.File

	step       int
	records    []Record
	bufferSize int
}

// NewCSVTraceWriter creates a CSVTraceWriter that writes into path + ".csv".
// A unique name is generated when path is empty.
func NewCSVTraceWriter(path string) *CSVTraceWriter {
	return &CSVTraceWriter{
		path:       path,
		bufferSize: 1000,
	}
}

// NewCSVTraceWriterTo creates a CSVTraceWriter that writes into w. The header
// is written immediately.
func NewCSVTraceWriterTo(w io.Writer) *CSVTraceWriter {
	t := &CSVTraceWriter{
		w:          w,
		bufferSize: 1000,
	}

	fmt.Fprint(w, csvHeader)

	return t
}

// Init creates the csv file. An existing file is never overwritten. The
// buffered records are flushed and the file is closed at exit.
func (t *CSVTraceWriter) Init() {
	if t.path == "" {
		t.path = "pagesim_trace_" + xid.New().String()
	}

	filename := t.path + ".csv"
	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}

	t.file = file
	t.w = file

	fmt.Fprint(file, csvHeader)

	atexit.Register(func() {
		err := t.Close()
		if err != nil {
			panic(err)
		}
	})
}

// Filename returns the file written by Init.
func (t *CSVTraceWriter) Filename() string {
	if t.file == nil {
		return ""
	}

	return t.file.Name()
}

// Func buffers the reference described by the hook context.
func (t *CSVTraceWriter) Func(ctx hooking.HookCtx) {
	r, ok := recordOf(t.step+1, ctx)
	if !ok {
		return
	}

	t.step++
	t.records = append(t.records, r)

	if len(t.records) >= t.bufferSize {
		t.Flush()
	}
}

// Flush writes the buffered records.
func (t *CSVTraceWriter) Flush() {
	for _, r := range t.records {
		fmt.Fprintf(t.w, "%d, %d, %s, %s, %d, %d, %d, %t, %s\n",
			r.Step,
			r.Page,
			r.Operation,
			r.Kind,
			r.Frame,
			r.VictimPage,
			r.VictimFrame,
			r.WriteBack,
			r.Error,
		)
	}

	t.records = nil
}

// Close flushes the records and closes the file, if the writer owns one.
func (t *CSVTraceWriter) Close() error {
	t.Flush()

	if t.file == nil {
		return nil
	}

	file := t.file
	t.file = nil

	return file.Close()
}
