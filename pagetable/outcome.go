package pagetable

import "fmt"

// Operation is the kind of a memory access.
type Operation int

// The operations a reference can perform.
const (
	Read Operation = iota
	Write
)

// OperationOf converts a write flag into an Operation.
func OperationOf(isWrite bool) Operation {
	if isWrite {
		return Write
	}

	return Read
}

// IsWrite tells if the operation modifies the page.
func (o Operation) IsWrite() bool {
	return o == Write
}

func (o Operation) String() string {
	if o == Write {
		return "WRITE"
	}

	return "READ"
}

// OutcomeKind tells whether a reference hit or faulted.
type OutcomeKind int

// The kinds of outcomes.
const (
	Hit OutcomeKind = iota
	Fault
)

func (k OutcomeKind) String() string {
	if k == Fault {
		return "FAULT"
	}

	return "HIT"
}

// Eviction describes the page that had to leave its frame to make room for a
// faulting page.
type Eviction struct {
	VictimPage  int  `json:"victim_page"`
	VictimFrame int  `json:"victim_frame"`
	WasDirty    bool `json:"was_dirty"`
}

// Outcome is the result of referencing a page. Eviction is only set on a
// fault that found no free frame.
type Outcome struct {
	Kind      OutcomeKind `json:"kind"`
	Page      int         `json:"page"`
	Frame     int         `json:"frame"`
	Operation Operation   `json:"operation"`
	Eviction  *Eviction   `json:"eviction,omitempty"`
}

// IsHit tells if the page was already resident.
func (o Outcome) IsHit() bool {
	return o.Kind == Hit
}

// IsFault tells if the page had to be loaded.
func (o Outcome) IsFault() bool {
	return o.Kind == Fault
}

// WriteBackRequired tells if the evicted page has to be written back before
// its frame is reused.
func (o Outcome) WriteBackRequired() bool {
	return o.Eviction != nil && o.Eviction.WasDirty
}

func (o Outcome) String() string {
	if o.Kind == Hit {
		return fmt.Sprintf("HIT: Page %d accessed (Frame %d). Operation: %s",
			o.Page, o.Frame, o.Operation)
	}

	evicted := ""
	if o.Eviction != nil {
		evicted = o.Eviction.String() + " | "
	}

	return fmt.Sprintf("FAULT: %sLOADED Page %d into Frame %d. Operation: %s",
		evicted, o.Page, o.Frame, o.Operation)
}

func (e Eviction) String() string {
	if e.WasDirty {
		return fmt.Sprintf(
			"EVICTED (Dirty) Page %d (Frame %d). Write-back required.",
			e.VictimPage, e.VictimFrame)
	}

	return fmt.Sprintf("EVICTED (Clean) Page %d (Frame %d).",
		e.VictimPage, e.VictimFrame)
}

// MarshalText renders the operation by name.
func (o Operation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// MarshalText renders the kind by name.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses READ or WRITE.
func (o *Operation) UnmarshalText(text []byte) error {
	switch string(text) {
	case "READ":
		*o = Read
	case "WRITE":
		*o = Write
	default:
		return fmt.Errorf("unknown operation %q", text)
	}

	return nil
}

// UnmarshalText parses HIT or FAULT.
func (k *OutcomeKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "HIT":
		*k = Hit
	case "FAULT":
		*k = Fault
	default:
		return fmt.Errorf("unknown outcome kind %q", text)
	}

	return nil
}
