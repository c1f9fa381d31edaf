// Package pagetable simulates a demand-paged page table with a fixed pool of
// physical frames and least-recently-used replacement.
package pagetable

// Unmapped is the frame number of a page that does not occupy a frame.
const Unmapped = -1

// A PageEntry is the page table entry of one page of the address space.
type PageEntry struct {
	PageNumber  int  `json:"page_number"`
	FrameNumber int  `json:"frame_number"`
	Valid       bool `json:"valid"`
	Dirty       bool `json:"dirty"`
	Referenced  bool `json:"referenced"`
}

// NewPageEntry creates an entry that is not loaded into any frame.
func NewPageEntry(pageNumber int) *PageEntry {
	return &PageEntry{
		PageNumber:  pageNumber,
		FrameNumber: Unmapped,
	}
}

// Load binds the page to a frame. The dirty bit is left as it is.
func (e *PageEntry) Load(frame int) {
	e.FrameNumber = frame
	e.Valid = true
	e.Referenced = true
}

// Evict releases the frame and clears all the status bits.
func (e *PageEntry) Evict() {
	e.FrameNumber = Unmapped
	e.Valid = false
	e.Dirty = false
	e.Referenced = false
}

// Access marks the page as referenced, and as dirty if it is a write. Nothing
// happens if the page is not loaded.
func (e *PageEntry) Access(isWrite bool) {
	if !e.Valid {
		return
	}

	e.Referenced = true
	if isWrite {
		e.Dirty = true
	}
}
