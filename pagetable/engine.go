package pagetable

import (
	"sort"

	"github.com/sarchlab/pagesim/hooking"
	"github.com/sarchlab/pagesim/pagetable/internal/lru"
)

// HookPosReference is triggered after every successful reference. The item is
// the Reference and the detail is the Outcome.
var HookPosReference = &hooking.HookPos{Name: "Reference"}

// HookPosEviction is triggered when a page is evicted, before the faulting
// page is loaded. The item is the Reference and the detail is the Eviction.
var HookPosEviction = &hooking.HookPos{Name: "Eviction"}

// HookPosUnknownPage is triggered when a reference names a page outside of the
// address space. The item is the Reference and the detail is the error.
var HookPosUnknownPage = &hooking.HookPos{Name: "UnknownPage"}

// Reference is a single access request made to the engine.
type Reference struct {
	Page      int       `json:"page"`
	Operation Operation `json:"operation"`
}

// An Engine owns the page table of one address space and the frames it can
// use. It is not safe for concurrent use.
type Engine struct {
	hooking.HookableBase

	entries       map[int]*PageEntry
	pages         []int
	lru           *lru.List
	capacity      int
	nextFreeFrame int
}

// NewEngine creates an engine for the given pages with capacity frames. All
// the pages start unloaded. Duplicated page numbers are merged.
func NewEngine(pages []int, capacity int) (*Engine, error) {
	if capacity < 1 {
		return nil, invalidConfig("capacity must be at least 1, got %d",
			capacity)
	}

	e := &Engine{
		entries:  make(map[int]*PageEntry, len(pages)),
		lru:      lru.New(),
		capacity: capacity,
	}

	for _, p := range pages {
		if p < 0 {
			return nil, invalidConfig("page number %d is negative", p)
		}

		if _, found := e.entries[p]; found {
			continue
		}

		e.entries[p] = NewPageEntry(p)
		e.pages = append(e.pages, p)
	}

	sort.Ints(e.pages)

	return e, nil
}

// Capacity returns the number of physical frames.
func (e *Engine) Capacity() int {
	return e.capacity
}

// Pages returns the page numbers of the address space in ascending order.
func (e *Engine) Pages() []int {
	pages := make([]int, len(e.pages))
	copy(pages, e.pages)

	return pages
}

// Resident returns the loaded pages from the most to the least recently used.
func (e *Engine) Resident() []int {
	return e.lru.Pages()
}

// Entry returns a copy of the entry of a page.
func (e *Engine) Entry(page int) (PageEntry, bool) {
	entry, found := e.entries[page]
	if !found {
		return PageEntry{}, false
	}

	return *entry, true
}

// Reference performs a read or a write on a page. A reference to a page that
// is not part of the address space returns an *UnknownPageError and leaves the
// engine untouched.
func (e *Engine) Reference(page int, isWrite bool) (Outcome, error) {
	ref := Reference{Page: page, Operation: OperationOf(isWrite)}

	entry, found := e.entries[page]
	if !found {
		err := &UnknownPageError{Page: page}
		e.invoke(HookPosUnknownPage, ref, err)

		return Outcome{}, err
	}

	var outcome Outcome
	if entry.Valid {
		outcome = e.hit(entry, ref)
	} else {
		outcome = e.fault(entry, ref)
	}

	e.invoke(HookPosReference, ref, outcome)

	return outcome, nil
}

func (e *Engine) hit(entry *PageEntry, ref Reference) Outcome {
	entry.Access(ref.Operation.IsWrite())
	e.lru.Touch(entry.PageNumber)

	return Outcome{
		Kind:      Hit,
		Page:      entry.PageNumber,
		Frame:     entry.FrameNumber,
		Operation: ref.Operation,
	}
}

func (e *Engine) fault(entry *PageEntry, ref Reference) Outcome {
	var (
		frame    int
		eviction *Eviction
	)

	if e.lru.Len() < e.capacity {
		frame = e.allocateFreeFrame()
	} else {
		eviction = e.evictLRU()
		frame = eviction.VictimFrame
		e.invoke(HookPosEviction, ref, *eviction)
	}

	e.lru.PushFront(entry.PageNumber)
	entry.Load(frame)
	if ref.Operation.IsWrite() {
		entry.Access(true)
	}

	return Outcome{
		Kind:      Fault,
		Page:      entry.PageNumber,
		Frame:     frame,
		Operation: ref.Operation,
		Eviction:  eviction,
	}
}

func (e *Engine) allocateFreeFrame() int {
	if e.nextFreeFrame >= e.capacity {
		panic(inconsistency(
			"%d pages resident but all %d frames were handed out",
			e.lru.Len(), e.capacity))
	}

	frame := e.nextFreeFrame
	e.nextFreeFrame++

	return frame
}

func (e *Engine) evictLRU() *Eviction {
	victimPage, ok := e.lru.RemoveTail()
	if !ok {
		panic(inconsistency("no resident page to evict with %d frames",
			e.capacity))
	}

	victim, found := e.entries[victimPage]
	if !found || !victim.Valid {
		panic(inconsistency("evicted page %d is not resident", victimPage))
	}

	eviction := &Eviction{
		VictimPage:  victimPage,
		VictimFrame: victim.FrameNumber,
		WasDirty:    victim.Dirty,
	}

	victim.Evict()

	return eviction
}

func (e *Engine) invoke(pos *hooking.HookPos, item, detail any) {
	if e.NumHooks() == 0 {
		return
	}

	e.InvokeHook(hooking.HookCtx{
		Domain: e,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
