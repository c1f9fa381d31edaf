package pagetable

import (
	"sort"

	"github.com/sarchlab/pagesim/pagetable/internal/lru"
)

// A Snapshot is a copy of the full state of an engine. Entries are ordered by
// page number and Resident lists loaded pages from the most to the least
// recently used.
type Snapshot struct {
	Capacity      int         `json:"capacity"`
	NextFreeFrame int         `json:"next_free_frame"`
	Resident      []int       `json:"resident"`
	Entries       []PageEntry `json:"entries"`
}

// Snapshot copies the current state of the engine.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Capacity:      e.capacity,
		NextFreeFrame: e.nextFreeFrame,
		Resident:      e.lru.Pages(),
		Entries:       make([]PageEntry, 0, len(e.pages)),
	}

	for _, p := range e.pages {
		s.Entries = append(s.Entries, *e.entries[p])
	}

	return s
}

// Entry finds the entry of a page in the snapshot.
func (s Snapshot) Entry(page int) (PageEntry, bool) {
	i := sort.Search(len(s.Entries), func(i int) bool {
		return s.Entries[i].PageNumber >= page
	})

	if i < len(s.Entries) && s.Entries[i].PageNumber == page {
		return s.Entries[i], true
	}

	return PageEntry{}, false
}

// Restore creates an engine that continues from a snapshot. Hooks are not part
// of a snapshot and have to be registered again. The snapshot is rejected with
// ErrInvalidConfiguration if it could not have been produced by an engine.
func Restore(s Snapshot) (*Engine, error) {
	pages := make([]int, 0, len(s.Entries))
	for _, entry := range s.Entries {
		pages = append(pages, entry.PageNumber)
	}

	e, err := NewEngine(pages, s.Capacity)
	if err != nil {
		return nil, err
	}

	if len(e.pages) != len(s.Entries) {
		return nil, invalidConfig("snapshot has duplicated pages")
	}

	err = e.restoreEntries(s)
	if err != nil {
		return nil, err
	}

	err = e.restoreOrder(s)
	if err != nil {
		return nil, err
	}

	return e, nil
}

func (e *Engine) restoreEntries(s Snapshot) error {
	usedFrames := make(map[int]int)

	for _, saved := range s.Entries {
		if saved.Valid {
			if saved.FrameNumber < 0 || saved.FrameNumber >= s.Capacity {
				return invalidConfig("page %d holds frame %d out of range",
					saved.PageNumber, saved.FrameNumber)
			}

			if owner, used := usedFrames[saved.FrameNumber]; used {
				return invalidConfig("pages %d and %d share frame %d",
					owner, saved.PageNumber, saved.FrameNumber)
			}

			usedFrames[saved.FrameNumber] = saved.PageNumber
		} else if saved.FrameNumber != Unmapped || saved.Dirty ||
			saved.Referenced {
			return invalidConfig("invalid page %d carries state",
				saved.PageNumber)
		}

		entry := saved
		e.entries[saved.PageNumber] = &entry
	}

	if len(usedFrames) != s.NextFreeFrame {
		return invalidConfig("%d pages resident but next free frame is %d",
			len(usedFrames), s.NextFreeFrame)
	}

	for frame := 0; frame < s.NextFreeFrame; frame++ {
		if _, used := usedFrames[frame]; !used {
			return invalidConfig("frame %d was handed out but is empty", frame)
		}
	}

	e.nextFreeFrame = s.NextFreeFrame

	return nil
}

func (e *Engine) restoreOrder(s Snapshot) error {
	order := lru.New()

	for i := len(s.Resident) - 1; i >= 0; i-- {
		p := s.Resident[i]

		entry, found := e.entries[p]
		if !found || !entry.Valid {
			return invalidConfig("resident page %d is not loaded", p)
		}

		if order.Contains(p) {
			return invalidConfig("page %d is listed twice as resident", p)
		}

		order.PushFront(p)
	}

	if order.Len() != e.nextFreeFrame {
		return invalidConfig("%d pages in the recency order, %d loaded",
			order.Len(), e.nextFreeFrame)
	}

	e.lru = order

	return nil
}
