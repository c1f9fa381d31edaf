package pagetable

import "github.com/sarchlab/pagesim/hooking"

// A Builder can build paging engines.
type Builder struct {
	pages    []int
	capacity int
	hooks    []hooking.Hook
}

// MakeBuilder creates a builder with a single frame and no pages.
func MakeBuilder() Builder {
	return Builder{
		capacity: 1,
	}
}

// WithPages sets the pages of the address space.
func (b Builder) WithPages(pages ...int) Builder {
	b.pages = append([]int(nil), pages...)
	return b
}

// WithPageRange declares the pages [0, n) as the address space.
func (b Builder) WithPageRange(n int) Builder {
	b.pages = make([]int, n)
	for i := range b.pages {
		b.pages[i] = i
	}

	return b
}

// WithCapacity sets the number of physical frames.
func (b Builder) WithCapacity(capacity int) Builder {
	b.capacity = capacity
	return b
}

// WithHook registers a hook on the engine being built.
func (b Builder) WithHook(hook hooking.Hook) Builder {
	b.hooks = append(append([]hooking.Hook(nil), b.hooks...), hook)
	return b
}

// Build creates the engine.
func (b Builder) Build() (*Engine, error) {
	e, err := NewEngine(b.pages, b.capacity)
	if err != nil {
		return nil, err
	}

	for _, h := range b.hooks {
		e.AcceptHook(h)
	}

	return e, nil
}
