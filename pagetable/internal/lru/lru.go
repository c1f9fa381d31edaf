// Package lru keeps the recency order of resident pages.
package lru

import "container/list"

// List orders pages from most recently used (front) to least recently used
// (back). A side index maps each page to its list element so that moving a
// page to the front and dropping the tail are both O(1).
type List struct {
	order *list.List
	index map[int]*list.Element
}

// New creates an empty List.
func New() *List {
	return &List{
		order: list.New(),
		index: make(map[int]*list.Element),
	}
}

// Len returns the number of pages in the list.
func (l *List) Len() int {
	return l.order.Len()
}

// Contains tells if the page is in the list.
func (l *List) Contains(page int) bool {
	_, found := l.index[page]
	return found
}

// PushFront inserts a page as the most recently used one. The page must not
// already be in the list.
func (l *List) PushFront(page int) {
	l.pageMustNotExist(page)

	elem := l.order.PushFront(page)
	l.index[page] = elem
}

// Touch moves an existing page to the front.
func (l *List) Touch(page int) {
	l.pageMustExist(page)

	l.order.MoveToFront(l.index[page])
}

// Remove drops a page from the list. It returns false if the page is not in
// the list.
func (l *List) Remove(page int) bool {
	elem, found := l.index[page]
	if !found {
		return false
	}

	l.order.Remove(elem)
	delete(l.index, page)

	return true
}

// RemoveTail drops and returns the least recently used page.
func (l *List) RemoveTail() (int, bool) {
	elem := l.order.Back()
	if elem == nil {
		return 0, false
	}

	page := l.order.Remove(elem).(int)
	delete(l.index, page)

	return page, true
}

// Front returns the most recently used page.
func (l *List) Front() (int, bool) {
	elem := l.order.Front()
	if elem == nil {
		return 0, false
	}

	return elem.Value.(int), true
}

// Pages lists the pages from most to least recently used.
func (l *List) Pages() []int {
	pages := make([]int, 0, l.order.Len())
	for e := l.order.Front(); e != nil; e = e.Next() {
		pages = append(pages, e.Value.(int))
	}

	return pages
}

func (l *List) pageMustExist(page int) {
	if _, found := l.index[page]; !found {
		panic("page is not in the lru list")
	}
}

func (l *List) pageMustNotExist(page int) {
	if _, found := l.index[page]; found {
		panic("page is already in the lru list")
	}
}
