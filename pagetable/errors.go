package pagetable

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned when an engine cannot be created
	// from the given pages, capacity, or snapshot.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnknownPage matches every UnknownPageError.
	ErrUnknownPage = errors.New("unknown page")

	// ErrInternalInconsistency is the panic value (wrapped) raised when the
	// engine finds its own invariants broken.
	ErrInternalInconsistency = errors.New("internal inconsistency")
)

// UnknownPageError reports a reference to a page that is not part of the
// address space.
type UnknownPageError struct {
	Page int
}

func (e *UnknownPageError) Error() string {
	return fmt.Sprintf(
		"page %d is not part of the process address space", e.Page)
}

// Is makes errors.Is(err, ErrUnknownPage) hold.
func (e *UnknownPageError) Is(target error) bool {
	return target == ErrUnknownPage
}

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration,
		fmt.Sprintf(format, args...))
}

func inconsistency(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInternalInconsistency,
		fmt.Sprintf(format, args...))
}
