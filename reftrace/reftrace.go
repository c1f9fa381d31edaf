// Package reftrace reads page reference traces.
//
// A trace is a list of tokens separated by white space or commas. Each token
// is a page number followed by R (read) or W (write), in either case, such as
// "2R 2w, 0R". Everything after a '#' up to the end of the line is ignored.
package reftrace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/sarchlab/pagesim/pagetable"
)

// ErrMalformedToken is wrapped by every parsing error.
var ErrMalformedToken = errors.New("malformed trace token")

// Reference is one step of a trace.
type Reference = pagetable.Reference

// Parse reads a trace from a string.
func Parse(s string) ([]Reference, error) {
	return Read(strings.NewReader(s))
}

// MustParse is like Parse but panics on malformed traces.
func MustParse(s string) []Reference {
	refs, err := Parse(s)
	if err != nil {
		panic(err)
	}

	return refs
}

// Read reads a trace from r.
func Read(r io.Reader) ([]Reference, error) {
	refs := []Reference{}
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}

		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})

		for _, field := range fields {
			ref, err := ParseToken(field)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}

			refs = append(refs, ref)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return refs, nil
}

// ParseToken parses a single token such as "12W".
func ParseToken(token string) (Reference, error) {
	if len(token) < 2 {
		return Reference{}, fmt.Errorf("%w %q", ErrMalformedToken, token)
	}

	var op pagetable.Operation
	switch token[len(token)-1] {
	case 'R', 'r':
		op = pagetable.Read
	case 'W', 'w':
		op = pagetable.Write
	default:
		return Reference{}, fmt.Errorf("%w %q: operation must be R or W",
			ErrMalformedToken, token)
	}

	page, err := strconv.Atoi(token[:len(token)-1])
	if err != nil || page < 0 {
		return Reference{}, fmt.Errorf("%w %q: bad page number",
			ErrMalformedToken, token)
	}

	return Reference{Page: page, Operation: op}, nil
}

// Format renders references back into the trace syntax.
func Format(refs []Reference) string {
	tokens := make([]string, len(refs))
	for i, ref := range refs {
		tokens[i] = Token(ref)
	}

	return strings.Join(tokens, " ")
}

// Token renders one reference, such as "3W".
func Token(ref Reference) string {
	if ref.Operation.IsWrite() {
		return strconv.Itoa(ref.Page) + "W"
	}

	return strconv.Itoa(ref.Page) + "R"
}

// Zip pairs page numbers with write flags. Both lists must have the same
// length.
func Zip(pages []int, writes []bool) ([]Reference, error) {
	if len(pages) != len(writes) {
		return nil, fmt.Errorf("%d pages but %d operations",
			len(pages), len(writes))
	}

	refs := make([]Reference, len(pages))
	for i := range pages {
		refs[i] = Reference{
			Page:      pages[i],
			Operation: pagetable.OperationOf(writes[i]),
		}
	}

	return refs, nil
}

// DistinctPages returns the pages named by a trace in ascending order.
func DistinctPages(refs []Reference) []int {
	seen := make(map[int]bool)
	pages := []int{}

	for _, ref := range refs {
		if seen[ref.Page] {
			continue
		}

		seen[ref.Page] = true
		pages = append(pages, ref.Page)
	}

	sort.Ints(pages)

	return pages
}

// ParsePages parses a list of page numbers such as "0,1,2" or "0-4,7".
func ParsePages(s string) ([]int, error) {
	pages := []int{}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("bad page %q", part)
		}

		last := first
		if isRange {
			last, err = strconv.Atoi(strings.TrimSpace(hi))
			if err != nil || last < first {
				return nil, fmt.Errorf("bad page range %q", part)
			}
		}

		for p := first; p <= last; p++ {
			pages = append(pages, p)
		}
	}

	return pages, nil
}
