// Command pagesim replays page reference traces through an LRU paging engine.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/sarchlab/pagesim/pagesim/cmd"
)

func main() {
	cmd.Execute()
	atexit.Exit(0)
}
