package tui

import (
	"context"
	"fmt"
	"sync"

	"github.com/jroimartin/gocui"

	"github.com/sarchlab/pagesim/replay"
)

const (
	tableView  = "pagetable"
	statusView = "status"
)

// Viewer runs a replay inside a terminal UI. Space pauses and resumes, n
// steps once, and q or Ctrl-C quits.
type Viewer struct {
	replayer *replay.Replayer
	title    string

	lock   sync.Mutex
	status string
	g      *gocui.Gui
}

// NewViewer creates a viewer for a replay. The replay should not have been
// started.
func NewViewer(replayer *replay.Replayer, capacity int) *Viewer {
	v := &Viewer{
		replayer: replayer,
		title:    fmt.Sprintf("Visual Page Table (LRU), %d frames", capacity),
		status:   fmt.Sprintf("Simulation waiting. Frames: %d", capacity),
	}

	replayer.AddSink(v)

	return v
}

// Accept records the outcome of the latest step and redraws the screen.
func (v *Viewer) Accept(step replay.Step) {
	v.setStatus(step.String())
}

// Status returns the text of the status line.
func (v *Viewer) Status() string {
	v.lock.Lock()
	defer v.lock.Unlock()

	return v.status
}

func (v *Viewer) setStatus(status string) {
	v.lock.Lock()
	v.status = status
	g := v.g
	v.lock.Unlock()

	if g != nil {
		g.Update(v.draw)
	}
}

// Run shows the UI and replays the trace until it is finished and the user
// quits, or until the context is done.
func (v *Viewer) Run(ctx context.Context) error {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return err
	}
	defer g.Close()

	g.SetManagerFunc(v.layout)

	err = v.bindKeys(g)
	if err != nil {
		return err
	}

	v.lock.Lock()
	v.g = g
	v.lock.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go v.replay(ctx)

	err = g.MainLoop()
	if err != nil && err != gocui.ErrQuit {
		return err
	}

	return nil
}

func (v *Viewer) replay(ctx context.Context) {
	err := v.replayer.Run(ctx)

	switch {
	case err == nil:
		v.setStatus(FinishedMessage)
	case ctx.Err() == nil:
		v.setStatus("Simulation stopped: " + err.Error())
	}
}

func (v *Viewer) bindKeys(g *gocui.Gui) error {
	quit := func(*gocui.Gui, *gocui.View) error { return gocui.ErrQuit }

	bindings := []struct {
		key     interface{}
		handler func(*gocui.Gui, *gocui.View) error
	}{
		{gocui.KeyCtrlC, quit},
		{'q', quit},
		{gocui.KeySpace, v.togglePause},
		{'n', v.stepOnce},
	}

	for _, b := range bindings {
		err := g.SetKeybinding("", b.key, gocui.ModNone, b.handler)
		if err != nil {
			return err
		}
	}

	return nil
}

func (v *Viewer) togglePause(g *gocui.Gui, _ *gocui.View) error {
	if v.replayer.Paused() {
		v.replayer.Continue()
	} else {
		v.replayer.Pause()
	}

	return v.draw(g)
}

func (v *Viewer) stepOnce(g *gocui.Gui, _ *gocui.View) error {
	if _, ok := v.replayer.Step(); !ok {
		v.lock.Lock()
		v.status = FinishedMessage
		v.lock.Unlock()
	}

	return v.draw(g)
}

func (v *Viewer) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	if view, err := g.SetView(tableView, 0, 0, maxX-1, maxY-5); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		view.Title = v.title
	}

	if view, err := g.SetView(statusView, 0, maxY-4, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		view.Title = "Status"
		view.Wrap = true
	}

	return v.draw(g)
}

func (v *Viewer) draw(g *gocui.Gui) error {
	table, err := g.View(tableView)
	if err != nil {
		return err
	}

	status, err := g.View(statusView)
	if err != nil {
		return err
	}

	snapshot := v.replayer.Snapshot()

	table.Clear()
	err = RenderTable(table, snapshot)
	if err != nil {
		return err
	}

	fmt.Fprintln(table)
	RenderLRU(table, snapshot)

	status.Clear()
	fmt.Fprintln(status, v.Status())

	if v.replayer.Paused() {
		fmt.Fprintln(status, "[paused] space: continue  n: step  q: quit")
	} else {
		fmt.Fprintln(status, "space: pause  n: step  q: quit")
	}

	return nil
}
