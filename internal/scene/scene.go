// Package scene sequences the title, play and ending screens.
package scene

import (
	"log/slog"
	"sync"
	"time"

	"github.com/moorebrett0/hatchling/internal/pet"
)

// Scene is one screen of the game.
type Scene int

const (
	Open Scene = iota
	Main
	End
)

func (s Scene) String() string {
	switch s {
	case Open:
		return "open"
	case Main:
		return "main"
	case End:
		return "end"
	default:
		return "unknown"
	}
}

// Director moves between scenes. Every switch plays a transition of the
// configured delay before the new scene becomes current; requests made while
// a transition is running are ignored.
type Director struct {
	mu       sync.Mutex
	current  Scene
	delay    time.Duration
	pending  *time.Timer
	ended    bool
	onChange func(from, to Scene)
}

// NewDirector starts in Open. onChange may be nil.
func NewDirector(delay time.Duration, onChange func(from, to Scene)) *Director {
	return &Director{delay: delay, onChange: onChange}
}

// Current returns the active scene.
func (d *Director) Current() Scene {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Start leaves the title screen.
func (d *Director) Start() bool {
	return d.request(Open, Main)
}

// Restart returns from the ending to the title screen.
func (d *Director) Restart() bool {
	if !d.request(End, Open) {
		return false
	}
	d.mu.Lock()
	d.ended = false
	d.mu.Unlock()
	return true
}

// Notify switches to End on the final evolution, once, and only from Main.
// A restarted pet brings the ending back to Open.
func (d *Director) Notify(n pet.Notification) {
	switch n.Kind {
	case pet.KindEvolutionFinal:
	case pet.KindRestarted:
		if !d.Restart() {
			slog.Debug("scene: restart outside the ending, staying", "scene", d.Current())
		}
		return
	default:
		return
	}

	d.mu.Lock()
	if d.ended {
		d.mu.Unlock()
		return
	}
	if cur := d.current; cur != Main {
		d.mu.Unlock()
		slog.Debug("scene: final evolution outside main scene, staying", "scene", cur)
		return
	}
	d.ended = true
	d.mu.Unlock()

	d.request(Main, End)
}

func (d *Director) request(from, to Scene) bool {
	d.mu.Lock()
	if d.current != from || d.pending != nil {
		d.mu.Unlock()
		return false
	}

	slog.Debug("scene: transition", "from", from, "to", to, "delay", d.delay)
	if d.delay <= 0 {
		d.current = to
		d.mu.Unlock()
		d.changed(from, to)
		return true
	}

	d.pending = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.pending == nil {
			// cancelled by Close
			d.mu.Unlock()
			return
		}
		d.pending = nil
		d.current = to
		d.mu.Unlock()
		d.changed(from, to)
	})
	d.mu.Unlock()
	return true
}

func (d *Director) changed(from, to Scene) {
	if d.onChange != nil {
		d.onChange(from, to)
	}
}

// Close cancels a transition in flight.
func (d *Director) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}
