package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"
)

// Prober reports on the device link. *serial.Link satisfies it.
type Prober interface {
	Live() bool
	Address() string
}

// Backlog reports the input queue. *queue.Queue satisfies it.
type Backlog interface {
	Len() int
	Dropped() uint64
}

// LinkStatus is a snapshot of the device link.
type LinkStatus struct {
	Address string
	Live    bool // the link is open and the last read did not fail
	Present bool // the device shows up in the system's port list
	Pending int
	Dropped uint64
	Since   time.Time // when Live or Present last changed
}

// Monitor polls the link periodically and stores the status atomically.
type Monitor struct {
	status   atomic.Pointer[LinkStatus]
	interval time.Duration
	address  string
	prober   atomic.Pointer[proberBox]
	backlog  Backlog
	ports    func() ([]string, error)
	onUpdate func(LinkStatus) // called when Live or Present changes
	now      func() time.Time
}

type proberBox struct{ p Prober }

// Options wires the monitor's collaborators. Every field is optional.
type Options struct {
	Prober  Prober
	Backlog Backlog
	Ports   func() ([]string, error) // e.g. serial.Ports
	Clock   func() time.Time
}

// DefaultInterval is used when New is given a non-positive interval.
const DefaultInterval = 2 * time.Second

// New creates a Monitor for the device at address. onUpdate is called
// from the Run goroutine each time the link changes state.
func New(address string, interval time.Duration, opts Options, onUpdate func(LinkStatus)) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	m := &Monitor{
		interval: interval,
		address:  address,
		backlog:  opts.Backlog,
		ports:    opts.Ports,
		onUpdate: onUpdate,
		now:      opts.Clock,
	}
	if opts.Prober != nil {
		m.prober.Store(&proberBox{opts.Prober})
	}
	m.status.Store(&LinkStatus{Address: address})
	return m
}

// SetProber swaps the link being watched, e.g. after a late open.
func (m *Monitor) SetProber(p Prober) {
	m.prober.Store(&proberBox{p})
}

// Status returns the latest status without blocking.
func (m *Monitor) Status() LinkStatus {
	return *m.status.Load()
}

// Run polls until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	// Immediate first read
	m.Refresh()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Refresh()
		}
	}
}

// Refresh probes once and publishes the result.
func (m *Monitor) Refresh() {
	prev := m.Status()
	s := &LinkStatus{
		Address: m.address,
		Live:    m.readLive(),
		Present: m.readPresent(),
		Since:   prev.Since,
	}
	if m.backlog != nil {
		s.Pending = m.backlog.Len()
		s.Dropped = m.backlog.Dropped()
	}

	changed := prev.Since.IsZero() || s.Live != prev.Live || s.Present != prev.Present
	if changed {
		s.Since = m.now()
	}
	m.status.Store(s)

	if !changed {
		return
	}
	slog.Info("monitor: link changed", "address", s.Address, "live", s.Live, "present", s.Present)
	if m.onUpdate != nil {
		m.onUpdate(*s)
	}
}

func (m *Monitor) readLive() bool {
	box := m.prober.Load()
	if box == nil || box.p == nil {
		return false
	}
	return box.p.Live()
}

func (m *Monitor) readPresent() bool {
	if m.ports == nil {
		return m.readLive()
	}
	ports, err := m.ports()
	if err != nil {
		slog.Debug("monitor: cannot list ports", "err", err)
		return false
	}
	return slices.Contains(ports, m.address)
}

// FormatStatus returns a human-readable status summary.
func FormatStatus(s LinkStatus) string {
	state := "down"
	if s.Live {
		state = "live"
	}
	present := "missing"
	if s.Present {
		present = "present"
	}
	return fmt.Sprintf("Link: %s (%s, %s) | Queue: %d pending, %d dropped",
		s.Address, state, present, s.Pending, s.Dropped)
}
