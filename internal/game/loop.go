// Package game runs the tick loop that owns the pet.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/moorebrett0/hatchling/internal/command"
	"github.com/moorebrett0/hatchling/internal/pet"
	"github.com/moorebrett0/hatchling/internal/serial"
	"github.com/moorebrett0/hatchling/internal/sink"
)

// DefaultTickInterval is roughly one frame at 30fps.
const DefaultTickInterval = 33 * time.Millisecond

// Source hands over every token that arrived since the last call.
// *queue.Queue satisfies it.
type Source interface {
	Drain() []string
}

// Feedback takes outbound device lines without blocking.
// *serial.Link satisfies it.
type Feedback interface {
	Send(line string) bool
}

// Journal records what each tick consumed and produced. It must not block.
// *journal.Recorder satisfies it.
type Journal interface {
	Token(tick uint64, seq int, token string)
	Notification(tick uint64, n pet.Notification)
}

// Options configures a Loop. Every field is optional.
type Options struct {
	TickInterval time.Duration
	Animator     *sink.Animator
	Feedback     Feedback
	Journal      Journal
	Clock        func() time.Time
	Tracer       trace.Tracer
}

// Loop is the single consumer of the command queue and the only goroutine
// that touches the Machine.
type Loop struct {
	machine *pet.Machine
	src     Source
	sink    sink.Sink
	opts    Options

	tick  uint64
	stats atomic.Pointer[pet.Stats]
	live  atomic.Bool
}

// New creates a loop. A nil sink discards notifications.
func New(m *pet.Machine, src Source, s sink.Sink, opts Options) *Loop {
	if s == nil {
		s = sink.Discard
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/moorebrett0/hatchling/internal/game")
	}

	l := &Loop{machine: m, src: src, sink: s, opts: opts}
	st := m.Stats()
	l.stats.Store(&st)
	return l
}

// Stats returns the stats as of the last completed tick. Safe from any
// goroutine.
func (l *Loop) Stats() pet.Stats {
	return *l.stats.Load()
}

// Ticks returns how many ticks have run. Only meaningful on the loop
// goroutine or after Run returned.
func (l *Loop) Ticks() uint64 {
	return l.tick
}

// IngestionLive reports whether an input source is currently delivering.
func (l *Loop) IngestionLive() bool {
	return l.live.Load()
}

// SetIngestionLive records whether input is live. The pet keeps ticking
// either way; this only changes what is reported.
func (l *Loop) SetIngestionLive(live bool) {
	if l.live.Swap(live) != live {
		slog.Info("game: ingestion state changed", "live", live)
	}
}

// Step runs one tick: drain the queue, interpret and apply each token in
// arrival order, run the machine's own tick, then send mood feedback.
// It returns every notification it emitted.
func (l *Loop) Step(ctx context.Context, now time.Time) []pet.Notification {
	l.tick++
	tick := l.tick

	_, span := l.opts.Tracer.Start(ctx, "game.tick",
		trace.WithAttributes(attribute.Int64("tick", int64(tick))))
	defer span.End()

	var out []pet.Notification
	emit := func(n pet.Notification) {
		if l.opts.Animator != nil {
			l.opts.Animator.Cue(n.Kind, now)
		}
		l.sink.Notify(n)
		if l.opts.Journal != nil {
			l.opts.Journal.Notification(tick, n)
		}
		out = append(out, n)
	}

	tokens := l.src.Drain()
	for i, tok := range tokens {
		if l.opts.Journal != nil {
			l.opts.Journal.Token(tick, i, tok)
		}

		if tok == string(command.Restart) {
			if !l.machine.Finished() {
				slog.Debug("game: restart refused, pet still growing", "stage", l.machine.Stats().Stage)
				continue
			}
			emit(l.machine.Restart())
			continue
		}

		action := command.Interpret(tok, l.machine.Choking())
		if action == command.Noop {
			slog.Debug("game: token ignored", "token", tok, "choking", l.machine.Choking())
			continue
		}

		n := l.machine.Apply(action)
		if n.Kind == pet.KindNoop {
			slog.Debug("game: action rejected", "token", tok, "action", action.String())
			continue
		}
		emit(n)
	}

	busy := l.opts.Animator != nil && l.opts.Animator.Busy(now)
	for _, n := range l.machine.Tick(busy) {
		emit(n)
	}

	st := l.machine.Stats()
	l.stats.Store(&st)

	if l.opts.Feedback != nil {
		l.opts.Feedback.Send(serial.FormatMood(st.Mood))
	}

	span.SetAttributes(
		attribute.Int("tokens", len(tokens)),
		attribute.Int("notifications", len(out)),
		attribute.Int("mood", st.Mood),
		attribute.String("stage", st.Stage.String()),
		attribute.Bool("busy", busy),
	)
	return out
}

// Run steps on a ticker until ctx is done. A panic inside a tick is logged
// and the loop carries on with the next tick.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.opts.TickInterval)
	defer ticker.Stop()

	slog.Info("game: loop started", "interval", l.opts.TickInterval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("game: loop stopped", "ticks", l.tick)
			return nil
		case <-ticker.C:
			l.safeStep(ctx)
		}
	}
}

func (l *Loop) safeStep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("tick %d panicked: %v", l.tick, r)
			slog.Error("game: tick failed", "err", err, "stack", string(debug.Stack()))
		}
	}()
	l.Step(ctx, l.opts.Clock())
}
