// Package sink delivers pet notifications to whatever renders them.
package sink

import (
	"log/slog"

	"github.com/moorebrett0/hatchling/internal/pet"
)

// Sink consumes notifications from the tick loop. Notify runs on the tick
// loop goroutine and must not block; slow consumers hand off to their own
// worker.
type Sink interface {
	Notify(n pet.Notification)
}

// Func adapts a plain function to a Sink.
type Func func(n pet.Notification)

func (f Func) Notify(n pet.Notification) { f(n) }

// Fanout delivers each notification to every sink, in order.
type Fanout []Sink

func (f Fanout) Notify(n pet.Notification) {
	for _, s := range f {
		if s != nil {
			s.Notify(n)
		}
	}
}

// Discard drops everything.
var Discard Sink = Func(func(pet.Notification) {})

// LogSink writes notifications to slog. Cues log at Info, per-tick reports
// at Debug.
type LogSink struct {
	Logger *slog.Logger
}

// NewLogSink creates a LogSink on the given logger, or slog.Default().
func NewLogSink(l *slog.Logger) *LogSink {
	if l == nil {
		l = slog.Default()
	}
	return &LogSink{Logger: l}
}

func (s *LogSink) Notify(n pet.Notification) {
	attrs := []any{
		"kind", n.Kind.String(),
		"stage", n.Stats.Stage.String(),
		"mood", n.Stats.Mood,
		"feed", n.Stats.Feed,
		"exp", n.Stats.Exp,
	}

	switch n.Kind {
	case pet.KindChokeStarted, pet.KindChokeProgress, pet.KindChokeResolved:
		attrs = append(attrs, "current", n.Current, "goal", n.Goal)
	case pet.KindStageChanged:
		attrs = append(attrs, "from", n.From.String(), "to", n.To.String())
	}

	if n.IsCue() {
		s.Logger.Info("pet: "+n.Kind.String(), attrs...)
		return
	}
	s.Logger.Debug("pet: "+n.Kind.String(), attrs...)
}
