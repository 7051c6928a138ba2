package journal

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/moorebrett0/hatchling/internal/pet"
)

// Writer is the part of Store the recorder writes through.
type Writer interface {
	RecordToken(ctx context.Context, session string, tick uint64, seq int, token string) error
	RecordNotification(ctx context.Context, session string, tick uint64, n pet.Notification) error
}

type record struct {
	tick  uint64
	seq   int
	token string
	n     *pet.Notification
}

// Recorder buffers journal writes for one session and performs them on its
// own goroutine so the tick loop never waits on disk. When the buffer is
// full new records are dropped and counted.
type Recorder struct {
	w       Writer
	session string
	ch      chan record
	dropped atomic.Uint64
	done    chan struct{}

	// Snapshots are only recorded when the stats change.
	lastSnap    pet.Stats
	hasLastSnap bool
}

// NewRecorder creates a recorder for session with the given buffer size.
func NewRecorder(w Writer, session string, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Recorder{
		w:       w,
		session: session,
		ch:      make(chan record, buffer),
		done:    make(chan struct{}),
	}
}

// Session returns the session id being recorded.
func (r *Recorder) Session() string {
	return r.session
}

// Token queues a drained token.
func (r *Recorder) Token(tick uint64, seq int, token string) {
	r.enqueue(record{tick: tick, seq: seq, token: token})
}

// Notification queues an emitted notification. Noops, idle reports and
// unchanged snapshots are skipped.
func (r *Recorder) Notification(tick uint64, n pet.Notification) {
	switch n.Kind {
	case pet.KindNoop, pet.KindShowIdle:
		return
	case pet.KindStatSnapshot:
		if r.hasLastSnap && r.lastSnap == n.Stats {
			return
		}
		r.lastSnap, r.hasLastSnap = n.Stats, true
	}
	r.enqueue(record{tick: tick, n: &n})
}

func (r *Recorder) enqueue(rec record) {
	select {
	case r.ch <- rec:
	default:
		if r.dropped.Add(1) == 1 {
			slog.Warn("journal: buffer full, dropping records", "session", r.session)
		}
	}
}

// Dropped returns how many records overflowed the buffer.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Run writes queued records until ctx is done, then flushes what is left.
// Writes already taken off the buffer complete even if ctx is cancelled
// meanwhile.
func (r *Recorder) Run(ctx context.Context) {
	defer close(r.done)
	wctx := context.WithoutCancel(ctx)
	for {
		select {
		case rec := <-r.ch:
			r.write(wctx, rec)
		case <-ctx.Done():
			r.flush(wctx)
			return
		}
	}
}

// Done is closed once Run has flushed and returned.
func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

func (r *Recorder) flush(ctx context.Context) {
	for {
		select {
		case rec := <-r.ch:
			r.write(ctx, rec)
		default:
			if d := r.Dropped(); d > 0 {
				slog.Warn("journal: records dropped this session", "session", r.session, "dropped", d)
			}
			return
		}
	}
}

func (r *Recorder) write(ctx context.Context, rec record) {
	var err error
	if rec.n != nil {
		err = r.w.RecordNotification(ctx, r.session, rec.tick, *rec.n)
	} else {
		err = r.w.RecordToken(ctx, r.session, rec.tick, rec.seq, rec.token)
	}
	if err != nil {
		slog.Warn("journal: write failed", "session", r.session, "err", err)
	}
}
