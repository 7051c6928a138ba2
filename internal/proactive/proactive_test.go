package proactive

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/moorebrett0/hatchling/internal/pet"
	"github.com/moorebrett0/hatchling/internal/species"
)

type recordAnnouncer struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordAnnouncer) Announce(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
}

func (r *recordAnnouncer) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestScheduler() (*Scheduler, *recordAnnouncer, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)}
	ann := &recordAnnouncer{}
	cfg := Config{CheckInterval: time.Second, BoredAfter: 10 * time.Minute, ChokeReminder: 20 * time.Second}
	return New(ann, species.Default(), cfg, clock.now), ann, clock
}

func TestBoredomNudge(t *testing.T) {
	s, ann, clock := newTestScheduler()

	clock.advance(9 * time.Minute)
	s.check()
	if len(ann.all()) != 0 {
		t.Fatal("no nudge before BoredAfter")
	}

	clock.advance(time.Minute)
	s.check()
	got := ann.all()
	if len(got) != 1 || !strings.Contains(got[0], "nobody has played in 10m0s") {
		t.Fatalf("expected one boredom nudge, got %q", got)
	}

	// Not repeated until another quiet spell passes.
	clock.advance(5 * time.Minute)
	s.check()
	if len(ann.all()) != 1 {
		t.Error("boredom nudge repeated too soon")
	}
	clock.advance(5 * time.Minute)
	s.check()
	if len(ann.all()) != 2 {
		t.Error("expected a second boredom nudge")
	}
}

func TestPlayResetsBoredom(t *testing.T) {
	s, ann, clock := newTestScheduler()

	clock.advance(9 * time.Minute)
	s.Notify(pet.Notification{Kind: pet.KindPlayPet})
	clock.advance(9 * time.Minute)
	s.check()
	if len(ann.all()) != 0 {
		t.Error("play should reset the quiet timer")
	}

	// Snapshots and idle cues are not play.
	s.Notify(pet.Notification{Kind: pet.KindStatSnapshot})
	s.Notify(pet.Notification{Kind: pet.KindShowIdle})
	clock.advance(time.Minute)
	s.check()
	if len(ann.all()) != 1 {
		t.Error("expected boredom nudge despite snapshots")
	}
}

func TestChokeReminder(t *testing.T) {
	s, ann, clock := newTestScheduler()

	s.Notify(pet.Notification{Kind: pet.KindChokeStarted, Current: 0, Goal: 5})
	clock.advance(10 * time.Second)
	s.Notify(pet.Notification{Kind: pet.KindChokeProgress, Current: 2, Goal: 5})

	clock.advance(19 * time.Second)
	s.check()
	if len(ann.all()) != 0 {
		t.Fatal("progress should postpone the reminder")
	}

	clock.advance(time.Second)
	s.check()
	got := ann.all()
	if len(got) != 1 || !strings.Contains(got[0], "2 of 5") {
		t.Fatalf("expected a reminder with progress, got %q", got)
	}

	// Choking suppresses boredom even after a long silence.
	clock.advance(15 * time.Minute)
	s.check()
	got = ann.all()
	if len(got) != 2 || !strings.Contains(got[1], "still choking") {
		t.Fatalf("expected only choke reminders while choking, got %q", got)
	}

	s.Notify(pet.Notification{Kind: pet.KindChokeResolved})
	clock.advance(time.Minute)
	s.check()
	if len(ann.all()) != 2 {
		t.Error("no reminders after the choke resolves")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	s, _, _ := newTestScheduler()
	s.cfg.CheckInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
