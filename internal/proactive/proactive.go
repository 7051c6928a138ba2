package proactive

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/moorebrett0/hatchling/internal/pet"
	"github.com/moorebrett0/hatchling/internal/species"
)

// Announcer publishes a nudge. *discord.Bot and brain.LogAnnouncer satisfy it.
type Announcer interface {
	Announce(text string)
}

// Scheduler nudges the player when the pet has been left alone too long or
// has been choking without help. It only talks; it never changes stats.
type Scheduler struct {
	announcer Announcer
	sp        *species.Species
	cfg       Config
	now       func() time.Time

	mu         sync.Mutex
	lastAction time.Time
	lastBored  time.Time
	choking    bool
	lastChoke  time.Time // last choke cue or reminder
	current    int
	goal       int
}

// Config for the proactive scheduler.
type Config struct {
	CheckInterval time.Duration `yaml:"check_interval"`
	BoredAfter    time.Duration `yaml:"bored_after"`    // quiet time before a boredom nudge
	ChokeReminder time.Duration `yaml:"choke_reminder"` // quiet time while choking before a reminder
}

// DefaultConfig returns the stock nudge timings.
func DefaultConfig() Config {
	return Config{
		CheckInterval: 5 * time.Second,
		BoredAfter:    10 * time.Minute,
		ChokeReminder: 20 * time.Second,
	}
}

// New creates a proactive scheduler. A nil clock means time.Now.
func New(announcer Announcer, sp *species.Species, cfg Config, clock func() time.Time) *Scheduler {
	if sp == nil {
		sp = species.Default()
	}
	if clock == nil {
		clock = time.Now
	}
	now := clock()
	return &Scheduler{
		announcer:  announcer,
		sp:         sp,
		cfg:        cfg,
		now:        clock,
		lastAction: now,
		lastBored:  now,
	}
}

// Notify implements sink.Sink.
func (s *Scheduler) Notify(n pet.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	switch n.Kind {
	case pet.KindPlayEat, pet.KindPlayPet, pet.KindPlayHit, pet.KindRestarted:
		s.lastAction = now
	case pet.KindChokeStarted, pet.KindChokeProgress:
		s.lastAction = now
		s.lastChoke = now
		s.choking = true
		s.current, s.goal = n.Current, n.Goal
	case pet.KindChokeResolved:
		s.lastAction = now
		s.choking = false
	}
}

// Run starts the check loop. Blocks until context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check()
		}
	}
}

func (s *Scheduler) check() {
	s.mu.Lock()
	now := s.now()
	var msg string
	switch {
	case s.choking:
		if now.Sub(s.lastChoke) >= s.cfg.ChokeReminder {
			s.lastChoke = now
			msg = TemplateChokeReminder(s.sp, s.current, s.goal)
		}
	case now.Sub(s.lastAction) >= s.cfg.BoredAfter && now.Sub(s.lastBored) >= s.cfg.BoredAfter:
		s.lastBored = now
		msg = TemplateBoredom(s.sp, now.Sub(s.lastAction))
	}
	s.mu.Unlock()

	if msg == "" {
		return
	}
	slog.Debug("proactive: nudge", "text", msg)
	s.announcer.Announce(msg)
}

// TemplateBoredom is the nudge sent after a quiet spell.
func TemplateBoredom(sp *species.Species, quiet time.Duration) string {
	return fmt.Sprintf("%s %s %s... nobody has played in %s. come say hi!",
		sp.StageEmoji[0], sp.Name, sp.Verbs.Normal, quiet.Round(time.Minute))
}

// TemplateChokeReminder is the nudge sent while a choke goes unanswered.
func TemplateChokeReminder(sp *species.Species, current, goal int) string {
	return fmt.Sprintf("⚠️ %s is still choking! %d of %d back pats so far. tap to help.",
		sp.Name, current, goal)
}
