package sink

import (
	"sync"
	"time"

	"github.com/moorebrett0/hatchling/internal/pet"
)

// Durations is how long each cue keeps the pet busy.
type Durations struct {
	Eat       time.Duration `yaml:"eat"`
	Pet       time.Duration `yaml:"pet"`
	Hit       time.Duration `yaml:"hit"`
	Evolution time.Duration `yaml:"evolution"`
}

// DefaultDurations matches the length of the stock animations.
func DefaultDurations() Durations {
	return Durations{
		Eat:       time.Second,
		Pet:       500 * time.Millisecond,
		Hit:       300 * time.Millisecond,
		Evolution: time.Second,
	}
}

// Animator tracks whether an action animation is still playing. The tick
// loop asks Busy before reporting idle so an idle frame never cuts an
// animation short.
type Animator struct {
	mu        sync.Mutex
	d         Durations
	busyUntil time.Time
}

// NewAnimator creates an animator with the given cue lengths.
func NewAnimator(d Durations) *Animator {
	return &Animator{d: d}
}

// Cue starts the animation for kind at now. Kinds without an animation are
// ignored; ChokeStarted cancels whatever is playing.
func (a *Animator) Cue(kind pet.Kind, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var d time.Duration
	switch kind {
	case pet.KindPlayEat:
		d = a.d.Eat
	case pet.KindPlayPet:
		d = a.d.Pet
	case pet.KindPlayHit:
		d = a.d.Hit
	case pet.KindEvolutionFinal:
		d = a.d.Evolution
	case pet.KindChokeStarted:
		// choke takes over the screen
		a.busyUntil = time.Time{}
		return
	default:
		return
	}

	a.busyUntil = now.Add(d)
}

// Busy reports whether an animation is still running at now.
func (a *Animator) Busy(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return now.Before(a.busyUntil)
}
