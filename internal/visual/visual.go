// Package visual maps pet state to what renderers should show.
package visual

import (
	"fmt"

	"github.com/moorebrett0/hatchling/internal/pet"
	"github.com/moorebrett0/hatchling/internal/species"
)

// Mood is the coarse band a mood value falls into.
type Mood int

const (
	Angry Mood = iota
	Normal
	Happy
)

func (m Mood) String() string {
	switch m {
	case Happy:
		return "happy"
	case Normal:
		return "normal"
	default:
		return "angry"
	}
}

// Visual is one displayable state.
type Visual struct {
	Key     string // asset key, e.g. "stage2_happy"
	Emoji   string
	Caption string
}

type entry struct {
	stage pet.Stage
	mood  Mood
}

// Table is the injected (stage, mood band) -> visual mapping plus the
// action cue visuals.
type Table struct {
	HappyAt  int // mood >= HappyAt is Happy
	NormalAt int // mood >= NormalAt is Normal, below is Angry

	idle    map[entry]Visual
	actions map[pet.Kind]Visual
}

// NewTable builds the table for a species. Nil means the default species.
func NewTable(sp *species.Species) *Table {
	if sp == nil {
		sp = species.Default()
	}

	t := &Table{
		HappyAt:  70,
		NormalAt: 40,
		idle:     make(map[entry]Visual),
		actions:  make(map[pet.Kind]Visual),
	}

	captions := map[Mood]string{
		Happy:  sp.Verbs.Happy,
		Normal: sp.Verbs.Normal,
		Angry:  sp.Verbs.Angry,
	}
	for _, st := range []pet.Stage{pet.Stage1, pet.Stage2, pet.Stage3} {
		for _, m := range []Mood{Angry, Normal, Happy} {
			t.idle[entry{st, m}] = Visual{
				Key:     fmt.Sprintf("%s_%s", st, m),
				Emoji:   sp.StageEmoji[st],
				Caption: fmt.Sprintf("%s %s", sp.StageNames[st], captions[m]),
			}
		}
	}

	t.actions[pet.KindPlayEat] = Visual{Key: "eat", Emoji: "\U0001F35A", Caption: sp.Verbs.Eat}
	t.actions[pet.KindPlayPet] = Visual{Key: "pet", Emoji: "\U0001F49E", Caption: sp.Verbs.Pet}
	t.actions[pet.KindPlayHit] = Visual{Key: "hit", Emoji: "\U0001F4A2", Caption: sp.Verbs.Hit}
	t.actions[pet.KindChokeStarted] = Visual{Key: "choke", Emoji: "\U0001F635", Caption: sp.Verbs.Choke}
	t.actions[pet.KindChokeProgress] = Visual{Key: "choke", Emoji: "\U0001F635", Caption: sp.Verbs.Choke}
	t.actions[pet.KindChokeResolved] = Visual{Key: "rescued", Emoji: "\U0001F62E\u200D\U0001F4A8", Caption: sp.Verbs.Rescued}
	t.actions[pet.KindStageChanged] = Visual{Key: "evolve", Emoji: "✨", Caption: sp.Verbs.Evolve}
	t.actions[pet.KindEvolutionFinal] = Visual{Key: "evolve_final", Emoji: "\U0001F31F", Caption: sp.Verbs.Evolve}
	t.actions[pet.KindRestarted] = Visual{Key: "hatch", Emoji: sp.StageEmoji[0]}
	return t
}

// Band returns the mood band for a mood value.
func (t *Table) Band(mood int) Mood {
	switch {
	case mood >= t.HappyAt:
		return Happy
	case mood >= t.NormalAt:
		return Normal
	default:
		return Angry
	}
}

// Key returns the idle visual for a stage and mood.
func (t *Table) Key(stage pet.Stage, mood int) Visual {
	band := t.Band(mood)
	if v, ok := t.idle[entry{stage, band}]; ok {
		return v
	}
	return Visual{Key: fmt.Sprintf("%s_%s", stage, band)}
}

// ActionKey returns the cue visual for a notification kind. ok is false for
// kinds that have no cue.
func (t *Table) ActionKey(kind pet.Kind) (Visual, bool) {
	v, ok := t.actions[kind]
	return v, ok
}

// Set overrides one idle entry.
func (t *Table) Set(stage pet.Stage, mood Mood, v Visual) {
	t.idle[entry{stage, mood}] = v
}
