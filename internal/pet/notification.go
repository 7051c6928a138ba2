package pet

// Kind identifies what a Notification describes.
type Kind int

const (
	KindNoop Kind = iota
	KindStatSnapshot
	KindPlayEat
	KindPlayPet
	KindPlayHit
	KindChokeStarted
	KindChokeProgress
	KindChokeResolved
	KindShowIdle
	KindStageChanged
	KindEvolutionFinal
	KindRestarted
)

var kindNames = map[Kind]string{
	KindNoop:           "noop",
	KindStatSnapshot:   "stat_snapshot",
	KindPlayEat:        "play_eat",
	KindPlayPet:        "play_pet",
	KindPlayHit:        "play_hit",
	KindChokeStarted:   "choke_started",
	KindChokeProgress:  "choke_progress",
	KindChokeResolved:  "choke_resolved",
	KindShowIdle:       "show_idle",
	KindStageChanged:   "stage_changed",
	KindEvolutionFinal: "evolution_final",
	KindRestarted:      "restarted",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return KindNoop, false
}

// Notification is a one-way, read-only description of something the
// machine did. Stats is always the state after the change.
type Notification struct {
	Kind     Kind
	Stats    Stats
	LevelCap int

	// Choke progress. Set on every notification while choking and on
	// ChokeResolved.
	Current int
	Goal    int

	// Stage transition (StageChanged).
	From Stage
	To   Stage
}

// Progress is Current/Goal in [0,1], or 0 when there is no goal.
func (n Notification) Progress() float64 {
	if n.Goal <= 0 {
		return 0
	}
	return float64(n.Current) / float64(n.Goal)
}

// IsCue reports whether the notification asks renderers to play something,
// as opposed to the per-tick snapshot and idle reports.
func (n Notification) IsCue() bool {
	switch n.Kind {
	case KindNoop, KindStatSnapshot, KindShowIdle:
		return false
	}
	return true
}
