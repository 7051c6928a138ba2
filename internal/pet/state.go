package pet

import (
	"github.com/moorebrett0/hatchling/internal/command"
)

// Stage is the pet's evolution tier.
type Stage int

const (
	Stage1 Stage = iota
	Stage2
	Stage3
)

func (s Stage) String() string {
	switch s {
	case Stage1:
		return "stage1"
	case Stage2:
		return "stage2"
	case Stage3:
		return "stage3"
	default:
		return "unknown"
	}
}

// Level is the 1-based level shown to the player.
func (s Stage) Level() int {
	return int(s) + 1
}

// Stats is a read-only copy of the machine's state.
type Stats struct {
	Mood  int
	Feed  int
	Exp   int
	Stage Stage

	ConsecutiveFeeds int
	Choking          bool
	ChokeCount       int // only meaningful while Choking
}

// Machine owns the pet's stats and applies actions to them.
//
// A Machine is not safe for concurrent use: it belongs to the tick loop
// goroutine and nothing else may touch it.
type Machine struct {
	tuning Tuning
	stats  Stats

	finalFired bool
}

// NewMachine creates a pet with starting stats.
func NewMachine(t Tuning) *Machine {
	m := &Machine{tuning: t}
	m.stats = m.initialStats()
	return m
}

func (m *Machine) initialStats() Stats {
	return Stats{
		Mood:  m.tuning.InitialMood,
		Stage: Stage1,
	}
}

// Stats returns a copy of the current stats.
func (m *Machine) Stats() Stats {
	return m.stats
}

// Choking reports whether the rescue minigame is active.
func (m *Machine) Choking() bool {
	return m.stats.Choking
}

// Tuning returns the constants the machine was built with.
func (m *Machine) Tuning() Tuning {
	return m.tuning
}

// LevelCap returns the experience cap for a stage.
func (m *Machine) LevelCap(s Stage) int {
	if s == Stage1 {
		return m.tuning.Stage2Threshold
	}
	return m.tuning.Stage3Threshold
}

// Apply dispatches an interpreted action.
func (m *Machine) Apply(a command.Action) Notification {
	switch a {
	case command.Feed:
		return m.Feed()
	case command.Pet:
		return m.Pet()
	case command.Hit:
		return m.Hit()
	case command.Rescue:
		return m.RescueTap()
	default:
		return m.notify(KindNoop)
	}
}

// Feed raises feed, mood and exp. The FeedLimit-th consecutive feed makes
// the pet choke instead of eating.
func (m *Machine) Feed() Notification {
	if m.stats.Choking {
		return m.notify(KindNoop)
	}

	m.stats.Feed += m.tuning.FeedOnFeed
	m.stats.Mood += m.tuning.MoodOnFeed
	m.stats.Exp += m.tuning.ExpOnFeed
	m.stats.ConsecutiveFeeds++

	kind := KindPlayEat
	if m.stats.ConsecutiveFeeds >= m.tuning.FeedLimit {
		m.startChoke()
		kind = KindChokeStarted
	}

	m.clamp()
	return m.notify(kind)
}

// Pet raises mood and exp.
func (m *Machine) Pet() Notification {
	if m.stats.Choking {
		return m.notify(KindNoop)
	}

	m.stats.ConsecutiveFeeds = 0
	m.stats.Mood += m.tuning.MoodOnPet
	m.stats.Exp += m.tuning.ExpOnPet
	m.clamp()
	return m.notify(KindPlayPet)
}

// Hit lowers mood but still grants a little exp.
func (m *Machine) Hit() Notification {
	if m.stats.Choking {
		return m.notify(KindNoop)
	}

	m.stats.ConsecutiveFeeds = 0
	m.stats.Mood -= m.tuning.MoodLossOnHit
	m.stats.Exp += m.tuning.ExpOnHit
	m.clamp()
	return m.notify(KindPlayHit)
}

// RescueTap counts one rescue tap. The ChokeGoal-th tap clears choke mode
// and returns ChokeResolved instead of ChokeProgress.
func (m *Machine) RescueTap() Notification {
	if !m.stats.Choking {
		return m.notify(KindNoop)
	}

	m.stats.ChokeCount++
	current := m.stats.ChokeCount
	kind := KindChokeProgress
	if m.stats.ChokeCount >= m.tuning.ChokeGoal {
		m.stats.Choking = false
		m.stats.ChokeCount = 0
		m.stats.ConsecutiveFeeds = 0
		kind = KindChokeResolved
	}

	n := m.notify(kind)
	n.Current = current
	n.Goal = m.tuning.ChokeGoal
	return n
}

func (m *Machine) startChoke() {
	m.stats.Choking = true
	m.stats.Feed = max(0, m.stats.Feed-m.tuning.VomitFeedPenalty)
	m.stats.Mood = max(0, m.stats.Mood-m.tuning.VomitMoodPenalty)
	m.stats.ConsecutiveFeeds = 0
	m.stats.ChokeCount = 0
}

// Tick runs once per loop iteration. It advances evolution by at most one
// stage, then reports the stat snapshot and, unless the pet is choking or
// busy animating, the idle state.
func (m *Machine) Tick(busy bool) []Notification {
	var out []Notification
	final := false

	from := m.stats.Stage
	switch {
	case from == Stage2 && m.stats.Exp >= m.tuning.Stage3Threshold:
		m.stats.Stage = Stage3
		m.stats.Exp = m.tuning.Stage3Threshold
		out = append(out, m.stageChanged(from))
		if !m.finalFired {
			m.finalFired = true
			final = true
			out = append(out, m.notify(KindEvolutionFinal))
		}
	case from == Stage1 && m.stats.Exp >= m.tuning.Stage2Threshold:
		m.stats.Stage = Stage2
		m.stats.Exp = 0
		out = append(out, m.stageChanged(from))
	}

	out = append(out, m.notify(KindStatSnapshot))
	// The final evolution starts its own animation this tick.
	if !m.stats.Choking && !busy && !final {
		out = append(out, m.notify(KindShowIdle))
	}
	return out
}

// Finished reports whether the final evolution has fired this round.
func (m *Machine) Finished() bool {
	return m.finalFired
}

// Restart hatches a new egg once the current pet has reached its final
// form: starting stats and a fresh final-evolution latch. Before that it is
// a Noop, so neither a stray token nor a low mood can reset the pet.
func (m *Machine) Restart() Notification {
	if !m.finalFired {
		return m.notify(KindNoop)
	}
	m.stats = m.initialStats()
	m.finalFired = false
	return m.notify(KindRestarted)
}

func (m *Machine) stageChanged(from Stage) Notification {
	n := m.notify(KindStageChanged)
	n.From = from
	n.To = m.stats.Stage
	return n
}

func (m *Machine) notify(kind Kind) Notification {
	n := Notification{
		Kind:     kind,
		Stats:    m.stats,
		LevelCap: m.LevelCap(m.stats.Stage),
	}
	if m.stats.Choking {
		n.Current = m.stats.ChokeCount
		n.Goal = m.tuning.ChokeGoal
	}
	return n
}

func (m *Machine) clamp() {
	m.stats.Mood = clamp(m.stats.Mood, 0, m.tuning.MaxMood)
	m.stats.Feed = clamp(m.stats.Feed, 0, m.tuning.MaxFeed)
	m.stats.Exp = clamp(m.stats.Exp, 0, m.LevelCap(m.stats.Stage))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
