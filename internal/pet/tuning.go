package pet

import (
	"errors"
	"fmt"
)

// Tuning holds every constant that drives the pet. All of it is
// configuration; DefaultTuning matches the shipped game.
type Tuning struct {
	InitialMood int `yaml:"initial_mood"`
	MaxMood     int `yaml:"max_mood"`
	MaxFeed     int `yaml:"max_feed"`

	FeedOnFeed int `yaml:"feed_on_feed"`
	MoodOnFeed int `yaml:"mood_on_feed"`
	ExpOnFeed  int `yaml:"exp_on_feed"`

	MoodOnPet int `yaml:"mood_on_pet"`
	ExpOnPet  int `yaml:"exp_on_pet"`

	MoodLossOnHit int `yaml:"mood_loss_on_hit"`
	ExpOnHit      int `yaml:"exp_on_hit"`

	VomitFeedPenalty int `yaml:"vomit_feed_penalty"`
	VomitMoodPenalty int `yaml:"vomit_mood_penalty"`

	Stage2Threshold int `yaml:"stage2_threshold"`
	Stage3Threshold int `yaml:"stage3_threshold"`

	FeedLimit int `yaml:"feed_limit"` // consecutive feeds before choking
	ChokeGoal int `yaml:"choke_goal"` // rescue taps needed to clear a choke
}

// DefaultTuning returns the stock game balance.
func DefaultTuning() Tuning {
	return Tuning{
		InitialMood:      50,
		MaxMood:          100,
		MaxFeed:          100,
		FeedOnFeed:       5,
		MoodOnFeed:       5,
		ExpOnFeed:        5,
		MoodOnPet:        10,
		ExpOnPet:         10,
		MoodLossOnHit:    15,
		ExpOnHit:         2,
		VomitFeedPenalty: 20,
		VomitMoodPenalty: 10,
		Stage2Threshold:  100,
		Stage3Threshold:  600,
		FeedLimit:        5,
		ChokeGoal:        5,
	}
}

// Validate rejects tunings that would break the machine's invariants.
func (t Tuning) Validate() error {
	var errs []error
	if t.MaxMood <= 0 || t.MaxFeed <= 0 {
		errs = append(errs, fmt.Errorf("max mood and max feed must be positive (got %d, %d)", t.MaxMood, t.MaxFeed))
	}
	if t.InitialMood < 0 || t.InitialMood > t.MaxMood {
		errs = append(errs, fmt.Errorf("initial mood %d outside [0,%d]", t.InitialMood, t.MaxMood))
	}
	if t.Stage2Threshold <= 0 || t.Stage3Threshold <= 0 {
		errs = append(errs, fmt.Errorf("evolution thresholds must be positive (got %d, %d)", t.Stage2Threshold, t.Stage3Threshold))
	}
	if t.FeedLimit < 1 {
		errs = append(errs, fmt.Errorf("feed limit must be at least 1 (got %d)", t.FeedLimit))
	}
	if t.ChokeGoal < 1 {
		errs = append(errs, fmt.Errorf("choke goal must be at least 1 (got %d)", t.ChokeGoal))
	}
	if t.VomitFeedPenalty < 0 || t.VomitMoodPenalty < 0 || t.MoodLossOnHit < 0 {
		errs = append(errs, errors.New("penalties must not be negative"))
	}
	return errors.Join(errs...)
}
