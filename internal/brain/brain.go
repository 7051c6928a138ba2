package brain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/moorebrett0/hatchling/internal/pet"
	"github.com/moorebrett0/hatchling/internal/species"
)

// Announcer publishes a narrated line. *discord.Bot satisfies it.
type Announcer interface {
	Announce(text string)
}

// LogAnnouncer writes narration to the log when no chat surface is wired.
type LogAnnouncer struct{}

func (LogAnnouncer) Announce(text string) {
	slog.Info("brain: narration", "text", text)
}

// Narrator reacts to pet milestones with one in-character line from an AI
// provider. Notify only enqueues; Run does the slow work.
type Narrator struct {
	provider  Provider
	sp        *species.Species
	announcer Announcer
	limiter   *limiter
	timeout   time.Duration

	pending chan pet.Notification
	dropped atomic.Uint64
}

// Config for creating a Narrator.
type Config struct {
	// Claude
	ClaudeAPIKey string
	ClaudeModel  string

	// Gemini
	GeminiAPIKey string
	GeminiModel  string

	// Which provider to force ("claude", "gemini", or "" for auto-detect)
	Provider string

	MaxTokens  int64
	RateLimit  int
	RateWindow time.Duration
	Timeout    time.Duration // per request; default 15s
	Backlog    int           // milestones waiting for narration; default 16
}

// New creates a Narrator. Returns nil if no API key is configured.
func New(ctx context.Context, cfg Config, sp *species.Species, announcer Announcer) *Narrator {
	provider := newProvider(ctx, cfg)
	if provider == nil {
		slog.Info("brain: no API key configured, narrator disabled")
		return nil
	}
	return newNarrator(provider, cfg, sp, announcer, nil)
}

func newNarrator(p Provider, cfg Config, sp *species.Species, announcer Announcer, clock func() time.Time) *Narrator {
	if sp == nil {
		sp = species.Default()
	}
	if announcer == nil {
		announcer = LogAnnouncer{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = 16
	}
	return &Narrator{
		provider:  p,
		sp:        sp,
		announcer: announcer,
		limiter:   newLimiter(cfg.RateLimit, cfg.RateWindow, clock),
		timeout:   cfg.Timeout,
		pending:   make(chan pet.Notification, cfg.Backlog),
	}
}

// newProvider auto-detects or forces the AI provider.
func newProvider(ctx context.Context, cfg Config) Provider {
	pick := cfg.Provider

	// Auto-detect if not forced
	if pick == "" {
		switch {
		case cfg.ClaudeAPIKey != "":
			pick = "claude"
		case cfg.GeminiAPIKey != "":
			pick = "gemini"
		}
	}

	switch pick {
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			slog.Error("brain: AI_PROVIDER=claude but ANTHROPIC_API_KEY is not set")
			return nil
		}
		slog.Info("brain: using claude", "model", cfg.ClaudeModel)
		return newClaudeProvider(cfg.ClaudeAPIKey, cfg.ClaudeModel, cfg.MaxTokens)
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			slog.Error("brain: AI_PROVIDER=gemini but GOOGLE_API_KEY is not set")
			return nil
		}
		slog.Info("brain: using gemini", "model", cfg.GeminiModel)
		p, err := newGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.MaxTokens)
		if err != nil {
			slog.Error("brain: failed to create gemini provider", "err", err)
			return nil
		}
		return p
	default:
		return nil
	}
}

// Milestone reports whether a notification is worth narrating.
func Milestone(k pet.Kind) bool {
	switch k {
	case pet.KindChokeStarted, pet.KindChokeResolved, pet.KindStageChanged, pet.KindEvolutionFinal:
		return true
	}
	return false
}

// Notify implements sink.Sink. It never blocks: when the backlog is full
// the milestone is dropped.
func (n *Narrator) Notify(note pet.Notification) {
	if !Milestone(note.Kind) {
		return
	}
	select {
	case n.pending <- note:
	default:
		d := n.dropped.Add(1)
		slog.Debug("brain: backlog full, dropping milestone", "kind", note.Kind, "dropped", d)
	}
}

// Dropped reports how many milestones were skipped because the backlog
// was full.
func (n *Narrator) Dropped() uint64 {
	return n.dropped.Load()
}

// Run narrates queued milestones until the context is cancelled.
func (n *Narrator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case note := <-n.pending:
			text, err := n.Narrate(ctx, note)
			if err != nil {
				slog.Warn("brain: narration failed", "kind", note.Kind, "err", err)
				continue
			}
			if text != "" {
				n.announcer.Announce(text)
			}
		}
	}
}

// Narrate asks the provider for a reaction to one milestone. It returns
// "" without calling the provider when the rate limit is exhausted.
func (n *Narrator) Narrate(ctx context.Context, note pet.Notification) (string, error) {
	if !n.limiter.allow() {
		slog.Debug("brain: rate limited, skipping", "kind", note.Kind)
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	resp, err := n.provider.Send(ctx, buildSystemPrompt(n.sp), []Message{
		{Role: "user", Text: describe(note, n.sp)},
	})
	if err != nil {
		return "", fmt.Errorf("AI API error: %w", err)
	}
	line := firstLine(resp.Text)
	if line == "" {
		return "", nil
	}
	return fmt.Sprintf("%s %s", n.sp.StageEmoji[note.Stats.Stage], line), nil
}

func buildSystemPrompt(sp *species.Species) string {
	return fmt.Sprintf(`You are %s, a virtual pet %s living inside a little button gadget.

## Your Personality
%s

## Guidelines
- Stay in character as the %s at all times.
- Reply with exactly one short line, no more than 20 words.
- No hashtags, no quotes around your reply.
- Speak in the first person about what just happened to you.`,
		sp.Name, sp.StageNames[0], sp.Personality, sp.Name)
}

func describe(note pet.Notification, sp *species.Species) string {
	st := note.Stats
	var event string
	switch note.Kind {
	case pet.KindChokeStarted:
		event = fmt.Sprintf("You ate too fast and are choking. Someone has to pat your back %d times.", note.Goal)
	case pet.KindChokeResolved:
		event = "Someone patted your back and you coughed it up. You can breathe again."
	case pet.KindStageChanged:
		event = fmt.Sprintf("You just grew from a %s into a %s.", sp.StageNames[note.From], sp.StageNames[note.To])
	case pet.KindEvolutionFinal:
		event = fmt.Sprintf("You reached your final form, a %s. There is nothing left to grow into.", sp.StageNames[st.Stage])
	default:
		event = "Nothing much happened."
	}

	return fmt.Sprintf("[%s]\nMood: %d/100 | Fullness: %d | Experience: %d | Level: %d\nReact in one line.",
		event, st.Mood, st.Feed, st.Exp, st.Stage.Level())
}

// firstLine trims the reply to its first non-empty line.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.Trim(strings.TrimSpace(line), `"`)
		if line != "" {
			return line
		}
	}
	return ""
}
