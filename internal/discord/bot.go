package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/moorebrett0/hatchling/internal/pet"
	"github.com/moorebrett0/hatchling/internal/species"
	"github.com/moorebrett0/hatchling/internal/visual"
)

// DefaultOutboxSize bounds the announcements waiting to be sent.
const DefaultOutboxSize = 32

// poster is the part of *discordgo.Session the bot sends through.
type poster interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UpdateStatusComplex(usd discordgo.UpdateStatusData) error
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

type outgoing struct {
	text     string
	presence *discordgo.UpdateStatusData
}

// Bot announces pet milestones to a channel and keeps its presence in step
// with the pet's idle mood. It is a sink; sends happen on a worker goroutine
// so Notify never blocks the tick loop.
type Bot struct {
	session   *discordgo.Session // nil in tests
	out       poster
	channelID string
	ownerIDs  map[string]bool

	allowSpectators bool

	sp    *species.Species
	table *visual.Table

	outbox  chan outgoing
	dropped atomic.Uint64

	last     atomic.Pointer[pet.Notification] // latest StatSnapshot
	lastBand atomic.Int32                     // -1 until the first idle report

	router *Router
}

// NewBot creates and configures a Discord bot (does not connect yet).
func NewBot(token, channelID string, ownerIDs []string, allowSpectators bool, sp *species.Species, table *visual.Table) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("invalid bot token: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent |
		discordgo.IntentsGuilds

	b := newBot(session, channelID, ownerIDs, allowSpectators, sp, table)
	b.session = session
	return b, nil
}

func newBot(out poster, channelID string, ownerIDs []string, allowSpectators bool, sp *species.Species, table *visual.Table) *Bot {
	if sp == nil {
		sp = species.Default()
	}
	if table == nil {
		table = visual.NewTable(sp)
	}
	owners := make(map[string]bool, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = true
	}

	b := &Bot{
		out:             out,
		channelID:       channelID,
		ownerIDs:        owners,
		allowSpectators: allowSpectators,
		sp:              sp,
		table:           table,
		outbox:          make(chan outgoing, DefaultOutboxSize),
	}
	b.lastBand.Store(-1)
	return b
}

// SetRouter wires the router to handle messages and interactions.
func (b *Bot) SetRouter(r *Router) {
	b.router = r
	if b.session == nil {
		return
	}
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)
	b.session.AddHandler(b.onReady)
}

// Start opens the Discord connection, registers slash commands and sends
// queued announcements. Blocks until context is cancelled.
func (b *Bot) Start(ctx context.Context) {
	if err := b.session.Open(); err != nil {
		slog.Error("discord: failed to open session", "err", err)
		return
	}

	slog.Info("discord: connected", "user", b.session.State.User.Username)

	b.registerCommands()

	b.runWorker(ctx)
	slog.Info("discord: shutting down", "dropped", b.dropped.Load())
	b.session.Close()
}

// Notify implements sink.Sink.
func (b *Bot) Notify(n pet.Notification) {
	switch n.Kind {
	case pet.KindStatSnapshot:
		b.last.Store(&n)
	case pet.KindShowIdle:
		b.updatePresence(n.Stats)
	default:
		if text, ok := Announcement(n, b.sp, b.table); ok {
			b.enqueue(outgoing{text: text})
		}
	}
}

// Announce posts free text to the channel. The narrator uses it.
func (b *Bot) Announce(text string) {
	if text == "" {
		return
	}
	b.enqueue(outgoing{text: text})
}

// Snapshot returns the latest stat snapshot, if one has arrived.
func (b *Bot) Snapshot() (pet.Notification, bool) {
	n := b.last.Load()
	if n == nil {
		return pet.Notification{}, false
	}
	return *n, true
}

// Dropped reports how many sends were discarded because the outbox was full.
func (b *Bot) Dropped() uint64 {
	return b.dropped.Load()
}

// ChannelID returns the configured channel ID.
func (b *Bot) ChannelID() string {
	return b.channelID
}

// IsOwner checks if a user ID is in the owner list.
func (b *Bot) IsOwner(userID string) bool {
	return b.ownerIDs[userID]
}

// CanAct reports whether a user may press the pet's buttons.
func (b *Bot) CanAct(userID string) bool {
	return b.IsOwner(userID) || b.allowSpectators
}

// updatePresence only sends when the mood band changes; idle reports
// arrive every tick.
func (b *Bot) updatePresence(st pet.Stats) {
	band := b.table.Band(st.Mood)
	if b.lastBand.Swap(int32(band)) == int32(band) {
		return
	}
	status, activity := moodToPresence(band, b.table.Key(st.Stage, st.Mood))
	b.enqueue(outgoing{presence: &discordgo.UpdateStatusData{
		Status: status,
		Activities: []*discordgo.Activity{
			{
				Name:  activity,
				Type:  discordgo.ActivityTypeCustom,
				State: activity,
			},
		},
	}})
}

func (b *Bot) enqueue(o outgoing) {
	select {
	case b.outbox <- o:
	default:
		n := b.dropped.Add(1)
		slog.Warn("discord: outbox full, dropping", "dropped", n)
	}
}

func (b *Bot) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case o := <-b.outbox:
			b.send(o)
		}
	}
}

func (b *Bot) send(o outgoing) {
	if o.presence != nil {
		if err := b.out.UpdateStatusComplex(*o.presence); err != nil {
			slog.Debug("discord: update presence failed", "err", err)
		}
		return
	}
	if _, err := b.out.ChannelMessageSend(b.channelID, o.text); err != nil {
		slog.Error("discord: send message failed", "err", err)
	}
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	slog.Info("discord: ready", "user", r.User.Username, "guilds", len(r.Guilds))
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore own messages and other bots
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	// Only respond in the configured channel
	if m.ChannelID != b.channelID {
		return
	}

	if b.router != nil {
		if reply := b.router.HandleMessage(m.Author.ID, m.Content); reply != "" {
			b.enqueue(outgoing{text: reply})
		}
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	if b.router != nil {
		b.router.HandleInteraction(i)
	}
}

func (b *Bot) registerCommands() {
	appID := b.session.State.User.ID
	for _, cmd := range commands {
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			slog.Error("discord: failed to register command", "cmd", cmd.Name, "err", err)
		} else {
			slog.Info("discord: registered command", "cmd", cmd.Name)
		}
	}
}

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "status",
		Description: "Check your pet's stats and mood",
	},
	{
		Name:        "feed",
		Description: "Give your pet a snack",
	},
	{
		Name:        "pet",
		Description: "Give your pet some affection",
	},
	{
		Name:        "hit",
		Description: "Poke your pet",
	},
	{
		Name:        "rescue",
		Description: "Pat your pet on the back while it chokes",
	},
	{
		Name:        "restart",
		Description: "Hatch a new egg after the final evolution",
	},
	{
		Name:        "help",
		Description: "Show available commands",
	},
}
