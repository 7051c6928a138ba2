package discord

import (
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/moorebrett0/hatchling/internal/command"
)

// Pusher receives tokens for the tick loop. *queue.Queue satisfies it.
type Pusher interface {
	Push(token string)
}

// commandTokens maps slash commands to the button gesture they stand in for.
var commandTokens = map[string]command.Token{
	"feed":    command.Click,
	"pet":     command.Hold,
	"hit":     command.Double,
	"rescue":  command.Tap,
	"restart": command.Restart,
}

// Reply is the router's answer to one slash command.
type Reply struct {
	Content   string
	Embed     *discordgo.MessageEmbed
	Ephemeral bool
}

// Router dispatches Discord slash commands and channel messages.
type Router struct {
	bot    *Bot
	pusher Pusher
	now    func() time.Time
}

// NewRouter creates a router and wires it to the bot.
func NewRouter(bot *Bot, pusher Pusher) *Router {
	r := &Router{
		bot:    bot,
		pusher: pusher,
		now:    time.Now,
	}
	bot.SetRouter(r)
	return r
}

// Dispatch runs one slash command for a user.
func (r *Router) Dispatch(name, userID string) Reply {
	sp := r.bot.sp

	switch name {
	case "status":
		snap, ok := r.bot.Snapshot()
		if !ok {
			return Reply{Content: templateNotReady(sp), Ephemeral: true}
		}
		return Reply{Embed: StatusEmbed(snap, sp, r.bot.table, r.now())}

	case "help":
		return Reply{Content: TemplateHelp(sp)}
	}

	tok, ok := commandTokens[name]
	if !ok {
		return Reply{Content: "Unknown command.", Ephemeral: true}
	}
	if !r.bot.CanAct(userID) {
		return Reply{Content: templateDenied(sp), Ephemeral: true}
	}

	r.pusher.Push(string(tok))
	slog.Debug("discord: pushed token", "cmd", name, "token", tok, "user", userID)
	return Reply{Content: TemplateAction(name, sp)}
}

// HandleInteraction dispatches a slash command interaction.
func (r *Router) HandleInteraction(i *discordgo.InteractionCreate) {
	reply := r.Dispatch(i.ApplicationCommandData().Name, interactionUserID(i))

	data := &discordgo.InteractionResponseData{Content: reply.Content}
	if reply.Embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{reply.Embed}
	}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}

	err := r.bot.out.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		slog.Error("discord: interaction respond failed", "err", err)
	}
}

// HandleMessage lets plain channel chatter stand in for the commands: a
// message that sounds like feeding, petting or hitting pushes that gesture.
// It returns the text to post back, or "" to stay quiet.
func (r *Router) HandleMessage(userID, text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return ""
	}

	var name string
	switch {
	case r.chokingNow() && matchesRescue(lower):
		name = "rescue"
	case matchesAffection(lower):
		name = "pet"
	case matchesFeeding(lower):
		name = "feed"
	case matchesHit(lower):
		name = "hit"
	default:
		return ""
	}

	if !r.bot.CanAct(userID) {
		return ""
	}
	r.pusher.Push(string(commandTokens[name]))
	return TemplateAction(name, r.bot.sp)
}

func (r *Router) chokingNow() bool {
	snap, ok := r.bot.Snapshot()
	return ok && snap.Stats.Choking
}

// --- Pattern matchers ---

func matchesAffection(text string) bool {
	patterns := []string{
		"good boy", "good girl", "good pet",
		"pet you", "scratch", "belly rub", "head pat", "pat pat",
		"love you", "cuddle", "snuggle", "hug", "boop",
	}
	return containsAny(text, patterns)
}

func matchesFeeding(text string) bool {
	patterns := []string{
		"feed", "food", "treat",
		"snack", "dinner", "lunch", "breakfast",
		"nom",
	}
	return containsAny(text, patterns)
}

func matchesHit(text string) bool {
	patterns := []string{"bonk", "smack", "slap", "punch"}
	return containsAny(text, patterns)
}

func matchesRescue(text string) bool {
	patterns := []string{"heimlich", "back pat", "pat", "cough it up", "breathe"}
	return containsAny(text, patterns)
}

func containsAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
