package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/moorebrett0/hatchling/internal/pet"
	"github.com/moorebrett0/hatchling/internal/species"
	"github.com/moorebrett0/hatchling/internal/visual"
)

// progressBar renders a visual bar like ████████░░ 8/10
func progressBar(value, limit, width int) string {
	filled := 0
	if limit > 0 {
		filled = value * width / limit
	}
	filled = max(0, min(filled, width))
	return fmt.Sprintf("%s%s %d/%d",
		strings.Repeat("█", filled), strings.Repeat("░", width-filled), value, limit)
}

// moodColor returns a Discord embed color for the mood band.
func moodColor(band visual.Mood) int {
	switch band {
	case visual.Happy:
		return 0x57F287 // green
	case visual.Normal:
		return 0x5865F2 // blurple
	default:
		return 0xED4245 // red
	}
}

func moodToPresence(band visual.Mood, v visual.Visual) (status, activity string) {
	switch band {
	case visual.Happy:
		return "online", v.Caption
	case visual.Normal:
		return "idle", v.Caption
	default:
		return "dnd", v.Caption
	}
}

// StatusEmbed builds a rich embed for /status.
func StatusEmbed(n pet.Notification, sp *species.Species, table *visual.Table, now time.Time) *discordgo.MessageEmbed {
	st := n.Stats
	v := table.Key(st.Stage, st.Mood)
	band := table.Band(st.Mood)

	limit := max(n.LevelCap, 1)
	stats := fmt.Sprintf(
		"mood  %d (%s)\nfeed  %s\nexp   %s",
		st.Mood, band,
		progressBar(st.Feed, limit, 10),
		progressBar(st.Exp, limit, 10),
	)

	desc := fmt.Sprintf("level %d %s | %s", st.Stage.Level(), sp.StageNames[st.Stage], v.Caption)
	if st.Choking {
		desc = fmt.Sprintf("⚠️ choking! taps %d/%d", st.ChokeCount, n.Goal)
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s %s", v.Emoji, sp.Name),
		Description: desc,
		Color:       moodColor(band),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Stats", Value: "```\n" + stats + "\n```", Inline: false},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%d feeds in a row", st.ConsecutiveFeeds),
		},
		Timestamp: now.Format(time.RFC3339),
	}
}

// Announcement returns the channel message for a milestone notification.
// ok is false for notifications that are not announced.
func Announcement(n pet.Notification, sp *species.Species, table *visual.Table) (string, bool) {
	cue, _ := table.ActionKey(n.Kind)
	switch n.Kind {
	case pet.KindChokeStarted:
		return fmt.Sprintf("⚠️ %s %s %s! tap %d times to help (/rescue)",
			cue.Emoji, sp.Name, cue.Caption, n.Goal), true
	case pet.KindChokeResolved:
		return fmt.Sprintf("%s phew. %s %s.", cue.Emoji, sp.Name, cue.Caption), true
	case pet.KindStageChanged:
		return fmt.Sprintf("%s %s %s and is now a %s %s (level %d)!",
			cue.Emoji, sp.Name, cue.Caption,
			sp.StageNames[n.To], sp.StageEmoji[n.To], n.To.Level()), true
	case pet.KindEvolutionFinal:
		return fmt.Sprintf("%s %s reached its final form: %s %s. thanks for raising me!",
			cue.Emoji, sp.Name, sp.StageNames[n.Stats.Stage], sp.StageEmoji[n.Stats.Stage]), true
	case pet.KindRestarted:
		return fmt.Sprintf("%s a new %s egg appeared. be nice to it.", cue.Emoji, sp.Name), true
	default:
		return "", false
	}
}

// TemplateAction answers a slash command that pushed a token.
func TemplateAction(name string, sp *species.Species) string {
	switch name {
	case "feed":
		return fmt.Sprintf("%s you offer %s a snack.", sp.StageEmoji[0], sp.Name)
	case "pet":
		return fmt.Sprintf("%s you reach out to pet %s.", sp.StageEmoji[0], sp.Name)
	case "hit":
		return fmt.Sprintf("%s you poke %s. hard.", sp.StageEmoji[0], sp.Name)
	case "rescue":
		return fmt.Sprintf("%s you pat %s on the back.", sp.StageEmoji[0], sp.Name)
	case "restart":
		return fmt.Sprintf("%s you ask for a new egg. it only hatches once %s is fully grown.", sp.StageEmoji[0], sp.Name)
	default:
		return "Unknown command."
	}
}

func TemplateHelp(sp *species.Species) string {
	name := sp.Name
	return fmt.Sprintf("**Hatchling Commands**\n\n"+
		"`/status` — See %s's stats and mood\n"+
		"`/feed` — Give %s a snack (too many and it chokes)\n"+
		"`/pet` — Give %s some love\n"+
		"`/hit` — Poke %s (it won't like it)\n"+
		"`/rescue` — Pat %s on the back while it chokes\n"+
		"`/restart` — Hatch a new egg once %s is fully grown\n"+
		"`/help` — This message", name, name, name, name, name, name)
}

func templateDenied(sp *species.Species) string {
	return fmt.Sprintf("%s nice try. only my owner gets to press my buttons.", sp.StageEmoji[0])
}

func templateNotReady(sp *species.Species) string {
	return fmt.Sprintf("%s still waking up... try again in a second.", sp.StageEmoji[0])
}
