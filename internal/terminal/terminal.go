// Package terminal renders the pet as styled status lines.
package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/moorebrett0/hatchling/internal/pet"
	"github.com/moorebrett0/hatchling/internal/visual"
)

const barWidth = 10

type styles struct {
	stage   lipgloss.Style
	label   lipgloss.Style
	happy   lipgloss.Style
	normal  lipgloss.Style
	angry   lipgloss.Style
	feed    lipgloss.Style
	exp     lipgloss.Style
	choke   lipgloss.Style
	cue     lipgloss.Style
	caption lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		stage:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD866")),
		label:   r.NewStyle().Foreground(lipgloss.Color("#888888")),
		happy:   r.NewStyle().Foreground(lipgloss.Color("#A9DC76")),
		normal:  r.NewStyle().Foreground(lipgloss.Color("#FFD866")),
		angry:   r.NewStyle().Foreground(lipgloss.Color("#FF6188")),
		feed:    r.NewStyle().Foreground(lipgloss.Color("#FC9867")),
		exp:     r.NewStyle().Foreground(lipgloss.Color("#78DCE8")),
		choke:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#FF6188")),
		cue:     r.NewStyle().Bold(true),
		caption: r.NewStyle().Italic(true).Foreground(lipgloss.Color("#AB9DF2")),
	}
}

// Renderer is a sink that prints a status line whenever the stats change
// and a cue line for every action, choke or evolution.
type Renderer struct {
	mu    sync.Mutex
	w     io.Writer
	table *visual.Table
	st    styles

	last    pet.Stats
	hasLast bool
}

// New creates a renderer writing to w. Styling adapts to what w supports;
// a plain buffer gets no escape codes.
func New(w io.Writer, table *visual.Table) *Renderer {
	if table == nil {
		table = visual.NewTable(nil)
	}
	return &Renderer{
		w:     w,
		table: table,
		st:    newStyles(lipgloss.NewRenderer(w)),
	}
}

func (r *Renderer) Notify(n pet.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch n.Kind {
	case pet.KindStatSnapshot:
		if r.hasLast && r.last == n.Stats {
			return
		}
		r.last, r.hasLast = n.Stats, true
		fmt.Fprintln(r.w, r.status(n))
	case pet.KindNoop, pet.KindShowIdle:
		return
	default:
		fmt.Fprintln(r.w, r.cueLine(n))
	}
}

func (r *Renderer) status(n pet.Notification) string {
	s := n.Stats
	idle := r.table.Key(s.Stage, s.Mood)

	moodStyle := r.st.normal
	switch r.table.Band(s.Mood) {
	case visual.Happy:
		moodStyle = r.st.happy
	case visual.Angry:
		moodStyle = r.st.angry
	}

	parts := []string{
		r.st.stage.Render(fmt.Sprintf("%s Lv%d", idle.Emoji, s.Stage.Level())),
		r.st.label.Render("mood") + " " + moodStyle.Render(bar(s.Mood, 100)) + fmt.Sprintf(" %3d", s.Mood),
		r.st.label.Render("feed") + " " + r.st.feed.Render(bar(s.Feed, 100)) + fmt.Sprintf(" %3d", s.Feed),
		r.st.label.Render("exp") + " " + r.st.exp.Render(bar(s.Exp, n.LevelCap)) + fmt.Sprintf(" %d/%d", s.Exp, n.LevelCap),
	}
	if s.Choking {
		parts = append(parts, r.st.choke.Render(" CHOKING "))
	}
	return strings.Join(parts, "  ")
}

func (r *Renderer) cueLine(n pet.Notification) string {
	v, _ := r.table.ActionKey(n.Kind)

	var detail string
	switch n.Kind {
	case pet.KindChokeStarted, pet.KindChokeProgress:
		detail = fmt.Sprintf("tap to rescue %s %d/%d", bar(n.Current, n.Goal), n.Current, n.Goal)
	case pet.KindChokeResolved:
		detail = "rescued!"
	case pet.KindStageChanged:
		detail = fmt.Sprintf("%s -> %s", n.From, n.To)
	case pet.KindEvolutionFinal:
		detail = "final form reached"
	case pet.KindRestarted:
		detail = "a new egg appears"
	}

	line := r.st.cue.Render(strings.TrimSpace(v.Emoji + " " + v.Key))
	if v.Caption != "" {
		line += " " + r.st.caption.Render(v.Caption)
	}
	if detail != "" {
		line += "  " + detail
	}
	return line
}

func bar(v, limit int) string {
	if limit <= 0 {
		return strings.Repeat("░", barWidth)
	}
	filled := min(max(v*barWidth/limit, 0), barWidth)
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}
