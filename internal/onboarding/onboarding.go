package onboarding

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/moorebrett0/hatchling/internal/species"
)

// ErrNoChoice is returned when input ends before a species is picked.
var ErrNoChoice = errors.New("onboarding: no species chosen")

// Prompter runs the hatch sequence on a terminal. Delay paces the slow
// printing; zero prints instantly.
type Prompter struct {
	in    *bufio.Reader
	out   io.Writer
	Delay time.Duration
}

// New creates a prompter reading answers from in.
func New(in io.Reader, out io.Writer, delay time.Duration) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, Delay: delay}
}

// PickSpecies shows the egg cracking, lists the species two per row and
// reads answers until one names a species by number or ID.
func (p *Prompter) PickSpecies() (*species.Species, error) {
	fmt.Fprintln(p.out)
	p.printSlow("  \U0001F95A crk... crk...")
	fmt.Fprintln(p.out)
	p.pause(5)

	fmt.Fprintln(p.out, "  pick a species:")
	fmt.Fprintln(p.out)
	ids := species.OrderedIDs
	for i := 0; i < len(ids); i += 2 {
		left := species.Registry[ids[i]]
		col := fmt.Sprintf("  %d) %s %-12s", i+1, left.StageEmoji[1], left.Name)
		if i+1 < len(ids) {
			right := species.Registry[ids[i+1]]
			fmt.Fprintf(p.out, "%s%d) %s %s\n", col, i+2, right.StageEmoji[1], right.Name)
		} else {
			fmt.Fprintln(p.out, strings.TrimRight(col, " "))
		}
	}
	fmt.Fprintln(p.out)

	for {
		fmt.Fprint(p.out, "  > ")
		line, err := p.in.ReadString('\n')
		if sp, ok := parseChoice(line); ok {
			fmt.Fprintln(p.out)
			fmt.Fprintf(p.out, "  %s %s\n", sp.StageEmoji[0], sp.Description)
			fmt.Fprintln(p.out)
			return sp, nil
		}
		if err != nil {
			return nil, ErrNoChoice
		}
		fmt.Fprintf(p.out, "  hmm, pick a number 1-%d or type the species name\n", len(ids))
	}
}

func parseChoice(input string) (*species.Species, bool) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return nil, false
	}
	if n, err := strconv.Atoi(input); err == nil {
		if n < 1 || n > len(species.OrderedIDs) {
			return nil, false
		}
		return species.Registry[species.OrderedIDs[n-1]], true
	}
	return species.Lookup(input)
}

// Check is one line of the startup checklist.
type Check struct {
	Label string
	OK    bool
}

// PrintStartup prints the startup checklist and the greeting.
func (p *Prompter) PrintStartup(sp *species.Species, checks []Check) {
	fmt.Fprintln(p.out, "  starting up...")
	for _, c := range checks {
		p.pause(2)
		mark := "✓"
		if !c.OK {
			mark = "✗"
		}
		fmt.Fprintf(p.out, "  %s %s\n", mark, c.Label)
	}
	fmt.Fprintln(p.out)
	p.printSlow(fmt.Sprintf("  %s %s is alive. don't forget about me.", sp.StageEmoji[0], sp.Name))
	fmt.Fprintln(p.out)
}

// pause sleeps for n units of Delay.
func (p *Prompter) pause(n int) {
	if p.Delay > 0 {
		time.Sleep(time.Duration(n) * p.Delay)
	}
}

func (p *Prompter) printSlow(text string) {
	if p.Delay <= 0 {
		fmt.Fprintln(p.out, text)
		return
	}
	for _, ch := range text {
		fmt.Fprint(p.out, string(ch))
		time.Sleep(p.Delay)
	}
	fmt.Fprintln(p.out)
}
