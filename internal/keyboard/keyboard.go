// Package keyboard is the local input source used when no button device is
// connected.
package keyboard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"

	"github.com/moorebrett0/hatchling/internal/command"
)

// Prompt is shown before each line in interactive mode.
const Prompt = "hatchling> "

// Keys maps single keys to device tokens.
var Keys = map[string]command.Token{
	"a": command.Click,  // feed
	"s": command.Hold,   // pet
	"d": command.Double, // hit
	"f": command.Tap,    // rescue
	"r": command.Restart,
}

// Help describes the key map.
const Help = "a feed  s pet  d hit  f rescue  r new egg after the ending  (or type HOLD / CLICK / DOUBLE / TAP)"

// Pusher receives tokens. *queue.Queue satisfies it.
type Pusher interface {
	Push(token string)
}

// Translate turns a typed line into a device token. Raw tokens are passed
// through; everything else is rejected.
func Translate(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if tok, ok := Keys[strings.ToLower(line)]; ok {
		return string(tok), true
	}
	if tok, ok := command.Parse(line); ok {
		return string(tok), true
	}
	return "", false
}

type lineSource interface {
	readLine() (string, error)
	close()
}

// Input reads lines from a terminal with line editing, or from a plain
// stream one line at a time.
type Input struct {
	src         lineSource
	out         io.Writer
	interactive bool
}

// New picks readline when in is a terminal, a scanner otherwise.
func New(in io.Reader, out io.Writer) *Input {
	if out == nil {
		out = io.Discard
	}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		rl, err := readline.NewFromConfig(&readline.Config{
			Prompt:                 Prompt,
			DisableAutoSaveHistory: true,
		})
		if err == nil {
			return &Input{src: &editor{rl: rl}, out: out, interactive: true}
		}
		slog.Warn("keyboard: readline init failed, using basic input", "err", err)
	}

	return &Input{src: &scanner{s: bufio.NewScanner(in)}, out: out}
}

// Interactive reports whether line editing is active.
func (k *Input) Interactive() bool {
	return k.interactive
}

// Run pushes a token for every recognized line until EOF or ctx is done.
// A read blocked on a non-terminal stream cannot be interrupted; its
// goroutine ends when the stream does.
func (k *Input) Run(ctx context.Context, p Pusher) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		for {
			line, err := k.src.readLine()
			if err != nil {
				errc <- err
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	if k.interactive {
		fmt.Fprintln(k.out, Help)
	}

	for {
		select {
		case <-ctx.Done():
			k.src.close()
			return nil
		case err := <-errc:
			k.src.close()
			if errors.Is(err, io.EOF) {
				slog.Info("keyboard: input closed")
				return nil
			}
			return fmt.Errorf("keyboard: read: %w", err)
		case line := <-lines:
			if strings.TrimSpace(line) == "" {
				continue
			}
			if line == "?" || line == "help" {
				fmt.Fprintln(k.out, Help)
				continue
			}
			tok, ok := Translate(line)
			if !ok {
				slog.Debug("keyboard: ignored input", "line", line)
				continue
			}
			p.Push(tok)
		}
	}
}

type editor struct {
	rl *readline.Instance
}

func (e *editor) readLine() (string, error) {
	line, err := e.rl.Readline()
	if err == readline.ErrInterrupt {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if trimmed := strings.TrimSpace(line); trimmed != "" {
		e.rl.SaveToHistory(trimmed)
	}
	return line, nil
}

func (e *editor) close() {
	e.rl.Close()
}

type scanner struct {
	s *bufio.Scanner
}

func (s *scanner) readLine() (string, error) {
	if !s.s.Scan() {
		if err := s.s.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.s.Text(), nil
}

func (s *scanner) close() {}
