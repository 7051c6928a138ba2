package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/moorebrett0/hatchling/internal/game"
	"github.com/moorebrett0/hatchling/internal/journal"
	"github.com/moorebrett0/hatchling/internal/pet"
	"github.com/moorebrett0/hatchling/internal/sink"
)

func newReplayCmd(load loader) *cobra.Command {
	var (
		path    string
		session string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run a recorded session and print the resulting stats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			if path == "" {
				path = cfg.Journal.Path
			}

			store, err := journal.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			var s sink.Sink
			if verbose {
				s = sink.NewLogSink(slog.Default())
			}
			res, err := replay(cmd.Context(), store, session, cfg.Pet.Tuning, s)
			if err != nil {
				return err
			}
			printReplay(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "journal", "j", "", "journal database (default from config)")
	cmd.Flags().StringVarP(&session, "session", "s", "", "session id (default: latest)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every replayed notification")
	return cmd
}

var errUnknownSession = errors.New("unknown session")

// replayResult is the outcome of re-running one session.
type replayResult struct {
	Session  journal.Session
	Ticks    int
	Tokens   int
	Stats    pet.Stats
	Recorded *journal.Entry // last recorded snapshot, nil if none

	// TuningFromConfig is set when the session did not record its tuning
	// and the current config's values were used instead.
	TuningFromConfig bool
}

// Matches reports whether the replayed stats agree with the last recorded
// snapshot.
func (r replayResult) Matches() bool {
	e := r.Recorded
	if e == nil {
		return false
	}
	return e.Mood == r.Stats.Mood && e.Feed == r.Stats.Feed && e.Exp == r.Stats.Exp &&
		e.Stage == r.Stats.Stage && e.Choking == r.Stats.Choking
}

// tickSource hands the loop one recorded tick's tokens per Drain.
type tickSource struct {
	next []string
}

func (s *tickSource) Drain() []string {
	out := s.next
	s.next = nil
	return out
}

type sessionReader interface {
	Sessions(ctx context.Context) ([]journal.Session, error)
	Latest(ctx context.Context) (journal.Session, error)
	Tokens(ctx context.Context, session string) ([]journal.TickTokens, error)
	Notifications(ctx context.Context, session string) ([]journal.Entry, error)
}

// replay runs a fresh machine through a session's recorded ticks. Only
// ticks that drained tokens are recorded; empty ticks in between cannot
// change stats beyond the promotion each Step already performs. The
// session's recorded tuning wins over fallback.
func replay(ctx context.Context, st sessionReader, sessionID string, fallback pet.Tuning, s sink.Sink) (replayResult, error) {
	sess, err := findSession(ctx, st, sessionID)
	if err != nil {
		return replayResult{}, err
	}

	tuning, fromConfig := fallback, true
	if sess.Tuning != nil {
		tuning, fromConfig = *sess.Tuning, false
	} else {
		slog.Warn("replay: session has no recorded tuning, using config", "session", sess.ID)
	}

	ticks, err := st.Tokens(ctx, sess.ID)
	if err != nil {
		return replayResult{}, err
	}

	src := &tickSource{}
	loop := game.New(pet.NewMachine(tuning), src, s, game.Options{})

	var epoch time.Time
	res := replayResult{Session: sess, Ticks: len(ticks), TuningFromConfig: fromConfig}
	for _, t := range ticks {
		src.next = t.Tokens
		res.Tokens += len(t.Tokens)
		loop.Step(ctx, epoch)
	}
	res.Stats = loop.Stats()

	entries, err := st.Notifications(ctx, sess.ID)
	if err != nil {
		return replayResult{}, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Kind == pet.KindStatSnapshot {
			res.Recorded = &entries[i]
			break
		}
	}
	return res, nil
}

func findSession(ctx context.Context, st sessionReader, id string) (journal.Session, error) {
	if id == "" {
		return st.Latest(ctx)
	}
	sessions, err := st.Sessions(ctx)
	if err != nil {
		return journal.Session{}, err
	}
	for _, s := range sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return journal.Session{}, fmt.Errorf("replay: %w %q", errUnknownSession, id)
}

func printReplay(w io.Writer, r replayResult) {
	st := r.Stats
	fmt.Fprintf(w, "session  %s (%s, %s, started %s)\n",
		r.Session.ID, r.Session.Species, r.Session.Device, r.Session.StartedAt.Format(time.RFC3339))
	if r.TuningFromConfig {
		fmt.Fprintln(w, "warning  session has no recorded tuning; replayed with the current config")
	}
	fmt.Fprintf(w, "replayed %d tokens over %d ticks\n", r.Tokens, r.Ticks)
	fmt.Fprintf(w, "stats    mood %d  feed %d  exp %d  level %d  choking %v\n",
		st.Mood, st.Feed, st.Exp, st.Stage.Level(), st.Choking)
	switch {
	case r.Recorded == nil:
		fmt.Fprintln(w, "recorded no snapshot to compare against")
	case r.Matches():
		fmt.Fprintln(w, "recorded matches")
	default:
		e := r.Recorded
		fmt.Fprintf(w, "recorded mood %d  feed %d  exp %d  level %d  choking %v (differs)\n",
			e.Mood, e.Feed, e.Exp, e.Stage.Level(), e.Choking)
	}
}
