package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/moorebrett0/hatchling/internal/brain"
	"github.com/moorebrett0/hatchling/internal/config"
	"github.com/moorebrett0/hatchling/internal/discord"
	"github.com/moorebrett0/hatchling/internal/game"
	"github.com/moorebrett0/hatchling/internal/journal"
	"github.com/moorebrett0/hatchling/internal/keyboard"
	"github.com/moorebrett0/hatchling/internal/monitor"
	"github.com/moorebrett0/hatchling/internal/onboarding"
	"github.com/moorebrett0/hatchling/internal/pet"
	"github.com/moorebrett0/hatchling/internal/proactive"
	"github.com/moorebrett0/hatchling/internal/queue"
	"github.com/moorebrett0/hatchling/internal/scene"
	"github.com/moorebrett0/hatchling/internal/serial"
	"github.com/moorebrett0/hatchling/internal/sink"
	"github.com/moorebrett0/hatchling/internal/telemetry"
	"github.com/moorebrett0/hatchling/internal/terminal"
	"github.com/moorebrett0/hatchling/internal/visual"
)

func newRunCmd(load loader) *cobra.Command {
	var (
		device string
		choose bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Hatch the pet and start listening to the device",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			if device != "" {
				cfg.Device.Address = device
			}
			in := cmd.InOrStdin()
			if choose {
				br := bufio.NewReader(in)
				sp, err := onboarding.New(br, cmd.OutOrStdout(), cfg.Startup.Delay).PickSpecies()
				if err != nil {
					return err
				}
				cfg.Pet.Species = sp.ID
				// Piped input may already sit in the buffer; a terminal keeps readline.
				if br.Buffered() > 0 {
					in = br
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runPet(ctx, cfg, runIO{
				in:     in,
				out:    cmd.OutOrStdout(),
				opener: serial.DeviceOpener,
			})
		},
	}
	cmd.Flags().StringVarP(&device, "device", "d", "", "serial device, overrides the config")
	cmd.Flags().BoolVar(&choose, "choose", false, "pick the species interactively before hatching")
	return cmd
}

// runIO carries the process edges runPet touches, so tests can swap them.
type runIO struct {
	in     io.Reader
	out    io.Writer
	opener serial.Opener
}

// runPet wires every component and blocks until ctx is cancelled. It
// returns once every goroutine it started has stopped.
func runPet(ctx context.Context, cfg *config.Config, rio runIO) error {
	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry: setup failed, tracing disabled", "err", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("telemetry: shutdown failed", "err", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	spawn := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	sp := cfg.Species()
	table := visual.NewTable(sp)
	q := queue.New(cfg.Game.MaxPending)
	machine := pet.NewMachine(cfg.Pet.Tuning)
	anim := sink.NewAnimator(cfg.Animation)

	// onEnd hands the player a way to ask for a new egg.
	var (
		director *scene.Director
		onEnd    func()
	)
	director = scene.NewDirector(cfg.Scene.Transition, func(from, to scene.Scene) {
		slog.Info("scene: changed", "from", from, "to", to)
		switch to {
		case scene.End:
			fmt.Fprintf(rio.out, "%s %s is all grown up. type r to hatch a new egg.\n", sp.StageEmoji[pet.Stage3], sp.Name)
			if onEnd != nil {
				onEnd()
			}
		case scene.Open:
			director.Start()
		}
	})
	defer director.Close()

	sinks := sink.Fanout{
		sink.NewLogSink(slog.Default()),
		terminal.New(rio.out, table),
		director,
	}

	var announcer brain.Announcer = brain.LogAnnouncer{}
	if cfg.DiscordEnabled() {
		bot, err := discord.NewBot(cfg.Discord.BotToken, cfg.Discord.ChannelID, cfg.Discord.OwnerIDs,
			cfg.Discord.AllowSpectators, sp, table)
		if err != nil {
			return fmt.Errorf("discord: %w", err)
		}
		discord.NewRouter(bot, q)
		sinks = append(sinks, bot)
		announcer = bot
		spawn(func() { bot.Start(ctx) })
	}

	var narrator *brain.Narrator
	if cfg.NarratorEnabled() {
		narrator = brain.New(ctx, narratorConfig(cfg), sp, announcer)
	}
	if narrator != nil {
		sinks = append(sinks, narrator)
		spawn(func() { narrator.Run(ctx) })
	}

	if cfg.Nudge.Enabled {
		nudger := proactive.New(announcer, sp, cfg.Nudge.Config, nil)
		sinks = append(sinks, nudger)
		spawn(func() { nudger.Run(ctx) })
	}

	opts := game.Options{
		TickInterval: cfg.Game.TickInterval,
		Animator:     anim,
	}

	var rec *journal.Recorder
	if cfg.Journal.Enabled {
		store, r, err := openJournal(ctx, cfg, sp.ID)
		if err != nil {
			slog.Warn("journal: disabled", "path", cfg.Journal.Path, "err", err)
		} else {
			rec = r
			opts.Journal = rec
			spawn(func() { rec.Run(ctx) })
			// The recorder flushes on cancel; the store outlives it.
			defer func() {
				cancel()
				<-rec.Done()
				if err := store.Close(); err != nil {
					slog.Warn("journal: close failed", "err", err)
				}
			}()
		}
	}

	link, err := serial.Open(cfg.Device.Address, cfg.Device.Baud, serial.Options{
		ReadTimeout: cfg.Device.ReadTimeout,
		RetryDelay:  cfg.Device.RetryDelay,
		ReopenAfter: cfg.Device.ReopenAfter,
		Opener:      rio.opener,
	})
	if err != nil {
		var cerr *serial.ConnectionError
		if !errors.As(err, &cerr) {
			return err
		}
		slog.Error("serial: device unavailable, input disabled", "address", cerr.Address, "err", cerr.Cause)
	} else {
		opts.Feedback = link
	}

	loop := game.New(machine, q, sinks, opts)

	// force starts the keyboard even when the fallback is switched off.
	var keyboardOnce sync.Once
	startKeyboard := func(force bool) {
		if !force && !cfg.Keyboard.Fallback {
			return
		}
		keyboardOnce.Do(func() {
			if ctx.Err() != nil {
				return
			}
			kb := keyboard.New(rio.in, rio.out)
			slog.Info("keyboard: input enabled", "line_editing", kb.Interactive(), "forced", force)
			spawn(func() {
				if err := kb.Run(ctx, q); err != nil {
					slog.Warn("keyboard: stopped", "err", err)
				}
			})
		})
	}

	mon := monitor.New(cfg.Device.Address, cfg.Monitor.Interval, monitor.Options{
		Backlog: q,
		Ports:   serial.Ports,
	}, func(s monitor.LinkStatus) {
		loop.SetIngestionLive(s.Live)
		fmt.Fprintln(rio.out, monitor.FormatStatus(s))
		if !s.Live {
			startKeyboard(false)
		}
	})
	onEnd = func() { startKeyboard(true) }

	if cfg.Startup.Checklist {
		onboarding.New(rio.in, rio.out, cfg.Startup.Delay).PrintStartup(sp, []onboarding.Check{
			{Label: "button device connected", OK: link != nil},
			{Label: "journal recording", OK: opts.Journal != nil},
			{Label: "discord enabled", OK: cfg.DiscordEnabled()},
			{Label: "narrator awake", OK: narrator != nil},
		})
	}

	if link != nil {
		mon.SetProber(link)
		spawn(func() {
			link.Run(ctx, q)
			if err := link.Close(); err != nil {
				slog.Debug("serial: close failed", "err", err)
			}
		})
	}
	spawn(func() { mon.Run(ctx) })

	director.Start()
	slog.Info("hatchling: running", "species", sp.ID, "device", cfg.Device.Address, "tick", cfg.Game.TickInterval)

	err = loop.Run(ctx)
	cancel()
	director.Close()
	wg.Wait()

	st := loop.Stats()
	attrs := []any{"ticks", loop.Ticks(), "mood", st.Mood, "stage", st.Stage, "dropped_inputs", q.Dropped()}
	if rec != nil {
		attrs = append(attrs, "session", rec.Session(), "dropped_records", rec.Dropped())
	}
	slog.Info("hatchling: stopped", attrs...)
	return err
}

func openJournal(ctx context.Context, cfg *config.Config, speciesID string) (*journal.Store, *journal.Recorder, error) {
	store, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, nil, err
	}
	session := journal.Session{
		ID:        journal.NewSessionID(),
		StartedAt: time.Now(),
		Device:    cfg.Device.Address,
		Species:   speciesID,
		Tuning:    &cfg.Pet.Tuning,
	}
	if err := store.Begin(ctx, session); err != nil {
		store.Close()
		return nil, nil, err
	}
	slog.Info("journal: recording", "path", cfg.Journal.Path, "session", session.ID)
	return store, journal.NewRecorder(store, session.ID, cfg.Journal.Buffer), nil
}

func narratorConfig(cfg *config.Config) brain.Config {
	return brain.Config{
		ClaudeAPIKey: cfg.Claude.APIKey,
		ClaudeModel:  cfg.Claude.Model,
		GeminiAPIKey: cfg.Gemini.APIKey,
		GeminiModel:  cfg.Gemini.Model,
		Provider:     cfg.AI.Provider,
		MaxTokens:    cfg.Claude.MaxTokens,
		RateLimit:    cfg.Claude.RateLimit,
		RateWindow:   cfg.Claude.RateWindow,
	}
}
