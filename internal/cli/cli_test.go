package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/moorebrett0/hatchling/internal/config"
	"github.com/moorebrett0/hatchling/internal/journal"
	"github.com/moorebrett0/hatchling/internal/pet"
	"github.com/moorebrett0/hatchling/internal/serial"
)

// isolate keeps the developer's environment out of config loading.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, k := range []string{
		"DISCORD_BOT_TOKEN", "ANTHROPIC_API_KEY", "GOOGLE_API_KEY",
		"HATCHLING_OTEL_ENABLED", "HATCHLING_DEVICE", "HATCHLING_JOURNAL",
	} {
		t.Setenv(k, "")
	}
	return dir
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// gadget is a fake button device: it sends its lines once, then idles.
type gadget struct {
	mu     sync.Mutex
	lines  []string
	writes []string
}

func (g *gadget) Read(b []byte) (int, error) {
	g.mu.Lock()
	if len(g.lines) > 0 {
		n := copy(b, g.lines[0])
		g.lines = g.lines[1:]
		g.mu.Unlock()
		return n, nil
	}
	g.mu.Unlock()
	time.Sleep(time.Millisecond)
	return 0, nil
}

func (g *gadget) Write(b []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writes = append(g.writes, string(b))
	return len(b), nil
}

func (g *gadget) SetReadTimeout(time.Duration) error { return nil }
func (g *gadget) Close() error                       { return nil }

func (g *gadget) send(line string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lines = append(g.lines, line)
}

func (g *gadget) wrote(line string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, w := range g.writes {
		if w == line {
			return true
		}
	}
	return false
}

func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Game.TickInterval = 2 * time.Millisecond
	cfg.Monitor.Interval = 5 * time.Millisecond
	cfg.Scene.Transition = time.Millisecond
	cfg.Keyboard.Fallback = false
	cfg.Startup.Delay = 0
	cfg.Journal.Path = filepath.Join(dir, "journal.db")
	return cfg
}

func TestRunPet_EndToEnd(t *testing.T) {
	dir := isolate(t)
	cfg := testConfig(t, dir)

	dev := &gadget{lines: []string{"HO", "LD\nwiggle\n"}}
	out := &lockedBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runPet(ctx, cfg, runIO{
			in:     strings.NewReader(""),
			out:    out,
			opener: func(string, int) (serial.Port, error) { return dev, nil },
		})
	}()

	deadline := time.Now().Add(3 * time.Second)
	for !dev.wrote("MOOD:60\n") {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("device never received MOOD:60")
		}
		time.Sleep(2 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runPet: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("runPet did not shut down")
	}

	if !strings.Contains(out.String(), "mood") {
		t.Errorf("terminal should have rendered a status line, got %q", out.String())
	}
	for _, want := range []string{"✓ button device connected", "✓ journal recording", "✗ narrator awake", "Link: " + cfg.Device.Address} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("startup checklist missing %q", want)
		}
	}

	store, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer store.Close()

	res, err := replay(context.Background(), store, "", cfg.Pet.Tuning, nil)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.Tokens != 2 {
		t.Errorf("expected HOLD and wiggle journaled, got %d tokens", res.Tokens)
	}
	if res.Stats.Mood != 60 || !res.Matches() {
		t.Errorf("replay should reproduce mood 60, got %+v (recorded %+v)", res.Stats, res.Recorded)
	}
}

func waitFor(t *testing.T, out *lockedBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !strings.Contains(out.String(), want) {
		if time.Now().After(deadline) {
			t.Fatalf("never saw %q in %q", want, out.String())
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestRunPet_RestartAfterEnding(t *testing.T) {
	dir := isolate(t)
	cfg := testConfig(t, dir)
	cfg.Pet.Tuning.Stage2Threshold = 10
	cfg.Pet.Tuning.Stage3Threshold = 10

	dev := &gadget{}
	out := &lockedBuffer{}
	kbIn, kbWrite := io.Pipe()
	defer kbWrite.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- runPet(ctx, cfg, runIO{
			in:     kbIn,
			out:    out,
			opener: func(string, int) (serial.Port, error) { return dev, nil },
		})
	}()

	dev.send("HOLD\n")
	waitFor(t, out, "stage1 -> stage2")
	dev.send("HOLD\n")
	waitFor(t, out, "type r to hatch a new egg")

	// The ending turns the keyboard on even with the fallback off.
	go kbWrite.Write([]byte("r\n"))
	waitFor(t, out, "a new egg appears")

	cancel()
	kbWrite.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runPet: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("runPet did not shut down")
	}

	store, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer store.Close()

	res, err := replay(context.Background(), store, "", pet.DefaultTuning(), nil)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.TuningFromConfig {
		t.Error("the session should have recorded its tuning")
	}
	if res.Stats.Stage != pet.Stage1 || res.Stats.Exp != 0 {
		t.Errorf("replayed restart should leave a fresh egg, got %+v", res.Stats)
	}
}

func TestRunPet_MissingDeviceKeepsTicking(t *testing.T) {
	dir := isolate(t)
	cfg := testConfig(t, dir)
	cfg.Journal.Enabled = false

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := runPet(ctx, cfg, runIO{
		in:  strings.NewReader(""),
		out: &lockedBuffer{},
		opener: func(string, int) (serial.Port, error) {
			return nil, errors.New("no such device")
		},
	})
	if err != nil {
		t.Fatalf("a missing device must not be fatal, got %v", err)
	}
}

func seedSession(t *testing.T, store *journal.Store, id string, tuning *pet.Tuning, ticks [][]string) {
	t.Helper()
	ctx := context.Background()
	sess := journal.Session{
		ID:        id,
		StartedAt: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
		Device:    "COM3",
		Species:   "chick",
		Tuning:    tuning,
	}
	if err := store.Begin(ctx, sess); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for i, tokens := range ticks {
		tick := uint64(i + 1)
		for seq, tok := range tokens {
			if err := store.RecordToken(ctx, id, tick, seq, tok); err != nil {
				t.Fatalf("RecordToken: %v", err)
			}
		}
	}
	snap := pet.Notification{Kind: pet.KindStatSnapshot, Stats: pet.Stats{Mood: 70, Exp: 20}}
	if err := store.RecordNotification(ctx, id, uint64(len(ticks)), snap); err != nil {
		t.Fatalf("RecordNotification: %v", err)
	}
}

func TestReplay_SessionSelection(t *testing.T) {
	dir := isolate(t)
	store, err := journal.Open(filepath.Join(dir, "j.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	tuning := pet.DefaultTuning()
	seedSession(t, store, "s1", &tuning, [][]string{{"HOLD"}, {"HOLD"}})

	res, err := replay(context.Background(), store, "s1", pet.DefaultTuning(), nil)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.Ticks != 2 || res.Stats.Mood != 70 || res.Stats.Exp != 20 {
		t.Errorf("unexpected result %+v", res)
	}
	if !res.Matches() {
		t.Error("replay should match the recorded snapshot")
	}

	var buf bytes.Buffer
	printReplay(&buf, res)
	if !strings.Contains(buf.String(), "recorded matches") {
		t.Errorf("unexpected report %q", buf.String())
	}

	if _, err := replay(context.Background(), store, "nope", pet.DefaultTuning(), nil); !errors.Is(err, errUnknownSession) {
		t.Errorf("expected errUnknownSession, got %v", err)
	}
}

func TestReplay_PrefersRecordedTuning(t *testing.T) {
	dir := isolate(t)
	store, err := journal.Open(filepath.Join(dir, "j.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	recorded := pet.DefaultTuning()
	seedSession(t, store, "tuned", &recorded, [][]string{{"HOLD"}, {"HOLD"}})

	// The config has drifted since the session was recorded.
	drifted := pet.DefaultTuning()
	drifted.MoodOnPet = 1
	drifted.ExpOnPet = 1

	res, err := replay(context.Background(), store, "tuned", drifted, nil)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.TuningFromConfig {
		t.Error("recorded tuning should be used")
	}
	if !res.Matches() {
		t.Errorf("replay with recorded tuning should match, got %+v", res.Stats)
	}
	var buf bytes.Buffer
	printReplay(&buf, res)
	if strings.Contains(buf.String(), "warning") {
		t.Errorf("no warning expected, got %q", buf.String())
	}
}

func TestReplay_WarnsWithoutRecordedTuning(t *testing.T) {
	dir := isolate(t)
	store, err := journal.Open(filepath.Join(dir, "j.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	seedSession(t, store, "old", nil, [][]string{{"HOLD"}, {"HOLD"}})

	res, err := replay(context.Background(), store, "old", pet.DefaultTuning(), nil)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !res.TuningFromConfig {
		t.Error("expected the config tuning fallback to be flagged")
	}
	if !res.Matches() {
		t.Errorf("fallback replay with unchanged config should still match, got %+v", res.Stats)
	}
	var buf bytes.Buffer
	printReplay(&buf, res)
	if !strings.Contains(buf.String(), "no recorded tuning") {
		t.Errorf("expected a tuning warning, got %q", buf.String())
	}
}

func TestReplay_EmptyJournal(t *testing.T) {
	dir := isolate(t)
	store, err := journal.Open(filepath.Join(dir, "j.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if _, err := replay(context.Background(), store, "", pet.DefaultTuning(), nil); !errors.Is(err, journal.ErrNoSessions) {
		t.Errorf("expected ErrNoSessions, got %v", err)
	}
}

func TestPortsCommand(t *testing.T) {
	isolate(t)
	t.Setenv("HATCHLING_DEVICE", "/dev/ttyUSB0")

	orig := listPorts
	t.Cleanup(func() { listPorts = orig })
	listPorts = func() ([]string, error) { return []string{"/dev/ttyS0", "/dev/ttyUSB0"}, nil }

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"ports"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("ports: %v", err)
	}
	if out.String() != "  /dev/ttyS0\n* /dev/ttyUSB0\n" {
		t.Errorf("unexpected listing %q", out.String())
	}
}

func TestRootCommand_BadConfig(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("pet:\n  species: dragon\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"ports", "--config", path})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "unknown species") {
		t.Errorf("expected a config error, got %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(config.LogConfig{Level: "DEBUG", Format: "json"}, &buf)
	l.Debug("serial: hello", "k", 1)
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"msg":"serial: hello"`) {
		t.Errorf("expected a JSON debug line, got %q", buf.String())
	}

	buf.Reset()
	l = newLogger(config.LogConfig{Level: "warn", Format: "text"}, &buf)
	l.Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn, got %q", buf.String())
	}
}
