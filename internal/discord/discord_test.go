package discord

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/moorebrett0/hatchling/internal/pet"
	"github.com/moorebrett0/hatchling/internal/species"
)

type fakePoster struct {
	mu        sync.Mutex
	messages  []string
	statuses  []discordgo.UpdateStatusData
	responses []*discordgo.InteractionResponse
	sent      chan struct{}
	fail      error
}

func newFakePoster() *fakePoster {
	return &fakePoster{sent: make(chan struct{}, 64)}
}

func (f *fakePoster) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	f.messages = append(f.messages, channelID+": "+content)
	f.mu.Unlock()
	f.sent <- struct{}{}
	return &discordgo.Message{ChannelID: channelID, Content: content}, f.fail
}

func (f *fakePoster) UpdateStatusComplex(usd discordgo.UpdateStatusData) error {
	f.mu.Lock()
	f.statuses = append(f.statuses, usd)
	f.mu.Unlock()
	f.sent <- struct{}{}
	return f.fail
}

func (f *fakePoster) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return f.fail
}

func (f *fakePoster) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.sent:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for send %d of %d", i+1, n)
		}
	}
}

type recordPusher struct {
	tokens []string
}

func (p *recordPusher) Push(token string) { p.tokens = append(p.tokens, token) }

func newTestBot(out poster, allowSpectators bool) *Bot {
	return newBot(out, "chan", []string{"owner"}, allowSpectators, species.Default(), nil)
}

func snapshot(mood int, choking bool) pet.Notification {
	n := pet.Notification{
		Kind:     pet.KindStatSnapshot,
		Stats:    pet.Stats{Mood: mood, Feed: 20, Exp: 50, Choking: choking},
		LevelCap: 100,
	}
	if choking {
		n.Stats.ChokeCount = 2
		n.Current = 2
		n.Goal = 5
	}
	return n
}

func TestAnnouncement(t *testing.T) {
	b := newTestBot(newFakePoster(), false)

	tests := []struct {
		n    pet.Notification
		want string
	}{
		{pet.Notification{Kind: pet.KindChokeStarted, Goal: 5}, "tap 5 times"},
		{pet.Notification{Kind: pet.KindChokeResolved}, "phew"},
		{pet.Notification{Kind: pet.KindStageChanged, From: pet.Stage1, To: pet.Stage2}, "level 2"},
		{pet.Notification{Kind: pet.KindEvolutionFinal, Stats: pet.Stats{Stage: pet.Stage3}}, "final form: rooster"},
		{pet.Notification{Kind: pet.KindRestarted}, "a new Chick egg"},
	}
	for _, tt := range tests {
		t.Run(tt.n.Kind.String(), func(t *testing.T) {
			got, ok := Announcement(tt.n, b.sp, b.table)
			if !ok || !strings.Contains(got, tt.want) {
				t.Errorf("got %q, want it to contain %q", got, tt.want)
			}
		})
	}

	for _, k := range []pet.Kind{pet.KindPlayEat, pet.KindChokeProgress, pet.KindStatSnapshot, pet.KindNoop} {
		if _, ok := Announcement(pet.Notification{Kind: k}, b.sp, b.table); ok {
			t.Errorf("%s should not be announced", k)
		}
	}
}

func TestBot_WorkerSendsAnnouncements(t *testing.T) {
	out := newFakePoster()
	b := newTestBot(out, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.runWorker(ctx)

	b.Notify(pet.Notification{Kind: pet.KindPlayEat})
	b.Notify(pet.Notification{Kind: pet.KindChokeStarted, Goal: 5})
	b.Announce("")
	b.Announce("*coughs dramatically*")
	out.wait(t, 2)

	out.mu.Lock()
	defer out.mu.Unlock()
	if len(out.messages) != 2 {
		t.Fatalf("expected 2 messages, got %v", out.messages)
	}
	if !strings.HasPrefix(out.messages[0], "chan: ") || !strings.Contains(out.messages[0], "tap 5 times") {
		t.Errorf("unexpected first message %q", out.messages[0])
	}
	if out.messages[1] != "chan: *coughs dramatically*" {
		t.Errorf("unexpected second message %q", out.messages[1])
	}
}

func TestBot_PresenceOnBandChange(t *testing.T) {
	out := newFakePoster()
	b := newTestBot(out, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.runWorker(ctx)

	idle := func(mood int) pet.Notification {
		return pet.Notification{Kind: pet.KindShowIdle, Stats: pet.Stats{Mood: mood}}
	}
	b.Notify(idle(50))
	b.Notify(idle(55))
	b.Notify(idle(80))
	out.wait(t, 2)

	out.mu.Lock()
	defer out.mu.Unlock()
	if len(out.statuses) != 2 {
		t.Fatalf("expected 2 presence updates, got %d", len(out.statuses))
	}
	if out.statuses[0].Status != "idle" || out.statuses[1].Status != "online" {
		t.Errorf("unexpected statuses %q %q", out.statuses[0].Status, out.statuses[1].Status)
	}
}

func TestBot_OutboxDropsWhenFull(t *testing.T) {
	b := newTestBot(newFakePoster(), false)
	for i := 0; i < DefaultOutboxSize+3; i++ {
		b.Announce("hello")
	}
	if b.Dropped() != 3 {
		t.Errorf("expected 3 dropped, got %d", b.Dropped())
	}
}

func TestBot_SendErrorIsNotFatal(t *testing.T) {
	out := newFakePoster()
	out.fail = errors.New("rate limited")
	b := newTestBot(out, false)
	b.send(outgoing{text: "hi"})
	if len(out.messages) != 1 {
		t.Error("send should still have been attempted")
	}
}

func TestBot_SnapshotCache(t *testing.T) {
	b := newTestBot(newFakePoster(), false)
	if _, ok := b.Snapshot(); ok {
		t.Fatal("no snapshot yet")
	}
	b.Notify(snapshot(65, false))
	snap, ok := b.Snapshot()
	if !ok || snap.Stats.Mood != 65 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestRouter_Dispatch(t *testing.T) {
	tests := []struct {
		name       string
		cmd        string
		user       string
		spectators bool
		wantToken  string
		wantDenied bool
	}{
		{"owner feeds", "feed", "owner", false, "CLICK", false},
		{"owner pets", "pet", "owner", false, "HOLD", false},
		{"owner hits", "hit", "owner", false, "DOUBLE", false},
		{"owner rescues", "rescue", "owner", false, "TAP", false},
		{"owner restarts", "restart", "owner", false, "RESTART", false},
		{"spectator restart denied", "restart", "stranger", false, "", true},
		{"spectator denied", "feed", "stranger", false, "", true},
		{"spectator allowed", "pet", "stranger", true, "HOLD", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &recordPusher{}
			r := NewRouter(newTestBot(newFakePoster(), tt.spectators), p)

			reply := r.Dispatch(tt.cmd, tt.user)
			if tt.wantDenied {
				if !reply.Ephemeral || len(p.tokens) != 0 {
					t.Errorf("expected an ephemeral denial and no push, got %+v %v", reply, p.tokens)
				}
				return
			}
			if len(p.tokens) != 1 || p.tokens[0] != tt.wantToken {
				t.Errorf("expected %s pushed, got %v", tt.wantToken, p.tokens)
			}
			if reply.Content == "" {
				t.Error("expected a reply")
			}
		})
	}
}

func TestRouter_Status(t *testing.T) {
	b := newTestBot(newFakePoster(), false)
	r := NewRouter(b, &recordPusher{})
	r.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	reply := r.Dispatch("status", "stranger")
	if reply.Embed != nil || !reply.Ephemeral {
		t.Fatalf("status before the first tick should be a not-ready notice, got %+v", reply)
	}

	b.Notify(snapshot(80, false))
	reply = r.Dispatch("status", "stranger")
	if reply.Embed == nil {
		t.Fatal("expected an embed")
	}
	if reply.Embed.Color != 0x57F287 {
		t.Errorf("happy mood should be green, got %x", reply.Embed.Color)
	}
	if !strings.Contains(reply.Embed.Fields[0].Value, "feed  ██░░░░░░░░ 20/100") {
		t.Errorf("unexpected stats field %q", reply.Embed.Fields[0].Value)
	}

	b.Notify(snapshot(30, true))
	reply = r.Dispatch("status", "stranger")
	if !strings.Contains(reply.Embed.Description, "taps 2/5") {
		t.Errorf("choking status should show progress, got %q", reply.Embed.Description)
	}
}

func TestRouter_HelpAndUnknown(t *testing.T) {
	p := &recordPusher{}
	r := NewRouter(newTestBot(newFakePoster(), false), p)
	if !strings.Contains(r.Dispatch("help", "x").Content, "/rescue") {
		t.Error("help should list /rescue")
	}
	if reply := r.Dispatch("dance", "owner"); !reply.Ephemeral || len(p.tokens) != 0 {
		t.Errorf("unknown command should do nothing, got %+v", reply)
	}
}

func TestRouter_HandleMessage(t *testing.T) {
	p := &recordPusher{}
	b := newTestBot(newFakePoster(), false)
	r := NewRouter(b, p)

	if r.HandleMessage("owner", "here's a snack") == "" {
		t.Error("feeding chatter should reply")
	}
	if r.HandleMessage("owner", "who's a good boy") == "" {
		t.Error("affection chatter should reply")
	}
	if r.HandleMessage("owner", "the weather is nice") != "" {
		t.Error("unrelated chatter should be ignored")
	}
	if r.HandleMessage("stranger", "bonk") != "" {
		t.Error("spectators may not act")
	}

	b.Notify(snapshot(30, true))
	r.HandleMessage("owner", "heimlich!")

	want := []string{"CLICK", "HOLD", "TAP"}
	if strings.Join(p.tokens, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, p.tokens)
	}
}

func TestRouter_HandleInteraction(t *testing.T) {
	out := newFakePoster()
	p := &recordPusher{}
	r := NewRouter(newTestBot(out, false), p)

	r.HandleInteraction(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:   discordgo.InteractionApplicationCommand,
		Data:   discordgo.ApplicationCommandInteractionData{Name: "feed"},
		Member: &discordgo.Member{User: &discordgo.User{ID: "stranger"}},
	}})

	if len(out.responses) != 1 {
		t.Fatalf("expected one response, got %d", len(out.responses))
	}
	if out.responses[0].Data.Flags != discordgo.MessageFlagsEphemeral {
		t.Error("denial should be ephemeral")
	}
	if len(p.tokens) != 0 {
		t.Error("denied command must not push")
	}
}

func TestProgressBar(t *testing.T) {
	if got := progressBar(150, 100, 4); got != "████ 150/100" {
		t.Errorf("overflow should fill the bar, got %q", got)
	}
	if got := progressBar(0, 0, 3); got != "░░░ 0/0" {
		t.Errorf("zero limit should be empty, got %q", got)
	}
}
