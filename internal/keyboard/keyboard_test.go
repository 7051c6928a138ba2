package keyboard

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordPusher struct {
	mu     sync.Mutex
	tokens []string
}

func (r *recordPusher) Push(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, s)
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"a", "CLICK", true},
		{"S", "HOLD", true},
		{" d ", "DOUBLE", true},
		{"f", "TAP", true},
		{"HOLD", "HOLD", true},
		{"TAP", "TAP", true},
		{"r", "RESTART", true},
		{"RESTART", "", false},
		{"hold", "", false},
		{"x", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Translate(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Translate(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRun_PipedInput(t *testing.T) {
	in := strings.NewReader("a\nbogus\n\ns\nDOUBLE\n?\nf\n")
	k := New(in, nil)
	if k.Interactive() {
		t.Fatal("a strings.Reader is never a terminal")
	}

	p := &recordPusher{}
	if err := k.Run(context.Background(), p); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"CLICK", "HOLD", "DOUBLE", "TAP"}
	if strings.Join(p.tokens, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, p.tokens)
	}
}

type blockingReader struct{ release chan struct{} }

func (b *blockingReader) Read(p []byte) (int, error) {
	<-b.release
	return 0, io.EOF
}

func TestRun_StopsOnCancel(t *testing.T) {
	br := &blockingReader{release: make(chan struct{})}
	defer close(br.release)
	k := New(br, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- k.Run(ctx, &recordPusher{}) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
