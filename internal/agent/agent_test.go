package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/zkblueprint/internal/llm"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type call struct {
	system   string
	messages []llm.Message
	params   llm.Params
}

// fakeProvider records every request and answers from reply.
type fakeProvider struct {
	mu    sync.Mutex
	calls []call
	reply func(n int, messages []llm.Message) (string, error)
}

func (f *fakeProvider) Send(ctx context.Context, system string, messages []llm.Message, params llm.Params) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := make([]llm.Message, len(messages))
	copy(msgs, messages)
	f.calls = append(f.calls, call{system: system, messages: msgs, params: params})
	if f.reply == nil {
		return "reply", nil
	}
	return f.reply(len(f.calls), msgs)
}

func numbered() *fakeProvider {
	return &fakeProvider{reply: func(n int, _ []llm.Message) (string, error) {
		return fmt.Sprintf("reply-%d", n), nil
	}}
}

func TestThink_SystemInstructionAndParams(t *testing.T) {
	p := numbered()
	a := New(Config{Name: "partsExtractor", Role: "text analysis specialist", SystemPrompt: "Extract parts."}, p)

	if _, err := a.Think(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "You are partsExtractor, a text analysis specialist. Respond concisely and stay in character. Extract parts."
	if p.calls[0].system != want {
		t.Errorf("system instruction:\n got %q\nwant %q", p.calls[0].system, want)
	}
	if p.calls[0].params.Temperature != 0 {
		t.Errorf("expected temperature 0, got %v", p.calls[0].params.Temperature)
	}
	if p.calls[0].params.MaxTokens != 1000 {
		t.Errorf("expected max tokens 1000, got %d", p.calls[0].params.MaxTokens)
	}
}

func TestThink_DefaultSystemPrompt(t *testing.T) {
	p := numbered()
	a := New(Config{Name: "critic", Role: "reviewer"}, p)

	if _, err := a.Think(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	persona := "You are critic, a reviewer. Respond concisely and stay in character."
	if p.calls[0].system != persona+" "+persona {
		t.Errorf("unexpected system instruction %q", p.calls[0].system)
	}
}

func TestThink_AccumulatesHistory(t *testing.T) {
	p := numbered()
	a := New(Config{Name: "a", Role: "r"}, p)
	ctx := context.Background()

	if _, err := a.Think(ctx, "first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(a.History()); got != 2 {
		t.Fatalf("expected history length 2, got %d", got)
	}

	if _, err := a.Think(ctx, "second"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(a.History()); got != 4 {
		t.Fatalf("expected history length 4, got %d", got)
	}

	second := p.calls[1].messages
	want := []llm.Message{
		{Role: llm.RoleUser, Content: "first"},
		{Role: llm.RoleAssistant, Content: "reply-1"},
		{Role: llm.RoleUser, Content: "second"},
	}
	if len(second) != len(want) {
		t.Fatalf("expected %d replayed messages, got %d", len(want), len(second))
	}
	for i := range want {
		if second[i] != want[i] {
			t.Errorf("message %d: got %+v, want %+v", i, second[i], want[i])
		}
	}
}

func TestThink_ReplayWindow(t *testing.T) {
	p := numbered()
	a := New(Config{Name: "a", Role: "r"}, p)
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		if _, err := a.Think(ctx, fmt.Sprintf("msg-%d", i)); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if _, err := a.Think(ctx, "msg-7"); err != nil {
		t.Fatalf("call 7: %v", err)
	}

	seventh := p.calls[6].messages
	if len(seventh) != 6 {
		t.Fatalf("expected 5 history entries plus the new message, got %d messages", len(seventh))
	}
	// History before the 7th call holds 12 entries; the last five start at
	// the 4th reply.
	if seventh[0] != (llm.Message{Role: llm.RoleAssistant, Content: "reply-4"}) {
		t.Errorf("unexpected first replayed entry %+v", seventh[0])
	}
	if seventh[4] != (llm.Message{Role: llm.RoleAssistant, Content: "reply-6"}) {
		t.Errorf("unexpected last replayed entry %+v", seventh[4])
	}
	if seventh[5] != (llm.Message{Role: llm.RoleUser, Content: "msg-7"}) {
		t.Errorf("unexpected new message %+v", seventh[5])
	}
	if got := len(a.History()); got != 14 {
		t.Errorf("expected full history of 14 entries, got %d", got)
	}
}

func TestThink_EmptyReply(t *testing.T) {
	p := &fakeProvider{reply: func(int, []llm.Message) (string, error) { return "", nil }}
	a := New(Config{Name: "a", Role: "r"}, p)

	got, err := a.Think(context.Background(), "hi")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "" {
		t.Errorf("expected empty reply, got %q", got)
	}
	if len(a.History()) != 2 {
		t.Errorf("expected exchange to be recorded")
	}
}

func TestThink_ProviderError(t *testing.T) {
	boom := errors.New("rate limited")
	p := &fakeProvider{reply: func(int, []llm.Message) (string, error) { return "", boom }}
	a := New(Config{Name: "a", Role: "r"}, p)

	_, err := a.Think(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "Provider API Error: rate limited" {
		t.Errorf("unexpected error message %q", err.Error())
	}
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Errorf("expected *ProviderError, got %T", err)
	}
	if !errors.Is(err, boom) {
		t.Error("expected wrapped provider error to unwrap")
	}
	if len(a.History()) != 0 {
		t.Error("failed call must not touch history")
	}
}

func TestThink_ContextErrorUnchanged(t *testing.T) {
	p := &fakeProvider{reply: func(int, []llm.Message) (string, error) { return "", context.Canceled }}
	a := New(Config{Name: "a", Role: "r"}, p)

	_, err := a.Think(context.Background(), "hi")
	if err != context.Canceled {
		t.Errorf("expected context.Canceled unchanged, got %v", err)
	}
}

func TestThink_RateLimitDeadlineIsNotProviderError(t *testing.T) {
	a := New(Config{Name: "a", Role: "r"}, llm.WithRateLimit(numbered(), 1))

	if _, err := a.Think(context.Background(), "first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := a.Think(ctx, "second")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		t.Errorf("deadline should not be reported as a provider error: %v", err)
	}
	if len(a.History()) != 2 {
		t.Errorf("failed call must not touch history, got %d entries", len(a.History()))
	}
}

func TestThink_ConcurrentCallsKeepHistoryConsistent(t *testing.T) {
	p := numbered()
	a := New(Config{Name: "a", Role: "r"}, p)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := a.Think(context.Background(), fmt.Sprintf("m%d", i)); err != nil {
				t.Errorf("call %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	h := a.History()
	if len(h) != 40 {
		t.Fatalf("expected 40 history entries, got %d", len(h))
	}
	for i := 0; i < len(h); i += 2 {
		if h[i].Role != llm.RoleUser || h[i+1].Role != llm.RoleAssistant {
			t.Fatalf("entries %d/%d are not a user/assistant pair", i, i+1)
		}
		if !strings.HasPrefix(h[i].Content, "m") {
			t.Errorf("unexpected user entry %q", h[i].Content)
		}
	}
}
