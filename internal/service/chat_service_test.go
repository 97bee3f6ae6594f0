package service

import (
	"context"
	"errors"
	"testing"

	"ai-chat/internal/domain"
	"ai-chat/internal/llm"
)

type denyLimiter struct{ calls int }

func (d *denyLimiter) Allow(string) bool {
	d.calls++
	return false
}

func newChatServiceWith(providers ...llm.Provider) (*ChatService, *memoryMessageRepo) {
	repo := &memoryMessageRepo{}
	history := NewHistoryService(repo, nil)
	router := llm.NewRouter(nil, providers...)
	return NewChatService(router, history, nil, "fallback text", nil), repo
}

func TestChatServiceSendMessage_Success(t *testing.T) {
	openai := &llm.MockProvider{ProviderName: "openai", Model: "gpt-3.5-turbo", Available: true, Response: "hola!"}
	svc, repo := newChatServiceWith(openai)

	resp, err := svc.SendMessage(context.Background(), "u1", SendInput{Message: " Hello "})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Text != "hola!" || resp.Provider != "openai" || resp.Model != "gpt-3.5-turbo" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.ConversationID == "" || resp.Timestamp.IsZero() {
		t.Fatalf("expected generated conversation id and timestamp, got %+v", resp)
	}

	saved := repo.snapshot()
	if len(saved) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(saved))
	}
	user, assistant := saved[0], saved[1]
	if user.Role != domain.RoleUser || user.Content != "Hello" || user.ConversationID != resp.ConversationID {
		t.Fatalf("unexpected user message: %+v", user)
	}
	if assistant.Role != domain.RoleAssistant || assistant.Content != "hola!" || assistant.Provider != "openai" {
		t.Fatalf("unexpected assistant message: %+v", assistant)
	}
	if !assistant.CreatedAt.After(user.CreatedAt) {
		t.Fatalf("assistant turn must be created after user turn")
	}
}

func TestChatServiceSendMessage_KeepsConversationID(t *testing.T) {
	p := &llm.MockProvider{ProviderName: "openai", Available: true, Response: "ok"}
	svc, repo := newChatServiceWith(p)

	resp, err := svc.SendMessage(context.Background(), "u1", SendInput{Message: "hi", ConversationID: "conv-1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.ConversationID != "conv-1" {
		t.Fatalf("expected conv-1, got %q", resp.ConversationID)
	}
	for _, m := range repo.snapshot() {
		if m.ConversationID != "conv-1" {
			t.Fatalf("message stored under wrong conversation: %+v", m)
		}
	}
}

func TestChatServiceSendMessage_FallbackWhenNoProvider(t *testing.T) {
	a := &llm.MockProvider{ProviderName: "openai", Available: false}
	b := &llm.MockProvider{ProviderName: "gemini", Available: true, Err: errors.New("down")}
	svc, repo := newChatServiceWith(a, b)

	resp, err := svc.SendMessage(context.Background(), "u1", SendInput{Message: "hi"})
	if err != nil {
		t.Fatalf("fallback must not surface an error, got %v", err)
	}
	if resp.Provider != FallbackProvider || resp.Text != "fallback text" || resp.Model != FallbackModel {
		t.Fatalf("unexpected fallback response: %+v", resp)
	}
	saved := repo.snapshot()
	if len(saved) != 2 || saved[1].Provider != FallbackProvider {
		t.Fatalf("expected fallback assistant turn persisted, got %+v", saved)
	}
}

func TestChatServiceSendMessage_PreferredProvider(t *testing.T) {
	openai := &llm.MockProvider{ProviderName: "openai", Model: "gpt-3.5-turbo", Available: false}
	gemini := &llm.MockProvider{ProviderName: "gemini", Model: "gemini-pro", Available: true, Response: "desde gemini"}
	svc, _ := newChatServiceWith(openai, gemini)

	resp, err := svc.SendMessage(context.Background(), "u1", SendInput{Message: "Hello", Provider: "openai", Model: "gpt-3.5-turbo"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Provider != "gemini" || resp.Model != "gemini-pro" {
		t.Fatalf("expected fall through to gemini, got %+v", resp)
	}
}

func TestChatServiceSendMessage_Unauthenticated(t *testing.T) {
	p := &llm.MockProvider{ProviderName: "openai", Available: true, Response: "ok"}
	svc, repo := newChatServiceWith(p)

	if _, err := svc.SendMessage(context.Background(), "  ", SendInput{Message: "hi"}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if p.Calls() != 0 || len(repo.snapshot()) != 0 {
		t.Fatalf("unauthenticated send must not call providers or persist")
	}
}

func TestChatServiceSendMessage_EmptyMessage(t *testing.T) {
	svc, _ := newChatServiceWith()
	if _, err := svc.SendMessage(context.Background(), "u1", SendInput{Message: "   "}); !errors.Is(err, ErrMessageInvalidInput) {
		t.Fatalf("expected ErrMessageInvalidInput, got %v", err)
	}
}

func TestChatServiceSendMessage_PersistenceFailureIsSwallowed(t *testing.T) {
	p := &llm.MockProvider{ProviderName: "openai", Available: true, Response: "ok"}
	repo := &memoryMessageRepo{createErr: errors.New("db down")}
	svc := NewChatService(llm.NewRouter(nil, p), NewHistoryService(repo, nil), nil, "", nil)

	resp, err := svc.SendMessage(context.Background(), "u1", SendInput{Message: "hi"})
	if err != nil {
		t.Fatalf("persistence failure must not surface, got %v", err)
	}
	if resp.Text != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestChatServiceSendMessage_RateLimited(t *testing.T) {
	p := &llm.MockProvider{ProviderName: "openai", Available: true, Response: "ok"}
	limiter := &denyLimiter{}
	svc := NewChatService(llm.NewRouter(nil, p), nil, limiter, "", nil)

	if _, err := svc.SendMessage(context.Background(), "u1", SendInput{Message: "hi"}); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if p.Calls() != 0 || limiter.calls != 1 {
		t.Fatalf("limited send must not reach providers")
	}
}

func TestChatServiceStreamMessage(t *testing.T) {
	s := llm.MockStreamingProvider{MockProvider: &llm.MockProvider{ProviderName: "openai", Model: "gpt-4o-mini", Available: true, Chunks: []string{"Ho", "la"}}}
	svc, repo := newChatServiceWith(s)

	var chunks []string
	resp, err := svc.StreamMessage(context.Background(), "u1", SendInput{Message: "hi"}, func(c string) error {
		chunks = append(chunks, c)
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(chunks) != 2 || resp.Text != "Hola" || resp.Provider != "openai" || resp.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected stream result: chunks=%v resp=%+v", chunks, resp)
	}
	saved := repo.snapshot()
	if len(saved) != 2 || saved[1].Content != "Hola" {
		t.Fatalf("expected accumulated text persisted, got %+v", saved)
	}
}

func TestChatServiceStreamMessage_FallsBackToNonStreaming(t *testing.T) {
	plain := &llm.MockProvider{ProviderName: "gemini", Model: "gemini-pro", Available: true, Response: "respuesta completa"}
	svc, _ := newChatServiceWith(plain)

	var chunks []string
	resp, err := svc.StreamMessage(context.Background(), "u1", SendInput{Message: "hi"}, func(c string) error {
		chunks = append(chunks, c)
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "respuesta completa" || resp.Provider != "gemini" {
		t.Fatalf("unexpected result: chunks=%v resp=%+v", chunks, resp)
	}
}

func TestChatServiceStreamMessage_FailedStreamProviderNotRetried(t *testing.T) {
	openai := llm.MockStreamingProvider{MockProvider: &llm.MockProvider{
		ProviderName: "openai",
		Model:        "gpt-4o-mini",
		Available:    true,
		StreamErr:    &llm.UpstreamError{Provider: "openai", StatusCode: 500},
		Err:          &llm.UpstreamError{Provider: "openai", StatusCode: 500},
	}}
	gemini := &llm.MockProvider{ProviderName: "gemini", Model: "gemini-pro", Available: true, Response: "from gemini"}
	svc, _ := newChatServiceWith(openai, gemini)

	resp, err := svc.StreamMessage(context.Background(), "u1", SendInput{Message: "hi"}, func(string) error { return nil })
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Provider != "gemini" || resp.Text != "from gemini" {
		t.Fatalf("expected gemini reply, got %+v", resp)
	}
	if openai.Calls() != 1 {
		t.Fatalf("openai must be invoked once per send, got %d", openai.Calls())
	}
}

func TestChatServiceStreamMessage_EmptyStreamNotRetried(t *testing.T) {
	openai := llm.MockStreamingProvider{MockProvider: &llm.MockProvider{ProviderName: "openai", Model: "gpt-4o-mini", Available: true, Response: "never"}}
	svc, _ := newChatServiceWith(openai)

	resp, err := svc.StreamMessage(context.Background(), "u1", SendInput{Message: "hi"}, func(string) error { return nil })
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Provider != FallbackProvider || resp.Text != "fallback text" {
		t.Fatalf("expected fallback reply, got %+v", resp)
	}
	if openai.Calls() != 1 {
		t.Fatalf("openai must be invoked once per send, got %d", openai.Calls())
	}
}

func TestChatServiceStreamMessage_CutStreamKeepsPartialText(t *testing.T) {
	openai := llm.MockStreamingProvider{MockProvider: &llm.MockProvider{
		ProviderName: "openai",
		Model:        "gpt-4o-mini",
		Available:    true,
		Chunks:       []string{"Hola, ", "esto"},
		CutErr:       errors.New("connection reset"),
	}}
	gemini := &llm.MockProvider{ProviderName: "gemini", Model: "gemini-pro", Available: true, Response: "from gemini"}
	svc, repo := newChatServiceWith(openai, gemini)

	resp, err := svc.StreamMessage(context.Background(), "u1", SendInput{Message: "hi"}, func(string) error { return nil })
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Provider != "openai" || resp.Text != "Hola, esto" {
		t.Fatalf("expected partial openai reply, got %+v", resp)
	}
	if gemini.Calls() != 0 {
		t.Fatalf("partial stream must not trigger another provider")
	}
	saved := repo.snapshot()
	if len(saved) != 2 || saved[1].Content != "Hola, esto" {
		t.Fatalf("expected partial text persisted, got %+v", saved)
	}
}

func TestChatServiceStreamMessage_EmitErrorStopsForwarding(t *testing.T) {
	s := llm.MockStreamingProvider{MockProvider: &llm.MockProvider{ProviderName: "openai", Available: true, Chunks: []string{"a", "b", "c"}}}
	svc, repo := newChatServiceWith(s)
	gone := errors.New("client gone")

	calls := 0
	resp, err := svc.StreamMessage(context.Background(), "u1", SendInput{Message: "hi"}, func(string) error {
		calls++
		return gone
	})
	if !errors.Is(err, gone) {
		t.Fatalf("expected emit error, got %v", err)
	}
	if calls != 1 || resp.Text != "a" {
		t.Fatalf("expected forwarding to stop after first failure, calls=%d text=%q", calls, resp.Text)
	}
	if len(repo.snapshot()) != 2 {
		t.Fatalf("partial reply must still be persisted")
	}
}

func TestChatServiceStreamMessage_Unauthenticated(t *testing.T) {
	svc, _ := newChatServiceWith()
	_, err := svc.StreamMessage(context.Background(), "", SendInput{Message: "hi"}, func(string) error { return nil })
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
