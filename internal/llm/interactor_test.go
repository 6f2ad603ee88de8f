package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"discord-chatter/internal/session"
)

type fakeClient struct {
	reply string
	err   error
	calls [][]Message
}

func (f *fakeClient) Generate(_ context.Context, msgs []Message) (Response, error) {
	cp := make([]Message, len(msgs))
	copy(cp, msgs)
	f.calls = append(f.calls, cp)
	if f.err != nil {
		return Response{}, f.err
	}
	return Response{Content: f.reply, Model: "fake"}, nil
}

func (f *fakeClient) GenerateWithTools(ctx context.Context, msgs []Message, _ []Tool) (Response, error) {
	return f.Generate(ctx, msgs)
}

func TestChatInteractorSendMessage(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	client := &fakeClient{reply: "hello!"}
	it := NewChatInteractor("test", client, store, "be helpful")

	if err := it.StartSession(ctx, "42"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if !it.KnownSession(ctx, "42") {
		t.Fatalf("session 42 should be known after start")
	}

	reply, err := it.SendMessage(ctx, "42", "7", "hi")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if reply != "hello!" {
		t.Fatalf("unexpected reply: %q", reply)
	}

	// The model saw the seed plus the new user turn.
	if len(client.calls) != 1 {
		t.Fatalf("want 1 generate call, got %d", len(client.calls))
	}
	got := client.calls[0]
	if len(got) != 2 || got[0].Role != "system" || got[1].Role != "user" || got[1].Content != "hi" {
		t.Fatalf("unexpected model context: %+v", got)
	}

	// Both turns were persisted, in order.
	sess, err := store.GetSession(ctx, "42")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	roles := []session.Role{session.RoleSystem, session.RoleUser, session.RoleAssistant}
	if len(sess.History) != len(roles) {
		t.Fatalf("want %d records, got %d", len(roles), len(sess.History))
	}
	for i, role := range roles {
		if sess.History[i].Role != role {
			t.Fatalf("history[%d] role: want %s, got %s", i, role, sess.History[i].Role)
		}
	}
	if sess.History[2].Message != "hello!" {
		t.Fatalf("assistant record mismatch: %+v", sess.History[2])
	}
}

func TestChatInteractorUnknownSession(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	it := NewChatInteractor("test", &fakeClient{reply: "x"}, store, "")

	if it.KnownSession(ctx, "42") {
		t.Fatalf("session 42 should not be known")
	}
	_, err := it.SendMessage(ctx, "42", "7", "hi")
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
}

func TestChatInteractorGenerateFailureKeepsUserTurn(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	client := &fakeClient{err: fmt.Errorf("backend down")}
	it := NewChatInteractor("test", client, store, "be helpful")

	if err := it.StartSession(ctx, "42"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := it.SendMessage(ctx, "42", "7", "hi"); err == nil {
		t.Fatalf("want error from failing backend")
	}

	// The user's message was persisted before the model call; no assistant
	// record was written.
	sess, err := store.GetSession(ctx, "42")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if len(sess.History) != 2 || sess.History[1].Role != session.RoleUser {
		t.Fatalf("unexpected history after failure: %+v", sess.History)
	}
}

func TestAgentInteractorWithoutTools(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	client := &fakeClient{reply: "done"}
	it := NewAgentInteractor("agent", client, nil, store, "be helpful")

	if err := it.StartSession(ctx, "42"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	reply, err := it.SendMessage(ctx, "42", "7", "hi")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if reply != "done" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	sess, err := store.GetSession(ctx, "42")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if len(sess.History) != 3 || sess.History[2].Message != "done" {
		t.Fatalf("unexpected history: %+v", sess.History)
	}
}
