package llm

import (
	"context"
	"fmt"
	"log"

	"discord-chatter/internal/session"
)

// Interactor is the capability the front-end consumes: it owns reading and
// writing conversation history through session.Storage and talking to a model.
type Interactor interface {
	// StartSession creates (or re-opens) the session for the given id.
	StartSession(ctx context.Context, sessionID string) error
	// SendMessage appends the user's message to the session, generates a
	// reply over the accumulated history, persists the reply and returns it.
	SendMessage(ctx context.Context, sessionID, userID, text string) (string, error)
	// KnownSession reports whether the session id has been started.
	KnownSession(ctx context.Context, sessionID string) bool
	Name() string
}

// ChatInteractor drives a plain chat-completion Client over stored history.
type ChatInteractor struct {
	name         string
	client       Client
	store        session.Storage
	systemPrompt string
}

func NewChatInteractor(name string, client Client, store session.Storage, systemPrompt string) *ChatInteractor {
	return &ChatInteractor{
		name:         name,
		client:       client,
		store:        store,
		systemPrompt: systemPrompt,
	}
}

func (c *ChatInteractor) Name() string { return c.name }

// Close releases the underlying client when it holds resources (the Yandex
// client runs a token-refresh schedule).
func (c *ChatInteractor) Close() error {
	if cl, ok := c.client.(interface{ Close() }); ok {
		cl.Close()
	}
	return nil
}

func (c *ChatInteractor) StartSession(ctx context.Context, sessionID string) error {
	_, err := c.store.CreateSession(ctx, sessionID, c.systemPrompt)
	return err
}

func (c *ChatInteractor) KnownSession(ctx context.Context, sessionID string) bool {
	sess, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		log.Printf("failed to look up session %s: %v", sessionID, err)
		return false
	}
	return sess != nil
}

func (c *ChatInteractor) SendMessage(ctx context.Context, sessionID, userID, text string) (string, error) {
	sess, err := appendUserMessage(ctx, c.store, sessionID, userID, text)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Generate(ctx, historyMessages(sess))
	if err != nil {
		return "", fmt.Errorf("generate for session %s: %w", sessionID, err)
	}
	log.Printf("LLM response [model=%s, tokens: prompt=%d, completion=%d, total=%d]",
		resp.Model, resp.PromptTokens, resp.CompletionTokens, resp.TotalTokens)

	return persistReply(ctx, c.store, sessionID, resp.Content)
}

// appendUserMessage persists the user's turn before any model call so the
// message survives even if generation fails.
func appendUserMessage(ctx context.Context, store session.Storage, sessionID, userID, text string) (*session.ChatSession, error) {
	rec := session.Record{UserID: userID, Role: session.RoleUser, Message: text}
	sess, err := store.AddMessage(ctx, sessionID, rec)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func persistReply(ctx context.Context, store session.Storage, sessionID, content string) (string, error) {
	rec := session.Record{UserID: "bot", Role: session.RoleAssistant, Message: content}
	if _, err := store.AddMessage(ctx, sessionID, rec); err != nil {
		return "", fmt.Errorf("persist assistant reply for session %s: %w", sessionID, err)
	}
	return content, nil
}

// historyMessages converts a session snapshot into the model context.
func historyMessages(sess *session.ChatSession) []Message {
	out := make([]Message, 0, len(sess.History))
	for _, r := range sess.History {
		out = append(out, Message{Role: string(r.Role), Content: r.Message})
	}
	return out
}
