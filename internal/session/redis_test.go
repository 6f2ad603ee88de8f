package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreWithClient(client), mr
}

func TestRedisGetUnknownReturnsAbsent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)
	sess, err := s.GetSession(ctx, "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess != nil {
		t.Fatalf("want absent, got %+v", sess)
	}
}

func TestRedisCreateSeedsAndUsesKeyPrefix(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)

	sess, err := s.CreateSession(ctx, "42", "be helpful")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(sess.History) != 1 || sess.History[0].Role != RoleSystem || sess.History[0].Message != "be helpful" {
		t.Fatalf("unexpected seed: %+v", sess.History)
	}

	if !mr.Exists("chat_session:42") {
		t.Fatalf("expected key chat_session:42 in redis")
	}
	elems, err := mr.List("chat_session:42")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(elems) != 1 {
		t.Fatalf("want 1 list element, got %d", len(elems))
	}
	rec, err := DecodeRecord([]byte(elems[0]))
	if err != nil {
		t.Fatalf("stored element does not decode: %v", err)
	}
	if rec.Message != "be helpful" {
		t.Fatalf("unexpected stored seed: %+v", rec)
	}
}

func TestRedisCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)

	first, err := s.CreateSession(ctx, "42", "first prompt")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := s.CreateSession(ctx, "42", "second prompt")
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if len(second.History) != 1 || second.History[0] != first.History[0] {
		t.Fatalf("seed replaced on recreate: %+v", second.History)
	}
}

func TestRedisAppendOrderPreserved(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)

	if _, err := s.CreateSession(ctx, "42", "be helpful"); err != nil {
		t.Fatalf("create: %v", err)
	}
	r1 := Record{UserID: "7", Role: RoleUser, Message: "hi"}
	r2 := Record{UserID: "bot", Role: RoleAssistant, Message: "hello!"}
	sess, err := s.AddMessage(ctx, "42", r1)
	if err != nil {
		t.Fatalf("append r1: %v", err)
	}
	if len(sess.History) != 2 {
		t.Fatalf("want 2 records after first append, got %d", len(sess.History))
	}
	sess, err = s.AddMessage(ctx, "42", r2)
	if err != nil {
		t.Fatalf("append r2: %v", err)
	}
	want := []Record{
		{UserID: "developer", Role: RoleSystem, Message: "be helpful"},
		r1,
		r2,
	}
	if len(sess.History) != len(want) {
		t.Fatalf("want %d records, got %d", len(want), len(sess.History))
	}
	for i := range want {
		if sess.History[i] != want[i] {
			t.Fatalf("history[%d] mismatch: want %+v, got %+v", i, want[i], sess.History[i])
		}
	}
}

func TestRedisAddMessageUnknownSession(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)
	_, err := s.AddMessage(ctx, "nope", Record{UserID: "1", Role: RoleUser, Message: "x"})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
	if mr.Exists("chat_session:nope") {
		t.Fatalf("failed append must not create the key")
	}
}

func TestRedisHistorySurvivesRestart(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	c1 := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s1 := NewRedisStoreWithClient(c1)
	if _, err := s1.CreateSession(ctx, "42", "be helpful"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s1.AddMessage(ctx, "42", Record{UserID: "7", Role: RoleUser, Message: "hi"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// A fresh store over the same backend sees the full history.
	c2 := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c2.Close() })
	s2 := NewRedisStoreWithClient(c2)
	sess, err := s2.GetSession(ctx, "42")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess == nil || len(sess.History) != 2 {
		t.Fatalf("history lost across stores: %+v", sess)
	}
	if sess.History[1].Message != "hi" {
		t.Fatalf("unexpected history: %+v", sess.History)
	}
}

func TestRedisConcurrentAppendsNoLoss(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)
	if _, err := s.CreateSession(ctx, "42", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := Record{UserID: "7", Role: RoleUser, Message: fmt.Sprintf("msg-%d", i)}
			if _, err := s.AddMessage(ctx, "42", rec); err != nil {
				t.Errorf("append %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	sess, err := s.GetSession(ctx, "42")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(sess.History) != n+1 {
		t.Fatalf("want %d records, got %d", n+1, len(sess.History))
	}
	seen := make(map[string]int)
	for _, r := range sess.History[1:] {
		seen[r.Message]++
	}
	for i := 0; i < n; i++ {
		if seen[fmt.Sprintf("msg-%d", i)] != 1 {
			t.Fatalf("msg-%d appears %d times", i, seen[fmt.Sprintf("msg-%d", i)])
		}
	}
}

func TestRedisConcurrentCreateSingleSeed(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.CreateSession(ctx, "42", "be helpful"); err != nil {
				t.Errorf("create: %v", err)
			}
		}()
	}
	wg.Wait()

	elems, err := mr.List("chat_session:42")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(elems) != 1 {
		t.Fatalf("concurrent creators seeded %d records, want 1", len(elems))
	}
}

func TestRedisCorruptRecordSurfacesError(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)
	if _, err := s.CreateSession(ctx, "42", "be helpful"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := mr.Push("chat_session:42", "not json"); err != nil {
		t.Fatalf("push garbage: %v", err)
	}
	_, err := s.GetSession(ctx, "42")
	if !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("want ErrCorruptRecord, got %v", err)
	}
}

func TestRedisEnumerationUnsupported(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)
	_, err := s.AllSessions(ctx)
	if !errors.Is(err, ErrEnumerationUnsupported) {
		t.Fatalf("want ErrEnumerationUnsupported, got %v", err)
	}
}

func TestRedisEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)

	sess, err := s.CreateSession(ctx, "42", "be helpful")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(sess.History) != 1 {
		t.Fatalf("want seed only, got %d records", len(sess.History))
	}
	if sess, err = s.AddMessage(ctx, "42", Record{UserID: "7", Role: RoleUser, Message: "hi"}); err != nil {
		t.Fatalf("append user: %v", err)
	}
	if len(sess.History) != 2 {
		t.Fatalf("want 2 records, got %d", len(sess.History))
	}
	if _, err = s.AddMessage(ctx, "42", Record{UserID: "bot", Role: RoleAssistant, Message: "hello!"}); err != nil {
		t.Fatalf("append assistant: %v", err)
	}

	sess, err = s.GetSession(ctx, "42")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	roles := []Role{RoleSystem, RoleUser, RoleAssistant}
	texts := []string{"be helpful", "hi", "hello!"}
	if len(sess.History) != 3 {
		t.Fatalf("want 3 records, got %d", len(sess.History))
	}
	for i := range roles {
		if sess.History[i].Role != roles[i] || sess.History[i].Message != texts[i] {
			t.Fatalf("history[%d] mismatch: %+v", i, sess.History[i])
		}
	}
}
