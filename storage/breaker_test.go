package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/sony/gobreaker"

	"github.com/ANTOSOJAN/task-management-system/domain"
	"github.com/ANTOSOJAN/task-management-system/storage/memory"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	base := &countingStore{Store: memory.New(), err: errors.New("store down")}
	logger, hook := test.NewNullLogger()
	b := NewBreaker(base, BreakerSettings{MaxFailures: 3, OpenTimeout: time.Hour}, logger)

	for i := 0; i < 3; i++ {
		if _, err := b.FindUserByID(ctx, "uid"); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", b.State())
	}
	if _, err := b.FindUserByID(ctx, "uid"); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected ErrOpenState, got %v", err)
	}
	if base.findCalls != 3 {
		t.Fatalf("open breaker must not reach the store, calls=%d", base.findCalls)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Message != "circuit breaker state changed" || entry.Level != log.WarnLevel {
		t.Fatalf("expected state change on the given logger, got %+v", entry)
	}
	if entry.Data["to"] != gobreaker.StateOpen.String() {
		t.Fatalf("unexpected state change fields %#v", entry.Data)
	}
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(memory.New(), BreakerSettings{MaxFailures: 2, OpenTimeout: time.Hour}, nil)

	for i := 0; i < 5; i++ {
		if err := b.AddUserBoard(ctx, "ghost@example.com", "b1"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}
	if b.State() != gobreaker.StateClosed {
		t.Fatalf("not-found answers must not trip the breaker, state %s", b.State())
	}
	if u, err := b.GetUser(ctx, "ghost@example.com"); err != nil || u != nil {
		t.Fatalf("expected absent user through breaker, got %+v %v", u, err)
	}
}

func TestBreakerPassesResults(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(memory.New(), BreakerSettings{}, nil)
	if err := b.CreateBoard(ctx, domain.Board{ID: "b1", Title: "t"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	board, err := b.GetBoard(ctx, "b1")
	if err != nil || board == nil || board.Title != "t" {
		t.Fatalf("unexpected board %+v %v", board, err)
	}
	if has, err := b.BoardHasTasks(ctx, "b1"); err != nil || has {
		t.Fatalf("unexpected has tasks %v %v", has, err)
	}
	if err := b.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
