package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ANTOSOJAN/task-management-system/domain"
	"github.com/ANTOSOJAN/task-management-system/storage/memory"
)

func TestTitleClaims(t *testing.T) {
	mr, client := newRedis(t)
	claims := NewTitleClaims(client, 10*time.Second)
	ctx := context.Background()

	won, err := claims.Claim(ctx, "b1", "Draft roadmap")
	if err != nil || !won {
		t.Fatalf("expected first claim to win, got %v %v", won, err)
	}
	won, err = claims.Claim(ctx, "b1", "Draft roadmap")
	if err != nil || won {
		t.Fatalf("expected second claim to lose, got %v %v", won, err)
	}
	if won, _ := claims.Claim(ctx, "b2", "Draft roadmap"); !won {
		t.Fatalf("claims must be scoped per board")
	}

	if err := claims.Release(ctx, "b1", "Draft roadmap"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if won, _ := claims.Claim(ctx, "b1", "Draft roadmap"); !won {
		t.Fatalf("expected claim after release to win")
	}

	mr.FastForward(11 * time.Second)
	if won, _ := claims.Claim(ctx, "b2", "Draft roadmap"); !won {
		t.Fatalf("expected expired claim to be taken again")
	}
}

func TestTitleClaimsDoNotOutliveTheTask(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()
	store := memory.New()
	n := 0
	svc := domain.NewService(store, log.New(),
		domain.WithTitleClaims(NewTitleClaims(client, 10*time.Second)),
		domain.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}))
	alice := &domain.Identity{UserID: "uid-a", Email: "alice@example.com"}

	if out := svc.CreateBoard(ctx, alice, "Board", ""); out.Tag != "" {
		t.Fatalf("create board: %s", out.Location())
	}
	board := domain.BoardPath("id-1")
	expect := func(out domain.Outcome, want string) {
		t.Helper()
		if got := out.Location(); got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}

	expect(svc.AddTask(ctx, alice, "id-1", domain.TaskInput{Title: "A"}), board)
	expect(svc.AddTask(ctx, alice, "id-1", domain.TaskInput{Title: "A"}), board+"?error=task_exists")
	expect(svc.DeleteTask(ctx, alice, "id-1", "id-2"), board)
	expect(svc.AddTask(ctx, alice, "id-1", domain.TaskInput{Title: "A"}), board)

	expect(svc.AddTask(ctx, alice, "id-1", domain.TaskInput{Title: "C"}), board)
	expect(svc.EditTask(ctx, alice, "id-1", "id-4", domain.TaskInput{Title: "D"}), board)
	expect(svc.AddTask(ctx, alice, "id-1", domain.TaskInput{Title: "C"}), board)

	if keys, err := client.Keys(ctx, "title-claim:*").Result(); err != nil || len(keys) != 0 {
		t.Fatalf("expected no claims left, got %v %v", keys, err)
	}
}
