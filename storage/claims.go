package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TitleClaims reserves task titles per board in Redis so concurrent add-task
// requests with the same title cannot both insert.
type TitleClaims struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTitleClaims creates claims that expire after ttl.
func NewTitleClaims(client *redis.Client, ttl time.Duration) *TitleClaims {
	return &TitleClaims{client: client, ttl: ttl}
}

func (r *TitleClaims) key(boardID, title string) string {
	return fmt.Sprintf("title-claim:%s:%s", boardID, title)
}

// Claim records the title if no claim exists. It returns true when the claim
// is newly taken.
func (r *TitleClaims) Claim(ctx context.Context, boardID, title string) (bool, error) {
	return r.client.SetNX(ctx, r.key(boardID, title), 1, r.ttl).Result()
}

// Release deletes a claim so the title may be retried after a failed insert.
func (r *TitleClaims) Release(ctx context.Context, boardID, title string) error {
	return r.client.Del(ctx, r.key(boardID, title)).Err()
}
