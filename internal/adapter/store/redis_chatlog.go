package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"loantrack-core/internal/domain/entity"
)

// pendingTTL bounds how long a clarifying question stays open before the
// session falls back to idle on its own.
const pendingTTL = 15 * time.Minute

// RedisChatLog keeps the append-only conversation log (one list per session)
// and the single pending-question flag of the follow-up loop. Session ids
// are opaque correlation ids; nothing here depends on them being stable.
type RedisChatLog struct {
	client *redis.Client
}

func NewRedisChatLog(client *redis.Client) *RedisChatLog {
	return &RedisChatLog{client: client}
}

func (r *RedisChatLog) Append(ctx context.Context, sessionID string, turn entity.ConversationTurn) error {
	raw, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	return r.client.RPush(ctx, "chat:"+sessionID, raw).Err()
}

// Recent returns the last n turns, oldest first.
func (r *RedisChatLog) Recent(ctx context.Context, sessionID string, n int64) ([]entity.ConversationTurn, error) {
	raws, err := r.client.LRange(ctx, "chat:"+sessionID, -n, -1).Result()
	if err != nil {
		return nil, err
	}
	turns := make([]entity.ConversationTurn, 0, len(raws))
	for _, raw := range raws {
		var turn entity.ConversationTurn
		if err := json.Unmarshal([]byte(raw), &turn); err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (r *RedisChatLog) SetPendingQuestion(ctx context.Context, sessionID, question string) error {
	return r.client.Set(ctx, "pending:"+sessionID, question, pendingTTL).Err()
}

func (r *RedisChatLog) ClearPendingQuestion(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, "pending:"+sessionID).Err()
}

func (r *RedisChatLog) PendingQuestion(ctx context.Context, sessionID string) (string, bool, error) {
	q, err := r.client.Get(ctx, "pending:"+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return q, true, nil
}
