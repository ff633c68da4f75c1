package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Acrellux/vctools-sub001/internal/domain/model"
)

var ErrContextNotFound = errors.New("flow context not found")

const contextKeyPrefix = "flowctx:"

// ContextsRepo stores at most one flow context per actor; Set always
// overwrites (last write wins).
type ContextsRepo struct {
	client *goredis.Client
}

func NewContextsRepo(client *goredis.Client) *ContextsRepo {
	return &ContextsRepo{client: client}
}

func (r *ContextsRepo) Set(ctx context.Context, flow model.FlowContext, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if ttl <= 0 {
		return fmt.Errorf("flow context ttl must be positive")
	}

	payload, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("marshal flow context: %w", err)
	}

	if err := r.client.Set(ctx, contextKey(flow.ActorID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save flow context: %w", err)
	}

	return nil
}

func (r *ContextsRepo) Get(ctx context.Context, actorID string) (model.FlowContext, error) {
	if r.client == nil {
		return model.FlowContext{}, fmt.Errorf("redis client is nil")
	}

	raw, err := r.client.Get(ctx, contextKey(actorID)).Bytes()
	if err == goredis.Nil {
		return model.FlowContext{}, ErrContextNotFound
	}
	if err != nil {
		return model.FlowContext{}, fmt.Errorf("read flow context: %w", err)
	}

	var flow model.FlowContext
	if err := json.Unmarshal(raw, &flow); err != nil {
		return model.FlowContext{}, fmt.Errorf("decode flow context: %w", err)
	}

	return flow, nil
}

func (r *ContextsRepo) Delete(ctx context.Context, actorID string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	if err := r.client.Del(ctx, contextKey(actorID)).Err(); err != nil {
		return fmt.Errorf("delete flow context: %w", err)
	}

	return nil
}

func contextKey(actorID string) string {
	return contextKeyPrefix + actorID
}
