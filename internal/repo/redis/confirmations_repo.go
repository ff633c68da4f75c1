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

var ErrConfirmationNotFound = errors.New("pending confirmation not found")

const confirmationKeyPrefix = "confirm:"

type ConfirmationsRepo struct {
	client *goredis.Client
}

func NewConfirmationsRepo(client *goredis.Client) *ConfirmationsRepo {
	return &ConfirmationsRepo{client: client}
}

func (r *ConfirmationsRepo) Save(ctx context.Context, pending model.PendingConfirmation, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if ttl <= 0 {
		return fmt.Errorf("confirmation ttl must be positive")
	}

	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal pending confirmation: %w", err)
	}

	if err := r.client.Set(ctx, confirmationKey(pending.Token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save pending confirmation: %w", err)
	}

	return nil
}

func (r *ConfirmationsRepo) Get(ctx context.Context, token string) (model.PendingConfirmation, error) {
	if r.client == nil {
		return model.PendingConfirmation{}, fmt.Errorf("redis client is nil")
	}

	raw, err := r.client.Get(ctx, confirmationKey(token)).Bytes()
	if err == goredis.Nil {
		return model.PendingConfirmation{}, ErrConfirmationNotFound
	}
	if err != nil {
		return model.PendingConfirmation{}, fmt.Errorf("read pending confirmation: %w", err)
	}

	var pending model.PendingConfirmation
	if err := json.Unmarshal(raw, &pending); err != nil {
		return model.PendingConfirmation{}, fmt.Errorf("decode pending confirmation: %w", err)
	}

	return pending, nil
}

// Delete is idempotent: removing an absent token is a no-op.
func (r *ConfirmationsRepo) Delete(ctx context.Context, token string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	if err := r.client.Del(ctx, confirmationKey(token)).Err(); err != nil {
		return fmt.Errorf("delete pending confirmation: %w", err)
	}

	return nil
}

func confirmationKey(token string) string {
	return confirmationKeyPrefix + token
}
