package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Acrellux/vctools-sub001/internal/domain/model"
	"github.com/Acrellux/vctools-sub001/internal/domain/moderr"
	pgrepo "github.com/Acrellux/vctools-sub001/internal/repo/postgres"
)

// IDFloor is the first ledger id ever allocated. Keeping it high makes
// ledger ids trivially distinguishable from legacy case numbers.
const IDFloor = 100000

const maxReasonWords = 500

type Repo interface {
	MaxID(ctx context.Context) (int64, error)
	Insert(ctx context.Context, action model.ModerationAction) error
	ListByIdentity(ctx context.Context, guildID, identity string, limit int) ([]model.ModerationAction, error)
	ListByGuild(ctx context.Context, guildID string) ([]model.ModerationAction, error)
	Delete(ctx context.Context, id int64, guildID string) (bool, error)
}

type Service struct {
	repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{repo: repo}
}

// Record persists one action and returns its allocated id. The id is read
// as max+1 without locking; a lost race surfaces as a uniqueness violation
// and is retried exactly once with a fresh max.
func (s *Service) Record(ctx context.Context, action model.ModerationAction) (int64, error) {
	if s.repo == nil {
		return 0, moderr.New(moderr.KindPersistence, "ledger store is not configured")
	}
	if action.GuildID == "" || action.TargetID == "" || action.ActorID == "" {
		return 0, moderr.New(moderr.KindValidation, "ledger record requires guild, target and actor")
	}

	action.Reason = truncateReason(action.Reason)
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now().UTC()
	}

	id, err := s.NextID(ctx)
	if err != nil {
		return 0, err
	}
	action.ID = id

	err = s.repo.Insert(ctx, action)
	if errors.Is(err, pgrepo.ErrDuplicateID) {
		id, err = s.NextID(ctx)
		if err != nil {
			return 0, err
		}
		action.ID = id
		err = s.repo.Insert(ctx, action)
	}
	if err != nil {
		return 0, moderr.Wrap(moderr.KindPersistence, "record moderation action", err)
	}

	return action.ID, nil
}

// NextID returns the floor when the store is empty, otherwise max+1.
func (s *Service) NextID(ctx context.Context) (int64, error) {
	maxID, err := s.repo.MaxID(ctx)
	if err != nil {
		return 0, moderr.Wrap(moderr.KindPersistence, "allocate ledger id", err)
	}
	if maxID == 0 {
		return IDFloor, nil
	}
	return maxID + 1, nil
}

// Query returns the guild's records where the identity appears as target or
// actor, newest first.
func (s *Service) Query(ctx context.Context, guildID, identity string, limit int) ([]model.ModerationAction, error) {
	if s.repo == nil {
		return nil, moderr.New(moderr.KindPersistence, "ledger store is not configured")
	}
	if guildID == "" || identity == "" {
		return nil, moderr.New(moderr.KindValidation, "history query requires guild and identity")
	}
	if limit <= 0 {
		limit = 10
	}

	records, err := s.repo.ListByIdentity(ctx, guildID, identity, limit)
	if err != nil {
		return nil, moderr.Wrap(moderr.KindPersistence, "query moderation history", err)
	}

	return records, nil
}

// QueryGuild returns every record of the guild, oldest first.
func (s *Service) QueryGuild(ctx context.Context, guildID string) ([]model.ModerationAction, error) {
	if s.repo == nil {
		return nil, moderr.New(moderr.KindPersistence, "ledger store is not configured")
	}
	if guildID == "" {
		return nil, moderr.New(moderr.KindValidation, "export requires a guild")
	}

	records, err := s.repo.ListByGuild(ctx, guildID)
	if err != nil {
		return nil, moderr.Wrap(moderr.KindPersistence, "query guild ledger", err)
	}

	return records, nil
}

// Delete removes a record only when it belongs to the guild. A false return
// means nothing matched in this guild; whether the id exists elsewhere is
// deliberately not revealed.
func (s *Service) Delete(ctx context.Context, id int64, guildID string) (bool, error) {
	if s.repo == nil {
		return false, moderr.New(moderr.KindPersistence, "ledger store is not configured")
	}
	if id <= 0 || guildID == "" {
		return false, moderr.New(moderr.KindValidation, "delete requires id and guild")
	}

	removed, err := s.repo.Delete(ctx, id, guildID)
	if err != nil {
		return false, moderr.Wrap(moderr.KindPersistence, "delete moderation action", err)
	}

	return removed, nil
}

func truncateReason(reason *string) *string {
	if reason == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*reason)
	if trimmed == "" {
		return nil
	}

	words := strings.Fields(trimmed)
	if len(words) <= maxReasonWords {
		return &trimmed
	}

	clipped := fmt.Sprintf("%s…", strings.Join(words[:maxReasonWords], " "))
	return &clipped
}
