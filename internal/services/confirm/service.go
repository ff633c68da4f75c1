package confirm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Acrellux/vctools-sub001/internal/domain/model"
	"github.com/Acrellux/vctools-sub001/internal/domain/moderr"
	redrepo "github.com/Acrellux/vctools-sub001/internal/repo/redis"
)

// TTL is the window in which a pending confirmation may be approved.
const TTL = 5 * time.Minute

var (
	ErrExpired      = moderr.New(moderr.KindNotFound, "confirmation expired, re-run the command")
	ErrWrongGuild   = moderr.New(moderr.KindAuthorization, "confirmation belongs to another server")
	ErrNotRequester = moderr.New(moderr.KindAuthorization, "confirmation belongs to another operator")
)

type Repo interface {
	Save(ctx context.Context, pending model.PendingConfirmation, ttl time.Duration) error
	Get(ctx context.Context, token string) (model.PendingConfirmation, error)
	Delete(ctx context.Context, token string) error
}

type Service struct {
	repo Repo
	now  func() time.Time
}

func NewService(repo Repo) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Request registers a confirmation and returns its single-use token.
// Target ids are deduplicated preserving first occurrence.
func (s *Service) Request(ctx context.Context, guildID, requesterID string, targetIDs []string, reason string) (string, error) {
	if s.repo == nil {
		return "", moderr.New(moderr.KindPersistence, "confirmation registry is not configured")
	}
	if guildID == "" || requesterID == "" {
		return "", moderr.New(moderr.KindValidation, "confirmation requires guild and requester")
	}

	targets := dedupe(targetIDs)
	if len(targets) == 0 {
		return "", moderr.New(moderr.KindValidation, "confirmation requires at least one target")
	}

	pending := model.PendingConfirmation{
		Token:       uuid.NewString(),
		GuildID:     guildID,
		RequesterID: requesterID,
		TargetIDs:   targets,
		Reason:      reason,
		CreatedAt:   s.now(),
	}

	if err := s.repo.Save(ctx, pending, TTL); err != nil {
		return "", moderr.Wrap(moderr.KindPersistence, "save pending confirmation", err)
	}

	return pending.Token, nil
}

// Validate runs the approval checks in their required order: existence,
// guild, requester, then age. The age check runs even for a matching
// requester so a stale-but-present token is still rejected and removed.
func (s *Service) Validate(ctx context.Context, token, actorID, guildID string) (model.PendingConfirmation, error) {
	if s.repo == nil {
		return model.PendingConfirmation{}, moderr.New(moderr.KindPersistence, "confirmation registry is not configured")
	}

	pending, err := s.repo.Get(ctx, token)
	if errors.Is(err, redrepo.ErrConfirmationNotFound) {
		return model.PendingConfirmation{}, ErrExpired
	}
	if err != nil {
		return model.PendingConfirmation{}, moderr.Wrap(moderr.KindPersistence, "load pending confirmation", err)
	}

	if pending.GuildID != guildID {
		return model.PendingConfirmation{}, ErrWrongGuild
	}
	if pending.RequesterID != actorID {
		return model.PendingConfirmation{}, ErrNotRequester
	}
	if s.now().Sub(pending.CreatedAt) > TTL {
		_ = s.repo.Delete(ctx, token)
		return model.PendingConfirmation{}, ErrExpired
	}

	return pending, nil
}

// Consume removes the token. Consuming an absent token is a no-op.
func (s *Service) Consume(ctx context.Context, token string) error {
	if s.repo == nil {
		return moderr.New(moderr.KindPersistence, "confirmation registry is not configured")
	}
	if err := s.repo.Delete(ctx, token); err != nil {
		return moderr.Wrap(moderr.KindPersistence, "consume pending confirmation", err)
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
