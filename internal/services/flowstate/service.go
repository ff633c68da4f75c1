package flowstate

import (
	"context"
	"errors"
	"time"

	"github.com/Acrellux/vctools-sub001/internal/domain/model"
	"github.com/Acrellux/vctools-sub001/internal/domain/moderr"
	redrepo "github.com/Acrellux/vctools-sub001/internal/repo/redis"
)

// TTL bounds how long an abandoned flow keeps its context around.
const TTL = 15 * time.Minute

type Repo interface {
	Set(ctx context.Context, flow model.FlowContext, ttl time.Duration) error
	Get(ctx context.Context, actorID string) (model.FlowContext, error)
	Delete(ctx context.Context, actorID string) error
}

type Service struct {
	repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{repo: repo}
}

// Set stores the actor's flow context, replacing any previous one.
func (s *Service) Set(ctx context.Context, flow model.FlowContext) error {
	if s.repo == nil {
		return moderr.New(moderr.KindPersistence, "flow context store is not configured")
	}
	if flow.ActorID == "" {
		return moderr.New(moderr.KindValidation, "flow context requires an actor")
	}

	if err := s.repo.Set(ctx, flow, TTL); err != nil {
		return moderr.Wrap(moderr.KindPersistence, "save flow context", err)
	}
	return nil
}

// Get returns the actor's context. A missing context is not an error: the
// second return reports whether a flow is active.
func (s *Service) Get(ctx context.Context, actorID string) (model.FlowContext, bool, error) {
	if s.repo == nil {
		return model.FlowContext{}, false, moderr.New(moderr.KindPersistence, "flow context store is not configured")
	}

	flow, err := s.repo.Get(ctx, actorID)
	if errors.Is(err, redrepo.ErrContextNotFound) {
		return model.FlowContext{}, false, nil
	}
	if err != nil {
		return model.FlowContext{}, false, moderr.Wrap(moderr.KindPersistence, "load flow context", err)
	}

	return flow, true, nil
}

func (s *Service) Clear(ctx context.Context, actorID string) error {
	if s.repo == nil {
		return moderr.New(moderr.KindPersistence, "flow context store is not configured")
	}
	if err := s.repo.Delete(ctx, actorID); err != nil {
		return moderr.Wrap(moderr.KindPersistence, "clear flow context", err)
	}
	return nil
}
