package app

import (
	"context"

	"github.com/Acrellux/vctools-sub001/internal/domain/enums"
	"github.com/Acrellux/vctools-sub001/internal/domain/model"
	"github.com/Acrellux/vctools-sub001/internal/services/executor"
	"github.com/Acrellux/vctools-sub001/internal/services/purge"
)

// The methods below are the surface command handlers call into. They stay
// thin: validation and sequencing live in the services.

func (a *App) ExecuteAction(ctx context.Context, in executor.Input) (executor.Result, error) {
	return a.executorService.Execute(ctx, in)
}

func (a *App) QueryHistory(ctx context.Context, guildID, identity string, limit int) ([]model.ModerationAction, error) {
	return a.ledgerService.Query(ctx, guildID, identity, limit)
}

func (a *App) DeleteAction(ctx context.Context, id int64, guildID string) (bool, error) {
	return a.ledgerService.Delete(ctx, id, guildID)
}

func (a *App) RequestConfirmation(ctx context.Context, guildID, requesterID string, targetIDs []string, reason string) (string, error) {
	return a.confirmService.Request(ctx, guildID, requesterID, targetIDs, reason)
}

// ResolveOutcome summarizes one confirmation resolution.
type ResolveOutcome struct {
	Approved  bool
	Executed  int
	Failed    int
	LedgerIDs []int64
}

// ResolveConfirmation validates the token against the acting operator and
// tenant, then either bans every confirmed target or just discards the
// token. The token is consumed in both branches.
func (a *App) ResolveConfirmation(ctx context.Context, token string, approve bool, actorID, guildID string) (ResolveOutcome, error) {
	pending, err := a.confirmService.Validate(ctx, token, actorID, guildID)
	if err != nil {
		return ResolveOutcome{}, err
	}

	if err := a.confirmService.Consume(ctx, token); err != nil {
		return ResolveOutcome{}, err
	}

	if !approve {
		return ResolveOutcome{}, nil
	}

	outcome := ResolveOutcome{Approved: true}
	for _, targetID := range pending.TargetIDs {
		result, err := a.executorService.Execute(ctx, executor.Input{
			GuildID:  pending.GuildID,
			ActorID:  pending.RequesterID,
			TargetID: targetID,
			Kind:     enums.ActionBan,
			Reason:   pending.Reason,
		})
		if err != nil {
			a.logger.Warn("execute confirmed ban", "error", err, "guild_id", pending.GuildID, "target_id", targetID)
			outcome.Failed++
			continue
		}
		outcome.Executed++
		if result.LedgerID != 0 {
			outcome.LedgerIDs = append(outcome.LedgerIDs, result.LedgerID)
		}
	}

	return outcome, nil
}

// ModeratorActivity summarizes the guild's ledger per moderator.
func (a *App) ModeratorActivity(ctx context.Context, guildID string) (model.ActivityReport, error) {
	return a.statsService.BuildReport(ctx, guildID)
}

func (a *App) PurgeMessages(ctx context.Context, in purge.Input, progress purge.Progress) (purge.Result, error) {
	return a.purgeService.Run(ctx, in, progress)
}

// Dispatch routes one UI callback through the interaction router.
func (a *App) Dispatch(ctx context.Context, cb Callback, surface ResponseSurface) {
	a.router.Dispatch(ctx, cb, surface)
}
