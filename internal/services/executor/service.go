package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/Acrellux/vctools-sub001/internal/domain/enums"
	"github.com/Acrellux/vctools-sub001/internal/domain/model"
	"github.com/Acrellux/vctools-sub001/internal/domain/moderr"
	"github.com/Acrellux/vctools-sub001/internal/ui"
)

// MaxMuteDuration is the platform ceiling for a member timeout.
const MaxMuteDuration = 28 * 24 * time.Hour

// Platform is the chat-platform surface the executor mutates. MemberRank
// returns a NotFound-kind error for identities that are not members.
type Platform interface {
	CanModerate(ctx context.Context, guildID, actorID string, kind enums.ActionKind) (bool, error)
	IsGuildOwner(ctx context.Context, guildID, userID string) (bool, error)
	MemberRank(ctx context.Context, guildID, userID string) (int, error)
	BotRank(ctx context.Context, guildID string) (int, error)
	Timeout(ctx context.Context, guildID, userID string, until time.Time, reason string) error
	ClearTimeout(ctx context.Context, guildID, userID string) error
	Kick(ctx context.Context, guildID, userID, reason string) error
	Ban(ctx context.Context, guildID, userID, reason string) error
	Unban(ctx context.Context, guildID, userID string) error
	DirectMessage(ctx context.Context, userID, content string) error
}

type Ledger interface {
	Record(ctx context.Context, action model.ModerationAction) (int64, error)
}

type Service struct {
	platform Platform
	ledger   Ledger
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(platform Platform, ledger Ledger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		platform: platform,
		ledger:   ledger,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type Input struct {
	GuildID  string
	ActorID  string
	TargetID string
	Kind     enums.ActionKind
	Reason   string
	Duration time.Duration
}

type Result struct {
	LedgerID int64
	// LedgerDegraded reports that the platform effect succeeded but the
	// audit write did not. The action stands; only the record is missing.
	LedgerDegraded bool
}

// Execute validates, performs the platform effect, notifies the target and
// writes the ledger record. All preconditions run before any mutation.
func (s *Service) Execute(ctx context.Context, in Input) (Result, error) {
	if s.platform == nil {
		return Result{}, moderr.New(moderr.KindPersistence, "platform adapter is not configured")
	}
	if in.GuildID == "" || in.ActorID == "" || in.TargetID == "" {
		return Result{}, moderr.New(moderr.KindValidation, "action requires guild, actor and target")
	}
	if in.ActorID == in.TargetID {
		return Result{}, moderr.New(moderr.KindValidation, "cannot moderate yourself")
	}
	if _, ok := enums.ParseActionKind(string(in.Kind)); !ok || in.Kind == enums.ActionClean {
		return Result{}, moderr.New(moderr.KindValidation, "unsupported action kind")
	}

	if in.Kind.AllowsDuration() {
		if in.Duration <= 0 {
			return Result{}, moderr.New(moderr.KindValidation, "mute requires a positive duration")
		}
		if in.Duration > MaxMuteDuration {
			return Result{}, moderr.New(moderr.KindValidation, "mute duration exceeds the 28 day ceiling")
		}
	} else if in.Duration != 0 {
		return Result{}, moderr.New(moderr.KindValidation, "duration is only valid for mute")
	}

	allowed, err := s.platform.CanModerate(ctx, in.GuildID, in.ActorID, in.Kind)
	if err != nil {
		return Result{}, moderr.Wrap(moderr.KindTransient, "check actor capability", err)
	}
	if !allowed {
		return Result{}, moderr.New(moderr.KindAuthorization, "not allowed")
	}

	if err := s.checkTargetStanding(ctx, in); err != nil {
		return Result{}, err
	}

	notice := ui.ActionNotice(in.Kind, in.Reason, in.Duration)

	// Kick and ban remove the target from the guild; a DM after removal
	// cannot be delivered, so the notice goes out first.
	if in.Kind == enums.ActionKick || in.Kind == enums.ActionBan {
		s.notify(ctx, in.TargetID, notice)
	}

	if err := s.applyEffect(ctx, in); err != nil {
		return Result{}, err
	}

	switch in.Kind {
	case enums.ActionMute, enums.ActionUnmute, enums.ActionWarn, enums.ActionUnban:
		s.notify(ctx, in.TargetID, notice)
	}

	return s.record(ctx, in), nil
}

// checkTargetStanding enforces the owner and rank rules. Identities that
// are not members (ban by id, unban) have no standing to compare.
func (s *Service) checkTargetStanding(ctx context.Context, in Input) error {
	if in.Kind == enums.ActionUnban {
		return nil
	}

	owner, err := s.platform.IsGuildOwner(ctx, in.GuildID, in.TargetID)
	if err != nil {
		return moderr.Wrap(moderr.KindTransient, "check guild owner", err)
	}
	if owner {
		return moderr.New(moderr.KindAuthorization, "not allowed")
	}

	targetRank, err := s.platform.MemberRank(ctx, in.GuildID, in.TargetID)
	if err != nil {
		if moderr.IsNotFound(err) && in.Kind == enums.ActionBan {
			// Banning an identity that is not a member: no rank to compare.
			return nil
		}
		return moderr.Wrap(moderr.KindTransient, "resolve target rank", err)
	}

	actorRank, err := s.platform.MemberRank(ctx, in.GuildID, in.ActorID)
	if err != nil {
		return moderr.Wrap(moderr.KindTransient, "resolve actor rank", err)
	}
	botRank, err := s.platform.BotRank(ctx, in.GuildID)
	if err != nil {
		return moderr.Wrap(moderr.KindTransient, "resolve bot rank", err)
	}

	if targetRank >= actorRank || targetRank >= botRank {
		return moderr.New(moderr.KindAuthorization, "not allowed")
	}

	return nil
}

func (s *Service) applyEffect(ctx context.Context, in Input) error {
	var err error
	switch in.Kind {
	case enums.ActionMute:
		err = s.platform.Timeout(ctx, in.GuildID, in.TargetID, s.now().Add(in.Duration), in.Reason)
	case enums.ActionUnmute:
		err = s.platform.ClearTimeout(ctx, in.GuildID, in.TargetID)
	case enums.ActionWarn:
		// The warning is the notification itself; no guild-side effect.
	case enums.ActionKick:
		err = s.platform.Kick(ctx, in.GuildID, in.TargetID, in.Reason)
	case enums.ActionBan:
		err = s.platform.Ban(ctx, in.GuildID, in.TargetID, in.Reason)
	case enums.ActionUnban:
		err = s.platform.Unban(ctx, in.GuildID, in.TargetID)
	}
	if err != nil {
		return moderr.Wrap(moderr.KindTransient, "apply platform effect", err)
	}
	return nil
}

// record writes the ledger row. The platform effect already happened, so a
// store failure degrades the result instead of failing the action.
func (s *Service) record(ctx context.Context, in Input) Result {
	action := model.ModerationAction{
		GuildID:   in.GuildID,
		TargetID:  in.TargetID,
		ActorID:   in.ActorID,
		Kind:      in.Kind,
		CreatedAt: s.now(),
	}
	if in.Reason != "" {
		reason := in.Reason
		action.Reason = &reason
	}
	if in.Kind.AllowsDuration() {
		seconds := int64(in.Duration / time.Second)
		action.DurationSeconds = &seconds
	}

	if s.ledger == nil {
		s.logger.Error("ledger unavailable, action not recorded", "guild_id", in.GuildID, "kind", in.Kind)
		return Result{LedgerDegraded: true}
	}

	id, err := s.ledger.Record(ctx, action)
	if err != nil {
		s.logger.Error("record moderation action", "error", err, "guild_id", in.GuildID, "kind", in.Kind, "target_id", in.TargetID)
		return Result{LedgerDegraded: true}
	}

	return Result{LedgerID: id}
}

func (s *Service) notify(ctx context.Context, targetID, content string) {
	if err := s.platform.DirectMessage(ctx, targetID, content); err != nil {
		// Privacy settings commonly block DMs; never fail the action on it.
		s.logger.Debug("notify target", "error", err, "target_id", targetID)
	}
}
