package purge

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Acrellux/vctools-sub001/internal/domain/enums"
	"github.com/Acrellux/vctools-sub001/internal/domain/model"
	"github.com/Acrellux/vctools-sub001/internal/domain/moderr"
	"github.com/Acrellux/vctools-sub001/internal/ui"
)

type Mode string

const (
	ModeCount Mode = "count"
	ModeTime  Mode = "time"
)

const (
	// MaxCount caps a count-mode run per operation.
	MaxCount = 100
	// MaxWindow is the platform's retroactive bulk-deletion limit. Older
	// messages must be skipped, not attempted.
	MaxWindow = 14 * 24 * time.Hour
	// SafetyMargin keeps very recent messages out of a run; deleting inside
	// the platform's consistency window is unreliable.
	SafetyMargin = 10 * time.Second

	fetchBatch = 100
	// progressEvery is how often (in channels) the status edit is refreshed
	// after the first one.
	progressEvery = 5
)

type Message struct {
	ID        string
	AuthorID  string
	Pinned    bool
	CreatedAt time.Time
}

// Channels is the platform's message surface. ListBefore pages backward
// through a channel newest-first; an empty beforeID starts at the top.
type Channels interface {
	ListBefore(ctx context.Context, channelID, beforeID string, limit int) ([]Message, error)
	DeleteBatch(ctx context.Context, channelID string, ids []string) error
	Delete(ctx context.Context, channelID, id string) error
}

// Progress receives periodic status updates. Implementations edit one
// status message in place rather than posting new ones.
type Progress interface {
	Update(ctx context.Context, content string) error
}

type Ledger interface {
	Record(ctx context.Context, action model.ModerationAction) (int64, error)
}

type Service struct {
	channels Channels
	ledger   Ledger
	logger   *slog.Logger
	now      func() time.Time
	// pause between fetch/delete batches so one purge does not hog the
	// platform budget; tests set it to zero.
	pause time.Duration
}

func NewService(channels Channels, ledger Ledger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		channels: channels,
		ledger:   ledger,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		pause:    300 * time.Millisecond,
	}
}

type Input struct {
	GuildID    string
	ActorID    string
	TargetID   string
	Mode       Mode
	Count      int
	Window     time.Duration
	ChannelIDs []string
}

type Result struct {
	Deleted         int
	LedgerID        int64
	LedgerDegraded  bool
	NothingEligible bool
}

// Run walks the channel list sequentially and deletes the target's
// messages within the mode's bounds.
func (s *Service) Run(ctx context.Context, in Input, progress Progress) (Result, error) {
	if s.channels == nil {
		return Result{}, moderr.New(moderr.KindPersistence, "platform channels are not configured")
	}
	if in.GuildID == "" || in.ActorID == "" || in.TargetID == "" {
		return Result{}, moderr.New(moderr.KindValidation, "purge requires guild, actor and target")
	}
	if len(in.ChannelIDs) == 0 {
		return Result{}, moderr.New(moderr.KindValidation, "purge requires at least one channel")
	}

	var limit int
	window := MaxWindow
	switch in.Mode {
	case ModeCount:
		if in.Count <= 0 {
			return Result{}, moderr.New(moderr.KindValidation, "count must be positive")
		}
		limit = in.Count
		if limit > MaxCount {
			limit = MaxCount
		}
	case ModeTime:
		if in.Window <= 0 {
			return Result{}, moderr.New(moderr.KindValidation, "time window must be positive")
		}
		window = in.Window
		if window > MaxWindow {
			window = MaxWindow
		}
	default:
		return Result{}, moderr.New(moderr.KindValidation, "unknown purge mode")
	}

	now := s.now()
	cutoff := now.Add(-window)
	hardLimit := now.Add(-MaxWindow)
	recentBound := now.Add(-SafetyMargin)

	deleted := 0
	for i, channelID := range in.ChannelIDs {
		if err := ctx.Err(); err != nil {
			return Result{}, moderr.Wrap(moderr.KindTransient, "purge interrupted", err)
		}

		n, capped := s.purgeChannel(ctx, channelID, in.TargetID, cutoff, hardLimit, recentBound, remaining(limit, deleted))
		deleted += n

		if progress != nil && (i == 0 || (i+1)%progressEvery == 0) {
			if err := progress.Update(ctx, ui.PurgeProgress(deleted, i+1, len(in.ChannelIDs))); err != nil {
				s.logger.Debug("update purge progress", "error", err, "channel_id", channelID)
			}
		}

		if capped {
			break
		}
	}

	if deleted == 0 {
		s.report(ctx, progress, ui.MsgNothingToPurge)
		return Result{NothingEligible: true}, nil
	}

	value := window.String()
	if in.Mode == ModeCount {
		value = strconv.Itoa(limit)
	}
	s.report(ctx, progress, ui.PurgeReport(deleted, string(in.Mode), value))

	return s.finish(ctx, in, deleted, window), nil
}

// report rewrites the status line with the run's outcome.
func (s *Service) report(ctx context.Context, progress Progress, content string) {
	if progress == nil {
		return
	}
	if err := progress.Update(ctx, content); err != nil {
		s.logger.Debug("update purge status", "error", err)
	}
}

// remaining returns how many more deletions the cap allows; zero means
// unlimited (time mode).
func remaining(limit, deleted int) int {
	if limit <= 0 {
		return 0
	}
	left := limit - deleted
	if left < 0 {
		return -1
	}
	return left
}

// purgeChannel scans one channel backward. It returns the number of
// deletions and whether the per-operation cap was hit.
func (s *Service) purgeChannel(ctx context.Context, channelID, targetID string, cutoff, hardLimit, recentBound time.Time, left int) (int, bool) {
	if left < 0 {
		return 0, true
	}

	deleted := 0
	before := ""

	for {
		batch, err := s.listWithRetry(ctx, channelID, before)
		if err != nil {
			s.logger.Warn("list channel messages", "error", err, "channel_id", channelID)
			return deleted, false
		}
		if len(batch) == 0 {
			return deleted, false
		}

		eligible := make([]string, 0, len(batch))
		for _, msg := range batch {
			if msg.AuthorID != targetID || msg.Pinned {
				continue
			}
			if !msg.CreatedAt.Before(recentBound) {
				continue
			}
			if !msg.CreatedAt.After(hardLimit) {
				continue
			}
			if msg.CreatedAt.Before(cutoff) {
				continue
			}
			eligible = append(eligible, msg.ID)
			if left > 0 && deleted+len(eligible) >= left {
				break
			}
		}

		deleted += s.deleteMessages(ctx, channelID, eligible)

		if left > 0 && deleted >= left {
			return deleted, true
		}

		oldest := batch[len(batch)-1]
		if oldest.CreatedAt.Before(cutoff) {
			return deleted, false
		}
		if len(batch) < fetchBatch {
			return deleted, false
		}

		before = oldest.ID
		s.yield(ctx)
	}
}

func (s *Service) listWithRetry(ctx context.Context, channelID, before string) ([]Message, error) {
	batch, err := s.channels.ListBefore(ctx, channelID, before, fetchBatch)
	if err == nil {
		return batch, nil
	}
	s.yield(ctx)
	return s.channels.ListBefore(ctx, channelID, before, fetchBatch)
}

// deleteMessages bulk-deletes and falls back to per-message deletion so one
// bad message does not void the whole batch.
func (s *Service) deleteMessages(ctx context.Context, channelID string, ids []string) int {
	if len(ids) == 0 {
		return 0
	}

	if len(ids) == 1 {
		if err := s.channels.Delete(ctx, channelID, ids[0]); err != nil {
			s.logger.Warn("delete message", "error", err, "channel_id", channelID, "message_id", ids[0])
			return 0
		}
		return 1
	}

	if err := s.channels.DeleteBatch(ctx, channelID, ids); err == nil {
		return len(ids)
	}

	deleted := 0
	for _, id := range ids {
		if err := s.channels.Delete(ctx, channelID, id); err != nil {
			s.logger.Warn("delete message after batch failure", "error", err, "channel_id", channelID, "message_id", id)
			continue
		}
		deleted++
	}
	return deleted
}

func (s *Service) finish(ctx context.Context, in Input, deleted int, window time.Duration) Result {
	result := Result{Deleted: deleted}

	reason := cleanReason(in, deleted, window)
	action := model.ModerationAction{
		GuildID:   in.GuildID,
		TargetID:  in.TargetID,
		ActorID:   in.ActorID,
		Kind:      enums.ActionClean,
		Reason:    &reason,
		CreatedAt: s.now(),
	}

	if s.ledger == nil {
		result.LedgerDegraded = true
		return result
	}

	id, err := s.ledger.Record(ctx, action)
	if err != nil {
		s.logger.Error("record clean action", "error", err, "guild_id", in.GuildID, "target_id", in.TargetID)
		result.LedgerDegraded = true
		return result
	}

	result.LedgerID = id
	return result
}

func cleanReason(in Input, deleted int, window time.Duration) string {
	switch in.Mode {
	case ModeCount:
		requested := in.Count
		if requested > MaxCount {
			requested = MaxCount
		}
		return fmt.Sprintf("clean: count mode, %d of %d requested", deleted, requested)
	case ModeTime:
		return fmt.Sprintf("clean: time mode, last %s, %d deleted", window, deleted)
	default:
		return strings.TrimSpace(fmt.Sprintf("clean: %d deleted", deleted))
	}
}

func (s *Service) yield(ctx context.Context) {
	if s.pause <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(s.pause):
	}
}
