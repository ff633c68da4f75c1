package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Acrellux/vctools-sub001/internal/domain/model"
	"github.com/Acrellux/vctools-sub001/internal/domain/moderr"
)

// LinkTTL bounds how long an export download link stays valid.
const LinkTTL = 15 * time.Minute

type Ledger interface {
	QueryGuild(ctx context.Context, guildID string) ([]model.ModerationAction, error)
}

// Store persists an export artifact and issues a presigned link for it.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Service struct {
	ledger Ledger
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewService(ledger Ledger, store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ledger: ledger,
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Enabled() bool {
	return s != nil && s.store != nil
}

type Result struct {
	Records int
	Key     string
	URL     string
}

// GuildLedgerCSV renders the guild's full ledger as CSV, uploads it and
// returns a short-lived download link.
func (s *Service) GuildLedgerCSV(ctx context.Context, guildID string) (Result, error) {
	if !s.Enabled() {
		return Result{}, moderr.New(moderr.KindPersistence, "export storage is not configured")
	}
	if s.ledger == nil {
		return Result{}, moderr.New(moderr.KindPersistence, "ledger is not configured")
	}
	if guildID == "" {
		return Result{}, moderr.New(moderr.KindValidation, "export requires a guild")
	}

	records, err := s.ledger.QueryGuild(ctx, guildID)
	if err != nil {
		return Result{}, err
	}
	if len(records) == 0 {
		return Result{}, moderr.New(moderr.KindNotFound, "guild has no ledger records")
	}

	data, err := renderCSV(records)
	if err != nil {
		return Result{}, moderr.Wrap(moderr.KindPersistence, "render ledger csv", err)
	}

	key := fmt.Sprintf("exports/%s/ledger-%s.csv", guildID, s.now().Format("20060102-150405"))
	if err := s.store.Put(ctx, key, "text/csv", data); err != nil {
		return Result{}, moderr.Wrap(moderr.KindPersistence, "upload ledger export", err)
	}

	url, err := s.store.PresignGet(ctx, key, LinkTTL)
	if err != nil {
		return Result{}, moderr.Wrap(moderr.KindPersistence, "presign ledger export", err)
	}

	s.logger.Info("ledger exported", "guild_id", guildID, "records", len(records), "key", key)
	return Result{Records: len(records), Key: key, URL: url}, nil
}

func renderCSV(records []model.ModerationAction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"id", "target_id", "actor_id", "kind", "reason", "duration_seconds", "created_at"}); err != nil {
		return nil, err
	}

	for _, record := range records {
		reason := ""
		if record.Reason != nil {
			reason = *record.Reason
		}
		duration := ""
		if record.DurationSeconds != nil {
			duration = strconv.FormatInt(*record.DurationSeconds, 10)
		}

		row := []string{
			strconv.FormatInt(record.ID, 10),
			record.TargetID,
			record.ActorID,
			string(record.Kind),
			reason,
			duration,
			record.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
