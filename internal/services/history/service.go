package history

import (
	"context"
	"time"

	"github.com/Acrellux/vctools-sub001/internal/domain/model"
	"github.com/Acrellux/vctools-sub001/internal/domain/moderr"
	"github.com/Acrellux/vctools-sub001/internal/ui"
)

const (
	// PageSize is fixed; navigation works in whole pages of this size.
	PageSize = 5
	// ControlTTL is how long navigation buttons stay live. Expired controls
	// are disabled in place, not removed.
	ControlTTL = 60 * time.Second
)

// Navigation actions carried in control identifiers.
const (
	NavFirst = "first"
	NavPrev  = "prev"
	NavNext  = "next"
	NavLast  = "last"
)

type Ledger interface {
	Query(ctx context.Context, guildID, identity string, limit int) ([]model.ModerationAction, error)
}

// NameResolver resolves a display name for an identity. It is only ever
// called for identities that already have a confirmed record in the guild
// being rendered; resolving before that check would leak identity metadata
// across tenants.
type NameResolver interface {
	DisplayName(ctx context.Context, guildID, userID string) (string, error)
}

type Service struct {
	ledger   Ledger
	resolver NameResolver
}

func NewService(ledger Ledger, resolver NameResolver) *Service {
	return &Service{ledger: ledger, resolver: resolver}
}

// Load fetches the records backing a paginator session.
func (s *Service) Load(ctx context.Context, guildID, identity string, limit int) ([]model.ModerationAction, error) {
	if s.ledger == nil {
		return nil, moderr.New(moderr.KindPersistence, "ledger is not configured")
	}
	return s.ledger.Query(ctx, guildID, identity, limit)
}

// PageCount returns the number of pages for n records, at least 1.
func PageCount(n int) int {
	if n <= 0 {
		return 1
	}
	return (n + PageSize - 1) / PageSize
}

// Navigate maps a nav action to the next page index, clamped to
// [0, pages-1] no matter what the current index claims.
func Navigate(action string, page, pages int) (int, error) {
	if pages <= 0 {
		pages = 1
	}
	last := pages - 1

	switch action {
	case NavFirst:
		return 0, nil
	case NavPrev:
		page--
	case NavNext:
		page++
	case NavLast:
		return last, nil
	default:
		return 0, moderr.New(moderr.KindValidation, "unknown navigation action")
	}

	if page < 0 {
		page = 0
	}
	if page > last {
		page = last
	}
	return page, nil
}

// RenderPage renders one table page. Display names are resolved only for
// identities present in the tenant-scoped record set; an empty set renders
// a "nothing here" message without touching the resolver.
func (s *Service) RenderPage(ctx context.Context, guildID string, records []model.ModerationAction, page int) (string, int) {
	if len(records) == 0 {
		return ui.MsgNothingHere, 0
	}

	pages := PageCount(len(records))
	if page < 0 {
		page = 0
	}
	if page > pages-1 {
		page = pages - 1
	}

	start := page * PageSize
	end := start + PageSize
	if end > len(records) {
		end = len(records)
	}

	names := make(map[string]string)
	rows := make([]ui.HistoryRow, 0, end-start)
	for _, record := range records[start:end] {
		rows = append(rows, ui.HistoryRow{
			ID:        record.ID,
			User:      s.resolveName(ctx, names, guildID, record.TargetID),
			Moderator: s.resolveName(ctx, names, guildID, record.ActorID),
			CreatedAt: record.CreatedAt,
			Kind:      string(record.Kind),
			Reason:    reasonText(record.Reason),
		})
	}

	return ui.RenderHistoryTable(rows), page
}

func (s *Service) resolveName(ctx context.Context, cache map[string]string, guildID, userID string) string {
	if name, ok := cache[userID]; ok {
		return name
	}

	name := userID
	if s.resolver != nil {
		if resolved, err := s.resolver.DisplayName(ctx, guildID, userID); err == nil && resolved != "" {
			name = resolved
		}
	}

	cache[userID] = name
	return name
}

func reasonText(reason *string) string {
	if reason == nil {
		return ""
	}
	return *reason
}
