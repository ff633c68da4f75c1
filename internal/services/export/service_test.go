package export

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Acrellux/vctools-sub001/internal/domain/enums"
	"github.com/Acrellux/vctools-sub001/internal/domain/model"
	"github.com/Acrellux/vctools-sub001/internal/domain/moderr"
)

type fakeLedger struct {
	records []model.ModerationAction
}

func (l *fakeLedger) QueryGuild(_ context.Context, guildID string) ([]model.ModerationAction, error) {
	result := make([]model.ModerationAction, 0)
	for _, record := range l.records {
		if record.GuildID == guildID {
			result = append(result, record)
		}
	}
	return result, nil
}

type fakeStore struct {
	key  string
	data []byte
}

func (s *fakeStore) Put(_ context.Context, key, _ string, data []byte) error {
	s.key = key
	s.data = data
	return nil
}

func (s *fakeStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://exports.local/" + key, nil
}

func strPtr(v string) *string { return &v }

func int64Ptr(v int64) *int64 { return &v }

func TestGuildLedgerCSV(t *testing.T) {
	when := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{records: []model.ModerationAction{
		{ID: 100000, GuildID: "g1", TargetID: "u1", ActorID: "mod", Kind: enums.ActionMute, Reason: strPtr("spam, repeated"), DurationSeconds: int64Ptr(7200), CreatedAt: when},
		{ID: 100001, GuildID: "g1", TargetID: "u2", ActorID: "mod", Kind: enums.ActionBan, CreatedAt: when},
		{ID: 100002, GuildID: "g2", TargetID: "u3", ActorID: "mod", Kind: enums.ActionWarn, CreatedAt: when},
	}}
	store := &fakeStore{}
	svc := NewService(ledger, store, nil)
	svc.now = func() time.Time { return when }

	result, err := svc.GuildLedgerCSV(context.Background(), "g1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.Records != 2 {
		t.Fatalf("expected 2 records exported, got %d", result.Records)
	}
	if !strings.HasPrefix(result.URL, "https://exports.local/exports/g1/") {
		t.Fatalf("unexpected link %q", result.URL)
	}

	content := string(store.data)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], `"spam, repeated"`) {
		t.Fatalf("expected quoted comma reason, got %q", lines[1])
	}
	if strings.Contains(content, "u3") {
		t.Fatal("export must stay inside the requested guild")
	}
}

func TestGuildLedgerCSVEmptyGuild(t *testing.T) {
	svc := NewService(&fakeLedger{}, &fakeStore{}, nil)

	_, err := svc.GuildLedgerCSV(context.Background(), "g1")
	if moderr.KindOf(err) != moderr.KindNotFound {
		t.Fatalf("expected not-found for empty guild, got %v", err)
	}
}

func TestGuildLedgerCSVRequiresStore(t *testing.T) {
	svc := NewService(&fakeLedger{}, nil, nil)

	if svc.Enabled() {
		t.Fatal("service without a store must report disabled")
	}
	if _, err := svc.GuildLedgerCSV(context.Background(), "g1"); err == nil {
		t.Fatal("expected error without a store")
	}
}
