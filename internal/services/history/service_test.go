package history

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Acrellux/vctools-sub001/internal/domain/enums"
	"github.com/Acrellux/vctools-sub001/internal/domain/model"
	"github.com/Acrellux/vctools-sub001/internal/ui"
)

type fakeLedger struct {
	records []model.ModerationAction
}

func (l *fakeLedger) Query(_ context.Context, guildID, identity string, limit int) ([]model.ModerationAction, error) {
	result := make([]model.ModerationAction, 0)
	for _, record := range l.records {
		if record.GuildID != guildID {
			continue
		}
		if record.TargetID != identity && record.ActorID != identity {
			continue
		}
		result = append(result, record)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

type countingResolver struct {
	calls int
	names map[string]string
}

func (r *countingResolver) DisplayName(_ context.Context, _, userID string) (string, error) {
	r.calls++
	if name, ok := r.names[userID]; ok {
		return name, nil
	}
	return "", nil
}

func makeRecords(n int) []model.ModerationAction {
	records := make([]model.ModerationAction, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, model.ModerationAction{
			ID:        int64(100000 + n - i),
			GuildID:   "g1",
			TargetID:  "u1",
			ActorID:   "mod",
			Kind:      enums.ActionWarn,
			CreatedAt: time.Now().UTC(),
		})
	}
	return records
}

func TestNavigateStaysInBounds(t *testing.T) {
	for _, n := range []int{1, 4, 5, 6, 23, 100} {
		pages := PageCount(n)
		last := pages - 1

		for page := -2; page <= last+2; page++ {
			for _, action := range []string{NavFirst, NavPrev, NavNext, NavLast} {
				next, err := Navigate(action, page, pages)
				if err != nil {
					t.Fatalf("navigate %s: %v", action, err)
				}
				if next < 0 || next > last {
					t.Fatalf("n=%d action=%s page=%d produced out-of-bounds index %d", n, action, page, next)
				}
			}
		}
	}
}

func TestNavigateTransitions(t *testing.T) {
	pages := PageCount(23) // 5 pages

	if next, _ := Navigate(NavFirst, 3, pages); next != 0 {
		t.Fatalf("first from 3: got %d", next)
	}
	if next, _ := Navigate(NavPrev, 0, pages); next != 0 {
		t.Fatalf("prev from 0 must clamp: got %d", next)
	}
	if next, _ := Navigate(NavNext, 4, pages); next != 4 {
		t.Fatalf("next from last must clamp: got %d", next)
	}
	if next, _ := Navigate(NavLast, 1, pages); next != 4 {
		t.Fatalf("last: got %d", next)
	}
	if _, err := Navigate("sideways", 0, pages); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestRenderPageSlicesFixedSize(t *testing.T) {
	resolver := &countingResolver{names: map[string]string{}}
	svc := NewService(&fakeLedger{}, resolver)

	records := makeRecords(12)
	content, page := svc.RenderPage(context.Background(), "g1", records, 2)
	if page != 2 {
		t.Fatalf("expected page 2, got %d", page)
	}

	lines := strings.Split(content, "\n")
	// header + the 2 records on the final partial page
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines on last page, got %d: %q", len(lines), content)
	}
}

func TestRenderPageClampsOutOfRangePage(t *testing.T) {
	svc := NewService(&fakeLedger{}, &countingResolver{names: map[string]string{}})

	records := makeRecords(7)
	_, page := svc.RenderPage(context.Background(), "g1", records, 99)
	if page != 1 {
		t.Fatalf("expected clamp to last page 1, got %d", page)
	}
}

func TestEmptyResultNeverResolvesNames(t *testing.T) {
	resolver := &countingResolver{names: map[string]string{"u1": "Someone"}}
	svc := NewService(&fakeLedger{}, resolver)

	records, err := svc.Load(context.Background(), "g1", "u1", 10)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}

	content, _ := svc.RenderPage(context.Background(), "g1", records, 0)
	if content != ui.MsgNothingHere {
		t.Fatalf("expected empty message, got %q", content)
	}
	if resolver.calls != 0 {
		t.Fatalf("resolver must not run without a tenant-scoped history hit, got %d calls", resolver.calls)
	}
}

func TestRenderPageUsesResolvedNames(t *testing.T) {
	resolver := &countingResolver{names: map[string]string{"u1": "Spammer", "mod": "Mod"}}
	svc := NewService(&fakeLedger{}, resolver)

	content, _ := svc.RenderPage(context.Background(), "g1", makeRecords(1), 0)
	if !strings.Contains(content, "Spammer") || !strings.Contains(content, "Mod") {
		t.Fatalf("expected resolved names in table, got %q", content)
	}
}
