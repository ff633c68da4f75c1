package app

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Acrellux/vctools-sub001/internal/domain/enums"
	"github.com/Acrellux/vctools-sub001/internal/domain/model"
	"github.com/Acrellux/vctools-sub001/internal/services/history"
	"github.com/Acrellux/vctools-sub001/internal/ui"
)

type fakeHistoryLedger struct {
	records []model.ModerationAction
}

func (l *fakeHistoryLedger) Query(_ context.Context, _, _ string, _ int) ([]model.ModerationAction, error) {
	return l.records, nil
}

func historyTestApp(n int) *App {
	ledger := &fakeHistoryLedger{}
	for i := 0; i < n; i++ {
		ledger.records = append(ledger.records, model.ModerationAction{
			ID:        100000 + int64(i),
			GuildID:   "g1",
			TargetID:  "member",
			ActorID:   "mod",
			Kind:      enums.ActionWarn,
			CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
		})
	}
	return &App{
		historyService: history.NewService(ledger, nil),
		logger:         discardLogger(),
	}
}

func historyCallback(t *testing.T, controlID string) (Callback, model.ControlID) {
	t.Helper()
	control, err := parseControlID(controlID)
	if err != nil {
		t.Fatalf("parse control %q: %v", controlID, err)
	}
	return Callback{
		CallbackID: "cb-" + controlID,
		ControlID:  controlID,
		ActorID:    control.OwnerID,
		GuildID:    "g1",
	}, control
}

func buttonByLabel(t *testing.T, buttons []ui.Button, label string) ui.Button {
	t.Helper()
	for _, button := range buttons {
		if button.Label == label {
			return button
		}
	}
	t.Fatalf("no %q button in %v", label, buttons)
	return ui.Button{}
}

// Pressing "next" must rewrite the panel and re-bind the controls to the
// page being shown, so repeated presses walk forward instead of replaying
// the same transition.
func TestHistoryNavigationAdvancesAcrossPresses(t *testing.T) {
	a := historyTestApp(15) // 3 pages of 5
	issued := time.Now().Unix()

	cb, control := historyCallback(t, fmt.Sprintf("history:next:42:member:0:%d", issued))
	first := &fakeSurface{}
	a.handleHistoryCallback(context.Background(), cb, control, newReply(first, discardLogger()))

	if len(first.updates) != 1 {
		t.Fatalf("expected one panel update, got %d (visible %v)", len(first.updates), first.visible())
	}
	if !strings.Contains(first.updates[0].content, "100005") {
		t.Fatalf("expected page 1 rows, got:\n%s", first.updates[0].content)
	}

	next := buttonByLabel(t, first.updates[0].buttons, "Next")
	if next.Disabled {
		t.Fatal("next must stay enabled on a middle page")
	}

	cb, control = historyCallback(t, next.CustomID)
	second := &fakeSurface{}
	a.handleHistoryCallback(context.Background(), cb, control, newReply(second, discardLogger()))

	if len(second.updates) != 1 {
		t.Fatalf("expected one panel update, got %d", len(second.updates))
	}
	if !strings.Contains(second.updates[0].content, "100010") {
		t.Fatalf("expected page 2 rows after second press, got:\n%s", second.updates[0].content)
	}
	if !buttonByLabel(t, second.updates[0].buttons, "Next").Disabled {
		t.Fatal("next must be disabled on the last page")
	}
	if buttonByLabel(t, second.updates[0].buttons, "Prev").Disabled {
		t.Fatal("prev must be enabled on the last page")
	}
}

func TestHistoryExpiredPanelIsDisabledInPlace(t *testing.T) {
	a := historyTestApp(15)
	issued := time.Now().Add(-history.ControlTTL - time.Minute).Unix()

	cb, control := historyCallback(t, fmt.Sprintf("history:next:42:member:0:%d", issued))
	surface := &fakeSurface{}
	a.handleHistoryCallback(context.Background(), cb, control, newReply(surface, discardLogger()))

	if surface.disables != 1 {
		t.Fatalf("expected the panel controls to be disabled, got %d disables", surface.disables)
	}
	visible := surface.visible()
	if len(visible) != 1 || visible[0] != ui.MsgExpiredPanel {
		t.Fatalf("expected expiry notice, got %v", visible)
	}
	if len(surface.updates) != 0 {
		t.Fatal("an expired panel must not be re-rendered")
	}
}
