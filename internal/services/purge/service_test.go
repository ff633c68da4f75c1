package purge

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Acrellux/vctools-sub001/internal/domain/enums"
	"github.com/Acrellux/vctools-sub001/internal/domain/model"
	"github.com/Acrellux/vctools-sub001/internal/domain/moderr"
	"github.com/Acrellux/vctools-sub001/internal/ui"
)

type fakeChannels struct {
	msgs map[string][]Message // newest first

	batchErr  error
	singleErr map[string]error

	batchCalls  int
	singleCalls int
	deleted     map[string]bool
}

func newFakeChannels() *fakeChannels {
	return &fakeChannels{
		msgs:      map[string][]Message{},
		singleErr: map[string]error{},
		deleted:   map[string]bool{},
	}
}

func (c *fakeChannels) ListBefore(_ context.Context, channelID, beforeID string, limit int) ([]Message, error) {
	all := c.msgs[channelID]
	start := 0
	if beforeID != "" {
		for i, msg := range all {
			if msg.ID == beforeID {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	out := make([]Message, 0, end-start)
	for _, msg := range all[start:end] {
		if c.deleted[msg.ID] {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (c *fakeChannels) DeleteBatch(_ context.Context, _ string, ids []string) error {
	c.batchCalls++
	if c.batchErr != nil {
		return c.batchErr
	}
	for _, id := range ids {
		c.deleted[id] = true
	}
	return nil
}

func (c *fakeChannels) Delete(_ context.Context, _, id string) error {
	c.singleCalls++
	if err := c.singleErr[id]; err != nil {
		return err
	}
	c.deleted[id] = true
	return nil
}

type fakeLedger struct {
	recorded []model.ModerationAction
	err      error
}

func (l *fakeLedger) Record(_ context.Context, action model.ModerationAction) (int64, error) {
	if l.err != nil {
		return 0, l.err
	}
	l.recorded = append(l.recorded, action)
	return 100000 + int64(len(l.recorded)) - 1, nil
}

type recordingProgress struct {
	updates []string
}

func (p *recordingProgress) Update(_ context.Context, content string) error {
	p.updates = append(p.updates, content)
	return nil
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(channels Channels, ledger Ledger) *Service {
	svc := NewService(channels, ledger, nil)
	svc.pause = 0
	svc.now = func() time.Time { return testNow }
	return svc
}

// fill puts n target messages in a channel, newest first, spaced one
// minute apart starting at the given age.
func fill(c *fakeChannels, channelID, authorID string, n int, age time.Duration) {
	for i := 0; i < n; i++ {
		c.msgs[channelID] = append(c.msgs[channelID], Message{
			ID:        fmt.Sprintf("%s-m%d", channelID, len(c.msgs[channelID])),
			AuthorID:  authorID,
			CreatedAt: testNow.Add(-age - time.Duration(i)*time.Minute),
		})
	}
}

func countInput(count int, channels ...string) Input {
	return Input{
		GuildID:    "g1",
		ActorID:    "mod",
		TargetID:   "target",
		Mode:       ModeCount,
		Count:      count,
		ChannelIDs: channels,
	}
}

func TestRunCountModeStopsAtRequested(t *testing.T) {
	channels := newFakeChannels()
	fill(channels, "c1", "target", 40, time.Hour)
	ledger := &fakeLedger{}
	svc := newTestService(channels, ledger)

	result, err := svc.Run(context.Background(), countInput(25, "c1"), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Deleted != 25 {
		t.Fatalf("expected 25 deleted, got %d", result.Deleted)
	}
	if len(ledger.recorded) != 1 {
		t.Fatalf("expected one clean record, got %d", len(ledger.recorded))
	}
	if ledger.recorded[0].Kind != enums.ActionClean {
		t.Fatalf("expected clean kind, got %s", ledger.recorded[0].Kind)
	}
}

func TestRunCountModeClampsToHardCap(t *testing.T) {
	channels := newFakeChannels()
	fill(channels, "c1", "target", 150, time.Hour)
	svc := newTestService(channels, &fakeLedger{})

	result, err := svc.Run(context.Background(), countInput(500, "c1"), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Deleted != MaxCount {
		t.Fatalf("expected hard cap %d, got %d", MaxCount, result.Deleted)
	}
}

func TestRunSkipsPinnedAndOtherAuthors(t *testing.T) {
	channels := newFakeChannels()
	channels.msgs["c1"] = []Message{
		{ID: "m1", AuthorID: "target", CreatedAt: testNow.Add(-time.Hour)},
		{ID: "m2", AuthorID: "target", Pinned: true, CreatedAt: testNow.Add(-2 * time.Hour)},
		{ID: "m3", AuthorID: "bystander", CreatedAt: testNow.Add(-3 * time.Hour)},
		{ID: "m4", AuthorID: "target", CreatedAt: testNow.Add(-4 * time.Hour)},
	}
	svc := newTestService(channels, &fakeLedger{})

	result, err := svc.Run(context.Background(), countInput(100, "c1"), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", result.Deleted)
	}
	if channels.deleted["m2"] || channels.deleted["m3"] {
		t.Fatal("pinned or foreign messages must survive a purge")
	}
}

func TestRunSkipsMessagesInsideSafetyMargin(t *testing.T) {
	channels := newFakeChannels()
	channels.msgs["c1"] = []Message{
		{ID: "fresh", AuthorID: "target", CreatedAt: testNow.Add(-2 * time.Second)},
		{ID: "settled", AuthorID: "target", CreatedAt: testNow.Add(-time.Minute)},
	}
	svc := newTestService(channels, &fakeLedger{})

	result, err := svc.Run(context.Background(), countInput(100, "c1"), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Deleted != 1 {
		t.Fatalf("expected only the settled message deleted, got %d", result.Deleted)
	}
	if channels.deleted["fresh"] {
		t.Fatal("message inside the safety margin must not be deleted")
	}
}

func TestRunStopsScanPastRetentionLimit(t *testing.T) {
	channels := newFakeChannels()
	// A full batch whose oldest message predates the 14-day limit, followed
	// by an ancient page that must never be fetched.
	fill(channels, "c1", "target", 99, time.Hour)
	channels.msgs["c1"] = append(channels.msgs["c1"], Message{
		ID:        "ancient-edge",
		AuthorID:  "target",
		CreatedAt: testNow.Add(-15 * 24 * time.Hour),
	})
	for i := 0; i < 50; i++ {
		channels.msgs["c1"] = append(channels.msgs["c1"], Message{
			ID:        fmt.Sprintf("ancient-%d", i),
			AuthorID:  "target",
			CreatedAt: testNow.Add(-16 * 24 * time.Hour),
		})
	}
	svc := newTestService(channels, &fakeLedger{})

	result, err := svc.Run(context.Background(), countInput(100, "c1"), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Deleted != 99 {
		t.Fatalf("expected 99 recent deletions, got %d", result.Deleted)
	}
	if channels.deleted["ancient-edge"] || channels.deleted["ancient-0"] {
		t.Fatal("messages past the retention limit must never be deleted")
	}
}

func TestRunTimeModeHonorsWindow(t *testing.T) {
	channels := newFakeChannels()
	channels.msgs["c1"] = []Message{
		{ID: "in1", AuthorID: "target", CreatedAt: testNow.Add(-time.Hour)},
		{ID: "in2", AuthorID: "target", CreatedAt: testNow.Add(-20 * time.Hour)},
		{ID: "out", AuthorID: "target", CreatedAt: testNow.Add(-30 * time.Hour)},
	}
	ledger := &fakeLedger{}
	svc := newTestService(channels, ledger)

	in := Input{
		GuildID:    "g1",
		ActorID:    "mod",
		TargetID:   "target",
		Mode:       ModeTime,
		Window:     24 * time.Hour,
		ChannelIDs: []string{"c1"},
	}

	result, err := svc.Run(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Deleted != 2 {
		t.Fatalf("expected 2 inside window, got %d", result.Deleted)
	}
	if channels.deleted["out"] {
		t.Fatal("message outside the window must survive")
	}
	if ledger.recorded[0].Reason == nil || *ledger.recorded[0].Reason == "" {
		t.Fatal("expected clean record reason with mode details")
	}
}

func TestRunFallsBackToSingleDeletes(t *testing.T) {
	channels := newFakeChannels()
	fill(channels, "c1", "target", 5, time.Hour)
	channels.batchErr = errors.New("bulk endpoint rejected batch")
	channels.singleErr["c1-m2"] = errors.New("already gone")
	svc := newTestService(channels, &fakeLedger{})

	result, err := svc.Run(context.Background(), countInput(100, "c1"), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if channels.batchCalls != 1 {
		t.Fatalf("expected one batch attempt, got %d", channels.batchCalls)
	}
	if channels.singleCalls != 5 {
		t.Fatalf("expected per-message fallback for all 5, got %d calls", channels.singleCalls)
	}
	if result.Deleted != 4 {
		t.Fatalf("expected 4 deleted after one per-message failure, got %d", result.Deleted)
	}
}

func TestRunNothingEligibleWritesNoRecord(t *testing.T) {
	channels := newFakeChannels()
	channels.msgs["c1"] = []Message{
		{ID: "m1", AuthorID: "bystander", CreatedAt: testNow.Add(-time.Hour)},
	}
	ledger := &fakeLedger{}
	svc := newTestService(channels, ledger)

	result, err := svc.Run(context.Background(), countInput(10, "c1"), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.NothingEligible {
		t.Fatal("expected nothing-eligible outcome")
	}
	if len(ledger.recorded) != 0 {
		t.Fatalf("a no-op purge must not write a ledger record, got %d", len(ledger.recorded))
	}
}

func TestRunDegradesOnLedgerFailure(t *testing.T) {
	channels := newFakeChannels()
	fill(channels, "c1", "target", 3, time.Hour)
	svc := newTestService(channels, &fakeLedger{err: errors.New("store down")})

	result, err := svc.Run(context.Background(), countInput(10, "c1"), nil)
	if err != nil {
		t.Fatalf("deletions must stand on ledger failure: %v", err)
	}
	if result.Deleted != 3 {
		t.Fatalf("expected 3 deleted, got %d", result.Deleted)
	}
	if !result.LedgerDegraded {
		t.Fatal("expected degraded result")
	}
}

func TestRunReportsProgressPerSchedule(t *testing.T) {
	channels := newFakeChannels()
	ids := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("c%d", i)
		ids = append(ids, id)
		fill(channels, id, "target", 1, time.Hour)
	}
	progress := &recordingProgress{}
	svc := newTestService(channels, &fakeLedger{})

	if _, err := svc.Run(context.Background(), countInput(100, ids...), progress); err != nil {
		t.Fatalf("run: %v", err)
	}

	// After the first channel, then after the 5th and 10th, then the final
	// report.
	if len(progress.updates) != 4 {
		t.Fatalf("expected 4 progress updates for 12 channels, got %d: %v", len(progress.updates), progress.updates)
	}
	last := progress.updates[len(progress.updates)-1]
	if last != ui.PurgeReport(12, "count", "100") {
		t.Fatalf("expected final report line, got %q", last)
	}
}

func TestRunReportsWhenNothingEligible(t *testing.T) {
	channels := newFakeChannels()
	fill(channels, "c1", "someone-else", 3, time.Hour)
	progress := &recordingProgress{}
	svc := newTestService(channels, &fakeLedger{})

	result, err := svc.Run(context.Background(), countInput(10, "c1"), progress)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.NothingEligible {
		t.Fatal("expected nothing-eligible result")
	}
	if len(progress.updates) == 0 || progress.updates[len(progress.updates)-1] != ui.MsgNothingToPurge {
		t.Fatalf("expected final nothing-to-purge line, got %v", progress.updates)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	svc := newTestService(newFakeChannels(), &fakeLedger{})

	cases := []Input{
		{GuildID: "g1", ActorID: "mod", TargetID: "t", Mode: ModeCount, Count: 0, ChannelIDs: []string{"c1"}},
		{GuildID: "g1", ActorID: "mod", TargetID: "t", Mode: ModeTime, Window: 0, ChannelIDs: []string{"c1"}},
		{GuildID: "g1", ActorID: "mod", TargetID: "t", Mode: "percent", Count: 5, ChannelIDs: []string{"c1"}},
		{GuildID: "g1", ActorID: "mod", TargetID: "t", Mode: ModeCount, Count: 5},
	}

	for i, in := range cases {
		if _, err := svc.Run(context.Background(), in, nil); !moderr.IsValidation(err) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}
