package ui

import (
	"strings"
	"testing"
	"time"
)

func TestRenderHistoryTableWidths(t *testing.T) {
	when := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	rows := []HistoryRow{
		{ID: 100001, User: "spammer", Moderator: "mod", CreatedAt: when, Kind: "mute", Reason: "spam"},
		{ID: 100002, User: "troll", Moderator: "mod", CreatedAt: when, Kind: "ban", Reason: ""},
	}

	table := RenderHistoryTable(rows)
	lines := strings.Split(table, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}

	if !strings.HasPrefix(lines[0], "ID    ") {
		t.Fatalf("expected ID column widened to largest id, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "2025-03-14 09:30:00") {
		t.Fatalf("expected formatted timestamp, got %q", lines[1])
	}
	if !strings.Contains(lines[2], " - ") && !strings.HasSuffix(lines[2], "-") {
		t.Fatalf("expected dash placeholder for empty reason, got %q", lines[2])
	}
}

func TestRenderHistoryTableClipsReason(t *testing.T) {
	long := strings.Repeat("a", 60)
	rows := []HistoryRow{
		{ID: 100001, User: "u", Moderator: "m", CreatedAt: time.Now(), Kind: "warn", Reason: long},
	}

	table := RenderHistoryTable(rows)
	lines := strings.Split(table, "\n")
	last := lines[len(lines)-1]

	if !strings.HasSuffix(last, "…") {
		t.Fatalf("expected clipped reason with ellipsis, got %q", last)
	}
	if strings.Contains(last, long) {
		t.Fatal("expected reason to be clipped to column width")
	}
}
