package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	minUserWidth      = 12
	minModeratorWidth = 12
	minTypeWidth      = 6
	timestampWidth    = 19 // "2006-01-02 15:04:05"
	reasonWidth       = 24
)

type HistoryRow struct {
	ID        int64
	User      string
	Moderator string
	CreatedAt time.Time
	Kind      string
	Reason    string
}

// RenderHistoryTable builds the fixed-width history page. The ID column
// grows with the largest id in the set; the remaining columns use fixed
// minimums and the reason is clipped to its column.
func RenderHistoryTable(rows []HistoryRow) string {
	idWidth := len("ID")
	userWidth := minUserWidth
	moderatorWidth := minModeratorWidth
	typeWidth := minTypeWidth

	for _, row := range rows {
		if w := len(strconv.FormatInt(row.ID, 10)); w > idWidth {
			idWidth = w
		}
		if w := len(row.User); w > userWidth {
			userWidth = w
		}
		if w := len(row.Moderator); w > moderatorWidth {
			moderatorWidth = w
		}
		if w := len(row.Kind); w > typeWidth {
			typeWidth = w
		}
	}

	var b strings.Builder
	writeRow(&b, idWidth, userWidth, moderatorWidth, typeWidth, "ID", "User", "Moderator", "Timestamp", "Type", "Reason")

	for _, row := range rows {
		reason := strings.TrimSpace(row.Reason)
		if reason == "" {
			reason = "-"
		}
		reason = clip(reason, reasonWidth)

		writeRow(&b, idWidth, userWidth, moderatorWidth, typeWidth,
			strconv.FormatInt(row.ID, 10),
			row.User,
			row.Moderator,
			row.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			row.Kind,
			reason,
		)
	}

	return strings.TrimRight(b.String(), "\n")
}

func writeRow(b *strings.Builder, idW, userW, modW, typeW int, id, user, moderator, ts, kind, reason string) {
	fmt.Fprintf(b, "%-*s  %-*s  %-*s  %-*s  %-*s  %s\n",
		idW, id,
		userW, user,
		modW, moderator,
		timestampWidth, ts,
		typeW, kind,
		reason,
	)
}

func clip(value string, width int) string {
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}
	return string(runes[:width-1]) + "…"
}
