package model

import (
	"time"

	"github.com/Acrellux/vctools-sub001/internal/domain/enums"
)

// ModerationAction is one row of the moderation ledger. Rows are never
// mutated after creation; the only allowed change is a delete scoped by
// both ID and GuildID.
type ModerationAction struct {
	ID              int64
	GuildID         string
	TargetID        string
	ActorID         string
	Kind            enums.ActionKind
	Reason          *string
	DurationSeconds *int64
	CreatedAt       time.Time
}
