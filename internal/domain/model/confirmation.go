package model

import "time"

// PendingConfirmation gates a destructive action behind an explicit
// approve/cancel step. The token is single-use and bound to the guild and
// the requesting operator.
type PendingConfirmation struct {
	Token       string    `json:"token"`
	GuildID     string    `json:"guild_id"`
	RequesterID string    `json:"requester_id"`
	TargetIDs   []string  `json:"target_ids"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}
