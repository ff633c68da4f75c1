package model

import "github.com/Acrellux/vctools-sub001/internal/domain/enums"

// FlowContext is the per-actor state of a multi-step UI flow. At most one
// context exists per actor; a missing context means "no active flow".
type FlowContext struct {
	ActorID string            `json:"actor_id"`
	GuildID string            `json:"guild_id"`
	Flow    enums.SetupFlow   `json:"flow"`
	Step    string            `json:"step"`
	Extra   map[string]string `json:"extra,omitempty"`
}
