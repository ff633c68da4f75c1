package model

import "github.com/Acrellux/vctools-sub001/internal/domain/enums"

// ControlID is the parsed form of an opaque control identifier carried by a
// UI callback. Raw identifiers are parsed exactly once at the router
// boundary; everything past that point works with this struct.
type ControlID struct {
	Mode    enums.FlowMode
	Action  string
	OwnerID string
	Args    []string
}
