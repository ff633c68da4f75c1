package enums

import "strings"

type ActionKind string

const (
	ActionMute   ActionKind = "mute"
	ActionUnmute ActionKind = "unmute"
	ActionWarn   ActionKind = "warn"
	ActionKick   ActionKind = "kick"
	ActionBan    ActionKind = "ban"
	ActionUnban  ActionKind = "unban"
	ActionClean  ActionKind = "clean"
)

func ParseActionKind(raw string) (ActionKind, bool) {
	kind := ActionKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case ActionMute, ActionUnmute, ActionWarn, ActionKick, ActionBan, ActionUnban, ActionClean:
		return kind, true
	default:
		return "", false
	}
}

// AllowsDuration reports whether the kind carries a duration. Only mute does.
func (k ActionKind) AllowsDuration() bool {
	return k == ActionMute
}
