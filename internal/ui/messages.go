package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Acrellux/vctools-sub001/internal/domain/enums"
	"github.com/Acrellux/vctools-sub001/internal/domain/moderr"
)

const (
	MsgStaleControl   = "This control is stale. Re-run the command."
	MsgNotYourPanel   = "These controls belong to another operator."
	MsgNotAllowed     = "You are not allowed to do that."
	MsgNothingHere    = "Nothing here."
	MsgWrongServer    = "That confirmation belongs to another server."
	MsgConfirmGone    = "That confirmation expired. Re-run the command."
	MsgExpiredPanel   = "This panel expired. Re-run the command."
	MsgNothingToPurge = "Nothing eligible to delete."
)

func MsgUnexpected() string {
	return fmt.Sprintf("Something unexpected happened (%s).", moderr.GenericCode)
}

// ActionNotice is the direct message sent to a moderated member.
func ActionNotice(kind enums.ActionKind, reason string, duration time.Duration) string {
	var head string
	switch kind {
	case enums.ActionMute:
		head = fmt.Sprintf("You have been muted for %s.", duration)
	case enums.ActionUnmute:
		head = "Your timeout has been lifted."
	case enums.ActionWarn:
		head = "You have received a warning."
	case enums.ActionKick:
		head = "You have been kicked."
	case enums.ActionBan:
		head = "You have been banned."
	case enums.ActionUnban:
		head = "You have been unbanned."
	default:
		head = "A moderation action was applied to you."
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return head
	}
	return head + " Reason: " + reason
}

func PurgeReport(deleted int, mode, value string) string {
	return fmt.Sprintf("Purge finished: %d message(s) deleted (%s %s).", deleted, mode, value)
}

func PurgeProgress(deleted, channelsDone, channelsTotal int) string {
	return fmt.Sprintf("Purging… %d message(s) deleted, %d/%d channel(s) scanned.", deleted, channelsDone, channelsTotal)
}
