package enums

import "strings"

// FlowMode is the closed set of interaction flows a control identifier can
// address. Anything outside this set is treated as an unknown control.
type FlowMode string

const (
	FlowConsent FlowMode = "consent"
	FlowGrant   FlowMode = "grant"
	FlowRole    FlowMode = "role"
	FlowInit    FlowMode = "init"
	FlowBot     FlowMode = "bot"
	FlowConfirm FlowMode = "confirm"
	FlowHistory FlowMode = "history"
	FlowExport  FlowMode = "export"
)

func ParseFlowMode(raw string) (FlowMode, bool) {
	mode := FlowMode(strings.ToLower(strings.TrimSpace(raw)))
	switch mode {
	case FlowConsent, FlowGrant, FlowRole, FlowInit, FlowBot, FlowConfirm, FlowHistory, FlowExport:
		return mode, true
	default:
		return "", false
	}
}

// SetupFlow names the init sub-flows a stored flow context can point at.
type SetupFlow string

const (
	SetupGeneral  SetupFlow = "general"
	SetupChannels SetupFlow = "channels"
	SetupRoles    SetupFlow = "roles"
)

func ParseSetupFlow(raw string) (SetupFlow, bool) {
	flow := SetupFlow(strings.ToLower(strings.TrimSpace(raw)))
	switch flow {
	case SetupGeneral, SetupChannels, SetupRoles:
		return flow, true
	default:
		return "", false
	}
}
