package ui

// Button is a platform-neutral control. The platform layer turns it into
// the wire component.
type Button struct {
	Label    string
	CustomID string
	Danger   bool
	Disabled bool
}
