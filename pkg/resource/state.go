package resource

import "strings"

// Power states as reported by the compute instance view. The portal only
// observes these; Azure drives every transition.
const (
	StateUnknown      = "unknown"
	StateStarting     = "starting"
	StateRunning      = "running"
	StateStopping     = "stopping"
	StateStopped      = "stopped"
	StateDeallocating = "deallocating"
	StateDeallocated  = "deallocated"
)

const powerStatePrefix = "PowerState/"

var knownStates = map[string]bool{
	StateStarting:     true,
	StateRunning:      true,
	StateStopping:     true,
	StateStopped:      true,
	StateDeallocating: true,
	StateDeallocated:  true,
}

// NormalizePowerState turns an instance-view status code such as
// "PowerState/running" into a lower-case state. Anything unrecognized
// degrades to StateUnknown.
func NormalizePowerState(code string) string {
	s := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(code, powerStatePrefix)))
	if knownStates[s] {
		return s
	}
	return StateUnknown
}

// IsRunning reports whether state equals "running", ignoring case.
func IsRunning(state string) bool {
	return strings.EqualFold(state, StateRunning)
}
