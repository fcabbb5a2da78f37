package domain

// Reserved state keys. A process whose current state key is one of the
// terminal markers accepts no further responses.
const (
	// StateInitial is the state every scenario starts in.
	StateInitial = "initial"

	// StateSuccess marks a successfully completed process.
	StateSuccess = ":success"
	// StateFailed marks a failed process.
	StateFailed = ":failed"
	// StateCancelled marks a cancelled process.
	StateCancelled = ":cancelled"
)

// DefaultResponseKey is used when an action declares no default response.
const DefaultResponseKey = "ok"

// ErrorResponseKey is the conventional key for failure responses.
const ErrorResponseKey = "error"

// ErrorsAssetKey is the reserved bucket for failed sub-request data in a
// combined trigger response.
const ErrorsAssetKey = ":errors"

// IsTerminal reports whether a state key is one of the reserved terminal
// markers.
func IsTerminal(key string) bool {
	switch key {
	case StateSuccess, StateFailed, StateCancelled:
		return true
	}
	return false
}
