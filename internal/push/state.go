package push

import (
	"fmt"
	"strconv"
	"strings"
)

const uidNextKey = "uidNext="

// State is the durable cursor persisted between sessions by the receiver.
type State struct {
	// UIDNext is the last observed UIDNEXT boundary, -1 when unknown.
	UIDNext int64
}

// UnknownState is the state used whenever nothing usable was persisted.
func UnknownState() State {
	return State{UIDNext: -1}
}

// ParseState decodes a serialized push state. An empty string is an unknown
// state, anything else must look like "uidNext=<n>".
func ParseState(serialized string) (State, error) {
	value := strings.TrimSpace(serialized)
	if value == "" {
		return UnknownState(), nil
	}
	if !strings.HasPrefix(value, uidNextKey) {
		return UnknownState(), fmt.Errorf("%w: %q", ErrMalformedState, serialized)
	}
	uidNext, err := strconv.ParseInt(strings.TrimPrefix(value, uidNextKey), 10, 64)
	if err != nil {
		return UnknownState(), fmt.Errorf("%w: %q: %v", ErrMalformedState, serialized, err)
	}
	return State{UIDNext: uidNext}, nil
}

// String encodes the state in the form accepted by ParseState.
func (s State) String() string {
	return uidNextKey + strconv.FormatInt(s.UIDNext, 10)
}
