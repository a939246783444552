package flash

import "fmt"

type State int

const (
	Idle State = iota
	SourceSelected
	DeviceSelected
	MountChecked
	UnmountRequested
	UnmountResolved
	Confirmed
	Writing
	Completed
	Failed
	Cancelled
)

var stateNames = map[State]string{
	Idle:             "idle",
	SourceSelected:   "source-selected",
	DeviceSelected:   "device-selected",
	MountChecked:     "mount-checked",
	UnmountRequested: "unmount-requested",
	UnmountResolved:  "unmount-resolved",
	Confirmed:        "confirmed",
	Writing:          "writing",
	Completed:        "completed",
	Failed:           "failed",
	Cancelled:        "cancelled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transitions follow s in an attempt.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}
