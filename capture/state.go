package capture

// State is the lifecycle state of a capture session.
type State int

const (
	StateIdle State = iota
	StateLaunching
	StateLive
	StateEnding
	StateClosed
	StateError
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLaunching:
		return "launching"
	case StateLive:
		return "live"
	case StateEnding:
		return "ending"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// EndReason tells why a session stopped capturing.
type EndReason int

const (
	// EndWindowClosed: the user closed every page.
	EndWindowClosed EndReason = iota + 1
	// EndFinishSignal: a page script called the finish binding.
	EndFinishSignal
	// EndBrowserGone: the browser process stopped answering.
	EndBrowserGone
	// EndCancelled: the caller's context was cancelled.
	EndCancelled
)

func (r EndReason) String() string {
	switch r {
	case EndWindowClosed:
		return "window_closed"
	case EndFinishSignal:
		return "finish_signal"
	case EndBrowserGone:
		return "browser_gone"
	case EndCancelled:
		return "cancelled"
	}
	return "unknown"
}

// transitions lists the legal state changes.
var transitions = map[State][]State{
	StateIdle:      {StateLaunching},
	StateLaunching: {StateLive, StateError, StateCancelled},
	StateLive:      {StateEnding, StateCancelled},
	StateEnding:    {StateClosed},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
