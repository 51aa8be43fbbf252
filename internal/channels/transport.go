package channels

import "fmt"

// TransportState tracks the realtime websocket connection for the Bisq2
// channel. Transitions are pure so the lifecycle can be tested without a
// live socket.
type TransportState string

const (
	// TransportDisconnected is the initial state and the state after an
	// orderly shutdown.
	TransportDisconnected TransportState = "disconnected"
	// TransportConnecting means a dial is in flight.
	TransportConnecting TransportState = "connecting"
	// TransportConnected means messages flow over the websocket.
	TransportConnected TransportState = "connected"
	// TransportDegradedPolling means the socket is down and delivery falls
	// back to the HTTP path until reconnect succeeds.
	TransportDegradedPolling TransportState = "degraded_polling"
)

// transportTransitions lists the legal moves. Any transition not listed is
// rejected.
var transportTransitions = map[TransportState][]TransportState{
	TransportDisconnected:    {TransportConnecting},
	TransportConnecting:      {TransportConnected, TransportDegradedPolling},
	TransportConnected:       {TransportDegradedPolling, TransportDisconnected},
	TransportDegradedPolling: {TransportConnecting, TransportDisconnected},
}

// Transition returns the next state or an error when the move is illegal.
func (s TransportState) Transition(to TransportState) (TransportState, error) {
	for _, allowed := range transportTransitions[s] {
		if allowed == to {
			return to, nil
		}
	}
	return s, fmt.Errorf("illegal transport transition from %s to %s", s, to)
}

// CanSendRealtime reports whether the websocket path is usable.
func (s TransportState) CanSendRealtime() bool {
	return s == TransportConnected
}
