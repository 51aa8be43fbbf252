package channels

import "testing"

func TestTransportTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    TransportState
		to      TransportState
		allowed bool
	}{
		{"dial from idle", TransportDisconnected, TransportConnecting, true},
		{"dial succeeds", TransportConnecting, TransportConnected, true},
		{"dial fails", TransportConnecting, TransportDegradedPolling, true},
		{"socket drops", TransportConnected, TransportDegradedPolling, true},
		{"orderly shutdown", TransportConnected, TransportDisconnected, true},
		{"reconnect from degraded", TransportDegradedPolling, TransportConnecting, true},
		{"shutdown from degraded", TransportDegradedPolling, TransportDisconnected, true},
		{"skip dialing", TransportDisconnected, TransportConnected, false},
		{"connected to connecting", TransportConnected, TransportConnecting, false},
		{"degraded straight to connected", TransportDegradedPolling, TransportConnected, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := tt.from.Transition(tt.to)
			if tt.allowed {
				if err != nil {
					t.Fatalf("expected transition to succeed: %v", err)
				}
				if next != tt.to {
					t.Errorf("expected state %s, got %s", tt.to, next)
				}
				return
			}
			if err == nil {
				t.Fatal("expected transition to be rejected")
			}
			if next != tt.from {
				t.Errorf("rejected transition should keep state %s, got %s", tt.from, next)
			}
		})
	}
}

func TestCanSendRealtime(t *testing.T) {
	if !TransportConnected.CanSendRealtime() {
		t.Error("connected transport should allow realtime sends")
	}
	for _, s := range []TransportState{TransportDisconnected, TransportConnecting, TransportDegradedPolling} {
		if s.CanSendRealtime() {
			t.Errorf("state %s should not allow realtime sends", s)
		}
	}
}
