package driver

import "testing"

func TestClassifyFailure(t *testing.T) {
	cases := []struct {
		name                       string
		reachable, skipPing, pingOK, fbInvalid bool
		want                       ConnectionState
	}{
		{"unreachable, skip ping", false, true, false, true, HostOffline},
		{"unreachable, ping fails", false, false, false, true, HostOffline},
		{"unreachable, ping succeeds", false, false, true, true, ServerNotRunning},
		{"reachable, framebuffer still invalid", true, false, false, true, AuthenticationFailed},
		{"reachable, framebuffer initialized", true, false, false, false, ConnectionFailed},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := classifyFailure(c.reachable, c.skipPing, c.pingOK, c.fbInvalid)
			if got != c.want {
				t.Fatalf("classifyFailure(%v,%v,%v,%v) = %v, want %v",
					c.reachable, c.skipPing, c.pingOK, c.fbInvalid, got, c.want)
			}
		})
	}
}

func TestConnectionStateString(t *testing.T) {
	for s := Disconnected; s <= ConnectionFailed; s++ {
		if s.String() == "unknown" {
			t.Fatalf("state %d has no String() representation", s)
		}
	}
	if ConnectionState(99).String() != "unknown" {
		t.Fatal("out-of-range state should stringify to unknown")
	}
}
