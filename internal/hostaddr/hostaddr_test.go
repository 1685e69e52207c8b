package hostaddr

import "testing"

func TestParseScenarios(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		wantHost string
		wantPort int
	}{
		{"bracketed ipv6 with port", "[2001:db8::1]:5901", "2001:db8::1", 5901},
		{"ipv4-mapped ipv6 with port", "::ffff:10.0.0.5:5900", "10.0.0.5", 5900},
		{"bare hostname", "example.local", "example.local", 0},
		{"ipv4-mapped no port", "::ffff:192.168.1.1", "192.168.1.1", 0},
		{"plain host port", "vnc.example.com:5901", "vnc.example.com", 5901},
		{"irregular ipv6 with 5-digit port", "2001:db8::1:59012", "2001:db8::1", 59012},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := Parse(c.in)
			if p.Host != c.wantHost {
				t.Errorf("Parse(%q).Host = %q, want %q", c.in, p.Host, c.wantHost)
			}
			if p.Port != c.wantPort {
				t.Errorf("Parse(%q).Port = %d, want %d", c.in, p.Port, c.wantPort)
			}
		})
	}
}

func TestApplyPreservesExistingWhenUnmatched(t *testing.T) {
	host, port := Apply("old-host", 5900, Parsed{})
	if host != "old-host" || port != 5900 {
		t.Fatalf("Apply with empty Parsed should preserve existing values, got (%q, %d)", host, port)
	}
}

func TestApplyOverridesOnlySuppliedFields(t *testing.T) {
	host, port := Apply("old-host", 5900, Parsed{Port: 5901})
	if host != "old-host" || port != 5901 {
		t.Fatalf("Apply should only override port, got (%q, %d)", host, port)
	}
	host, port = Apply("old-host", 5900, Parsed{Host: "new-host"})
	if host != "new-host" || port != 5900 {
		t.Fatalf("Apply should only override host, got (%q, %d)", host, port)
	}
}
