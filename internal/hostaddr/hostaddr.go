// Package hostaddr parses a user-entered VNC host string into a bare host
// and an optional port, handling the irregular address forms real users
// type into a "host" field: bracketed IPv6, IPv4-mapped IPv6, and the
// plain host:port form.
package hostaddr

import (
	"regexp"
	"strconv"
)

// patterns are tried in priority order; the first one that matches wins.
// Each must define named groups "host" and/or "port".
var patterns = []*regexp.Regexp{
	// ::ffff:A.B.C.D:port  (IPv4-mapped IPv6 with a trailing port)
	regexp.MustCompile(`^::ffff:(?P<host>\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}):(?P<port>\d+)$`),
	// ::ffff:A.B.C.D  (IPv4-mapped IPv6, no port)
	regexp.MustCompile(`^::ffff:(?P<host>\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})$`),
	// [host]:port  (bracketed IPv6 or bracketed name, with port)
	regexp.MustCompile(`^\[(?P<host>[^\]]+)\]:(?P<port>\d+)$`),
	// [host]  (bracketed, no port)
	regexp.MustCompile(`^\[(?P<host>[^\]]+)\]$`),
	// irregular "ipv6addr:nnnnn" where the port is >= 5 digits: the address
	// itself contains colons, so greedily take everything up to the last
	// run of 5+ digits as host, the digits as port.
	regexp.MustCompile(`^(?P<host>.+):(?P<port>\d{5,})$`),
	// plain host:port
	regexp.MustCompile(`^(?P<host>[^:]+):(?P<port>\d+)$`),
}

// Parsed is the result of parsing a host string.
type Parsed struct {
	Host string // empty if the input supplied no usable host
	Port int    // 0 if the input supplied no usable port
}

// Parse applies the priority-ordered pattern list to raw and returns the
// first successful capture. A bare host with no pattern match is returned
// verbatim as Host with Port == 0. Host is only set from a match when the
// captured group is non-empty; Port is only set when the captured value
// parses to a positive integer.
func Parse(raw string) Parsed {
	for _, re := range patterns {
		m := re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		var p Parsed
		names := re.SubexpNames()
		for i, name := range names {
			switch name {
			case "host":
				if m[i] != "" {
					p.Host = m[i]
				}
			case "port":
				if n, err := strconv.Atoi(m[i]); err == nil && n > 0 {
					p.Port = n
				}
			}
		}
		return p
	}
	return Parsed{Host: raw}
}

// Apply merges a Parsed result into an existing (host, port) pair, following
// the rule that a non-empty parsed host or a positive parsed port overrides
// the corresponding existing value; anything else is left untouched.
func Apply(existingHost string, existingPort int, p Parsed) (string, int) {
	host := existingHost
	port := existingPort
	if p.Host != "" {
		host = p.Host
	}
	if p.Port > 0 {
		port = p.Port
	}
	return host, port
}
