package netutil

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"
)

func TestPingSucceedsAgainstListeningPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}

	if !Ping(context.Background(), host, port, time.Second) {
		t.Fatal("expected Ping to succeed against a listening port")
	}
}

func TestPingFailsAgainstUnroutableHost(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if Ping(ctx, "198.51.100.1", 5901, 150*time.Millisecond) {
		t.Fatal("expected Ping to fail against an unroutable TEST-NET-2 address")
	}
}
