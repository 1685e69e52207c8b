package driver

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"strconv"
	"testing"
	"time"
)

// fakeRFBServer accepts exactly one connection and performs the minimal
// handshake this core's rfbclient expects: version, security-none,
// ClientInit, ServerInit advertising a 4x3 32bpp surface. It never sends a
// FramebufferUpdate, so the test only exercises establish()/Connected, not
// the message pump.
func fakeRFBServer(ln net.Listener) {
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	if _, err := io.WriteString(conn, "RFB 003.008\n"); err != nil {
		return
	}
	clientVersion := make([]byte, 12)
	if _, err := io.ReadFull(conn, clientVersion); err != nil {
		return
	}
	if _, err := conn.Write([]byte{1, 1}); err != nil { // one security type: None
		return
	}
	choice := make([]byte, 1)
	if _, err := io.ReadFull(conn, choice); err != nil {
		return
	}
	if _, err := conn.Write([]byte{0, 0, 0, 0}); err != nil { // security result OK
		return
	}
	clientInit := make([]byte, 1)
	if _, err := io.ReadFull(conn, clientInit); err != nil {
		return
	}
	serverInit := make([]byte, 24)
	binary.BigEndian.PutUint16(serverInit[0:2], 4)
	binary.BigEndian.PutUint16(serverInit[2:4], 3)
	serverInit[4] = 32 // bits per pixel
	serverInit[5] = 24 // depth
	serverInit[7] = 1  // true colour
	binary.BigEndian.PutUint16(serverInit[8:10], 0xFF)
	binary.BigEndian.PutUint16(serverInit[10:12], 0xFF)
	binary.BigEndian.PutUint16(serverInit[12:14], 0xFF)
	serverInit[14], serverInit[15], serverInit[16] = 16, 8, 0
	// name length left 0
	if _, err := conn.Write(serverInit); err != nil {
		return
	}
	// Client immediately sends SetPixelFormat (20 bytes), a second
	// SetPixelFormat followed by SetEncodings, then a
	// FramebufferUpdateRequest; drain them so the test's Stop()
	// doesn't race a half-written client buffer, then block until closed.
	drain := make([]byte, 4096)
	for {
		if _, err := conn.Read(drain); err != nil {
			return
		}
	}
}

func TestDriverEstablishReachesConnected(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go fakeRFBServer(ln)

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}

	d := New(
		WithHostPort(host, port),
		WithTunables(Tunables{
			ThreadTerminationTimeout:         2 * time.Second,
			ConnectTimeout:                   2 * time.Second,
			ConnectionRetryInterval:          50 * time.Millisecond,
			MessageWaitTimeout:               20 * time.Millisecond,
			FramebufferUpdateWatchdogTimeout: time.Second,
			SocketKeepaliveIdle:              time.Second,
			SocketKeepaliveInterval:          time.Second,
			SocketKeepaliveCount:             2,
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	deadline := time.After(2 * time.Second)
	for {
		if d.State() == Connected {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("driver never reached Connected, last state %s", d.State())
		case <-time.After(5 * time.Millisecond):
		}
	}

	w, h := d.Framebuffer().Dimensions()
	if w != 4 || h != 3 {
		t.Fatalf("framebuffer dims = %dx%d, want 4x3", w, h)
	}

	d.Stop()
	if err := d.Wait(); err != nil {
		t.Fatalf("driver did not shut down cleanly: %v", err)
	}
}
