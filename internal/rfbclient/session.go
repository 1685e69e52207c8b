// Package rfbclient is the "external RFB codec library" boundary spec.md
// §6 describes as consumed rather than owned by the core: a minimal RFB
// client implementing the wire handshake, the message pump primitives
// (getClient/initClient/waitForMessage/handleServerMessage/
// sendFramebufferUpdateRequest/sendIncrementalFramebufferUpdateRequest/
// readFromServer/writeToServer/clientCleanup), and the nine adapter
// callbacks, grounded on the RFB message layout shared by the two example
// servers in the retrieval pack (patdhlk/rfb and bradfitz/rfbgo) read from
// the client's side of the same wire protocol.
package rfbclient

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/liucy427/veyon-rfbcore/internal/quality"
	"github.com/liucy427/veyon-rfbcore/internal/rfbwire"
)

// Session is a single live (or being-established) RFB connection. It is
// not safe for concurrent use by multiple goroutines except where noted —
// matching spec.md §5's "the driver thread is the sole ... caller of codec
// send/receive primitives".
type Session struct {
	conn    net.Conn
	br      *bufio.Reader
	binding *Binding

	width, height int
	serverFormat  rfbwire.PixelFormat
	profile       quality.Profile

	rectBuf []byte // reused scratch buffer for raw-encoding rectangle decode
}

// NewSession constructs a Session bound to hooks. This is the
// "getClient"-equivalent step: it allocates the client-side state but does
// not yet touch the network.
func NewSession(binding *Binding) *Session {
	return &Session{binding: binding}
}

// Dial is the "initClient"-equivalent step: opens a TCP connection to
// addr, performs the version/security/ClientInit/ServerInit handshake,
// validates the server's pixel bit-depth, and negotiates this core's fixed
// 32-bit pixel format. On success the Session is ready for WaitForMessage/
// HandleServerMessage.
// onConnected, if non-nil, is invoked immediately after the TCP connect
// succeeds but before the RFB handshake begins — the driver uses this to
// set the ServerReachable control flag (spec.md §4.1 failure
// classification distinguishes "never reached the host at the TCP level"
// from "reached it but the RFB handshake then failed").
func Dial(ctx context.Context, addr string, connectTimeout time.Duration, binding *Binding, onConnected func()) (*Session, error) {
	d := net.Dialer{Timeout: connectTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDial, err)
	}
	if onConnected != nil {
		onConnected()
	}
	s := NewSession(binding)
	s.conn = conn
	s.br = bufio.NewReaderSize(conn, 16*1024)
	if err := s.handshake(connectTimeout); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// Conn exposes the underlying network connection so the driver can tune
// socket keepalive after a successful handshake (spec.md §6 "Platform
// boundary").
func (s *Session) Conn() net.Conn { return s.conn }


func (s *Session) handshake(timeout time.Duration) error {
	if timeout > 0 {
		_ = s.conn.SetDeadline(time.Now().Add(timeout))
		defer s.conn.SetDeadline(time.Time{})
	}
	if err := negotiateVersion(s.br, s.conn); err != nil {
		return err
	}
	if err := negotiateSecurityNone(s.br, s.conn); err != nil {
		return err
	}
	if err := sendClientInit(s.conn); err != nil {
		return fmt.Errorf("rfbclient: send client-init: %w", err)
	}
	w, h, pf, _, err := rfbwire.ReadServerInit(s.br)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProtocolFailure, err)
	}
	if !pf.MatchesExpected32Bit() {
		return fmt.Errorf("%w: server pixel depth %d bpp, want 32", ErrProtocolFailure, pf.BitsPerPixel)
	}
	s.width, s.height = w, h
	s.serverFormat = pf

	if b := s.binding; b != nil {
		if hooks := b.Get(); hooks != nil {
			if err := hooks.OnFramebufferInit(w, h, pf); err != nil {
				return fmt.Errorf("%w: %v", ErrProtocolFailure, err)
			}
		}
	}
	return rfbwire.WritePixelFormat(s.conn, rfbwire.ExpectedPixelFormat)
}

// SetEncodings sends the client's desired encoding list (RFB 6.4.2),
// driven by the active QualityProfile.
func (s *Session) SetEncodings(names string) error {
	return rfbwire.WriteSetEncodings(s.conn, encodingsFromNames(names))
}

// SetQuality records the active QualityProfile for subsequent
// SendFormatAndEncodings calls and immediately applies it to the wire —
// used both right after handshake and whenever the driver observes a
// quality change (spec.md §4.3, "quality change ... queues a
// RefreshFormatAndEncodings event").
func (s *Session) SetQuality(p quality.Profile) error {
	s.profile = p
	return s.SendFormatAndEncodings()
}

// SendFormatAndEncodings implements eventqueue.Sender: re-sends the
// client's fixed pixel format and the encoding list for the currently
// stored QualityProfile. The pixel format never changes (the core always
// negotiates ExpectedPixelFormat); only the encoding list and JPEG/
// compression parameters vary with quality.
func (s *Session) SendFormatAndEncodings() error {
	if err := rfbwire.WritePixelFormat(s.conn, rfbwire.ExpectedPixelFormat); err != nil {
		return err
	}
	return s.SetEncodings(s.profile.Encodings)
}

// WaitForMessage waits up to timeout for server-sent bytes to become
// available. It returns (true, nil) if a message is ready to read,
// (false, nil) on a plain timeout, and (false, err) on a fatal socket
// error — matching spec.md §4.1 step 2 ("a negative result ... means
// fatal socket error -> break").
func (s *Session) WaitForMessage(timeout time.Duration) (bool, error) {
	_ = s.conn.SetReadDeadline(time.Now().Add(timeout))
	_, err := s.br.Peek(1)
	_ = s.conn.SetReadDeadline(time.Time{})
	if err == nil {
		return true, nil
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", ErrFatalSocket, err)
}

// MessagePending reports, without blocking or touching the socket, whether
// a message byte is already sitting in the read buffer — used by the
// driver's drain loop (spec.md §4.1 step 3, "repeatedly invoking the
// codec's per-message handler ... [until] no further message is ready").
// Peek(1) is deliberately not used here: once WaitForMessage has reset the
// read deadline to none, Peek blocks on a real Read() whenever the buffer
// is empty, which would stall the drain loop (and with it the watchdog,
// event-queue drains, and Stop() responsiveness) until the server sends
// another byte.
func (s *Session) MessagePending() bool {
	return s.br.Buffered() > 0
}

// SendFramebufferUpdateRequest requests either a full (non-incremental) or
// incremental update of the entire negotiated surface.
func (s *Session) SendFramebufferUpdateRequest(incremental bool) error {
	return rfbwire.WriteFramebufferUpdateRequest(s.conn, rfbwire.FramebufferUpdateRequest{
		Incremental: incremental,
		X:           0,
		Y:           0,
		Width:       uint16(s.width),
		Height:      uint16(s.height),
	})
}

// SendIncrementalFramebufferUpdateRequest is a convenience wrapper named
// to mirror the codec boundary spec.md §6 names explicitly.
func (s *Session) SendIncrementalFramebufferUpdateRequest() error {
	return s.SendFramebufferUpdateRequest(true)
}

// SendPointerEvent implements eventqueue.Sender.
func (s *Session) SendPointerEvent(x, y int, buttonMask uint8) error {
	return rfbwire.WritePointerEvent(s.conn, rfbwire.PointerEvent{ButtonMask: buttonMask, X: uint16(x), Y: uint16(y)})
}

// SendKeyEvent implements eventqueue.Sender.
func (s *Session) SendKeyEvent(keysym uint32, pressed bool) error {
	return rfbwire.WriteKeyEvent(s.conn, rfbwire.KeyEvent{Pressed: pressed, Keysym: keysym})
}

// SendClientCut implements eventqueue.Sender.
func (s *Session) SendClientCut(text string) error {
	return rfbwire.WriteClientCutText(s.conn, rfbwire.ClientCutText{Text: text})
}

// Dimensions returns the negotiated framebuffer size.
func (s *Session) Dimensions() (int, int) { return s.width, s.height }

// Clientcleanup tears down the underlying connection; safe to call more
// than once.
func (s *Session) Clientcleanup() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
