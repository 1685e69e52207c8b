package rfbclient

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/liucy427/veyon-rfbcore/internal/rfbwire"
)

// HandleServerMessage reads and dispatches exactly one server-to-client
// message. Callers (the driver's message-pump loop) are expected to call
// WaitForMessage/MessagePending first; HandleServerMessage itself blocks
// on the read if nothing is buffered.
func (s *Session) HandleServerMessage() error {
	var typ [1]byte
	if _, err := io.ReadFull(s.br, typ[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrFatalSocket, err)
	}
	switch typ[0] {
	case rfbwire.CmdFramebufferUpdate:
		return s.handleFramebufferUpdate()
	case rfbwire.CmdSetColourMapEntries:
		return s.skipSetColourMapEntries()
	case rfbwire.CmdBell:
		return nil // no payload; nothing to do
	case rfbwire.CmdServerCutText:
		return s.handleServerCutText()
	default:
		return fmt.Errorf("%w: unknown server message type %d", ErrProtocolFailure, typ[0])
	}
}

func (s *Session) hooks() Hooks {
	if s.binding == nil {
		return nil
	}
	return s.binding.Get()
}

func (s *Session) handleFramebufferUpdate() error {
	hdr, err := rfbwire.ReadFramebufferUpdateHeader(s.br)
	if err != nil {
		return err
	}
	for i := 0; i < int(hdr.NumRects); i++ {
		rect, err := rfbwire.ReadRectHeader(s.br)
		if err != nil {
			return err
		}
		if err := s.handleRect(rect); err != nil {
			return err
		}
	}
	if h := s.hooks(); h != nil {
		h.OnUpdateFinished()
	}
	return nil
}

func (s *Session) handleRect(rect rfbwire.RectHeader) error {
	x, y, w, hgt := int(rect.X), int(rect.Y), int(rect.Width), int(rect.Height)
	switch rect.EncodingType {
	case rfbwire.EncodingRaw:
		return s.handleRawRect(x, y, w, hgt)
	case rfbwire.EncodingCopyRect:
		return s.handleCopyRect(x, y, w, hgt)
	case rfbwire.EncodingDesktopSz:
		return s.handleDesktopSize(w, hgt)
	case rfbwire.EncodingPointerPos:
		if h := s.hooks(); h != nil {
			h.OnCursorPosition(x, y)
		}
		return nil
	case rfbwire.EncodingCursor:
		return s.handleCursorShape(x, y, w, hgt)
	default:
		return fmt.Errorf("%w: unsupported encoding %d (raw-only codec boundary)", ErrProtocolFailure, rect.EncodingType)
	}
}

// handleRawRect reads a Raw-encoded rectangle (RFB 6.6.1): w*h pixels at
// the negotiated 32-bit client format, each 4 bytes in little-endian byte
// order with R/G/B at byte offsets matching ExpectedPixelFormat's shifts
// (16/8/0) — i.e. on the wire the bytes appear as B,G,R,X. This decodes
// that layout into the tightly-packed R,G,B,X byte order
// framebuffer.WriteRegion expects.
func (s *Session) handleRawRect(x, y, w, h int) error {
	n := w * h * 4
	if cap(s.rectBuf) < n {
		s.rectBuf = make([]byte, n)
	}
	buf := s.rectBuf[:n]
	if _, err := io.ReadFull(s.br, buf); err != nil {
		return fmt.Errorf("%w: read raw rect: %v", ErrFatalSocket, err)
	}
	for i := 0; i < n; i += 4 {
		buf[i], buf[i+2] = buf[i+2], buf[i] // swap B<->R in place, leave G, X
	}
	if hk := s.hooks(); hk != nil {
		hk.OnWriteRawRegion(x, y, w, h, buf)
		hk.OnUpdateRegion(x, y, w, h)
	}
	return nil
}

// handleDesktopSize processes a server-pushed DesktopSize pseudo-rect
// (RFB 6.6.4 sized-pseudo-encoding): the new dimensions replace the
// framebuffer's in the same way the initial ServerInit handshake does
// (spec.md §3: "fixed until the server announces a resize, which
// triggers reallocation"). It carries no pixel payload.
func (s *Session) handleDesktopSize(w, h int) error {
	s.width, s.height = w, h
	if hk := s.hooks(); hk != nil {
		if err := hk.OnFramebufferInit(w, h, s.serverFormat); err != nil {
			return fmt.Errorf("%w: %v", ErrProtocolFailure, err)
		}
	}
	return nil
}

func (s *Session) handleCopyRect(dstX, dstY, w, h int) error {
	var buf [4]byte
	if _, err := io.ReadFull(s.br, buf[:]); err != nil {
		return fmt.Errorf("%w: read copyrect src: %v", ErrFatalSocket, err)
	}
	srcX := int(binary.BigEndian.Uint16(buf[0:2]))
	srcY := int(binary.BigEndian.Uint16(buf[2:4]))
	if hk := s.hooks(); hk != nil {
		hk.OnCopyRect(dstX, dstY, srcX, srcY, w, h)
		hk.OnUpdateRegion(dstX, dstY, w, h)
	}
	return nil
}

// handleCursorShape reads the Cursor pseudo-encoding payload (RFB 6.6.8):
// w*h pixels at the client's negotiated format followed by a
// row-padded-to-byte 1-bit-per-pixel mask. Per design note 5, cursor
// shapes whose pixel format is not 4 bytes per pixel are rejected outright
// rather than converted — the server only ever sends this in the client's
// negotiated format, so a mismatch indicates a non-conforming server.
func (s *Session) handleCursorShape(xhot, yhot, w, h int) error {
	if rfbwire.ExpectedPixelFormat.BitsPerPixel != 32 {
		return fmt.Errorf("%w: cursor shape requires 4 bytes/pixel", ErrProtocolFailure)
	}
	pixN := w * h * 4
	maskRowBytes := (w + 7) / 8
	maskN := maskRowBytes * h
	total := pixN + maskN
	if cap(s.rectBuf) < total {
		s.rectBuf = make([]byte, total)
	}
	buf := s.rectBuf[:total]
	if w > 0 && h > 0 {
		if _, err := io.ReadFull(s.br, buf); err != nil {
			return fmt.Errorf("%w: read cursor shape: %v", ErrFatalSocket, err)
		}
	}
	rgb := buf[:pixN]
	for i := 0; i < pixN; i += 4 {
		rgb[i], rgb[i+2] = rgb[i+2], rgb[i]
	}
	mask := buf[pixN:total]
	if hk := s.hooks(); hk != nil {
		hk.OnCursorShape(xhot, yhot, w, h, rgb, mask)
	}
	return nil
}

// skipSetColourMapEntries discards a SetColourMapEntries message: the
// core always negotiates TrueColour, so the server should never send
// one, but a non-conforming server's message must still be drained so the
// stream doesn't desync.
func (s *Session) skipSetColourMapEntries() error {
	var hdr [5]byte
	if _, err := io.ReadFull(s.br, hdr[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrFatalSocket, err)
	}
	n := int(binary.BigEndian.Uint16(hdr[3:5]))
	discard := make([]byte, n*6)
	_, err := io.ReadFull(s.br, discard)
	return err
}

func (s *Session) handleServerCutText() error {
	text, err := rfbwire.ReadServerCutText(s.br)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFatalSocket, err)
	}
	if text == "" {
		return nil
	}
	if h := s.hooks(); h != nil {
		h.OnServerCutText(text)
	}
	return nil
}
