package rfbwire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrShortWrite is returned when a partial write occurs on a connection
// that otherwise reported no error — treated as fatal by the caller.
var ErrShortWrite = errors.New("rfbwire: short write")

// WritePixelFormat encodes the client's SetPixelFormat message (RFB 6.4.1):
// message type, 3 bytes padding, then the 16-byte PixelFormat.
func WritePixelFormat(w io.Writer, pf PixelFormat) error {
	buf := make([]byte, 20)
	buf[0] = CmdSetPixelFormat
	buf[4] = pf.BitsPerPixel
	buf[5] = pf.Depth
	buf[6] = pf.BigEndianFlag
	buf[7] = pf.TrueColourFlag
	binary.BigEndian.PutUint16(buf[8:10], pf.RedMax)
	binary.BigEndian.PutUint16(buf[10:12], pf.GreenMax)
	binary.BigEndian.PutUint16(buf[12:14], pf.BlueMax)
	buf[14] = pf.RedShift
	buf[15] = pf.GreenShift
	buf[16] = pf.BlueShift
	return writeAll(w, buf)
}

// WriteSetEncodings encodes the client's SetEncodings message (RFB 6.4.2)
// from a list of wire encoding identifiers, written in the given order.
// Mapping encoding names to identifiers is the caller's job.
func WriteSetEncodings(w io.Writer, encodings []int32) error {
	buf := make([]byte, 4+len(encodings)*4)
	buf[0] = CmdSetEncodings
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(encodings)))
	for i, e := range encodings {
		binary.BigEndian.PutUint32(buf[4+i*4:8+i*4], uint32(e))
	}
	return writeAll(w, buf)
}

// WriteFramebufferUpdateRequest encodes RFB 6.4.3.
func WriteFramebufferUpdateRequest(w io.Writer, req FramebufferUpdateRequest) error {
	buf := make([]byte, 10)
	buf[0] = CmdFramebufferUpdateRequest
	if req.Incremental {
		buf[1] = 1
	}
	binary.BigEndian.PutUint16(buf[2:4], req.X)
	binary.BigEndian.PutUint16(buf[4:6], req.Y)
	binary.BigEndian.PutUint16(buf[6:8], req.Width)
	binary.BigEndian.PutUint16(buf[8:10], req.Height)
	return writeAll(w, buf)
}

// WriteKeyEvent encodes RFB 6.4.4.
func WriteKeyEvent(w io.Writer, ev KeyEvent) error {
	buf := make([]byte, 8)
	buf[0] = CmdKeyEvent
	if ev.Pressed {
		buf[1] = 1
	}
	binary.BigEndian.PutUint32(buf[4:8], ev.Keysym)
	return writeAll(w, buf)
}

// WritePointerEvent encodes RFB 6.4.5.
func WritePointerEvent(w io.Writer, ev PointerEvent) error {
	buf := make([]byte, 6)
	buf[0] = CmdPointerEvent
	buf[1] = ev.ButtonMask
	binary.BigEndian.PutUint16(buf[2:4], ev.X)
	binary.BigEndian.PutUint16(buf[4:6], ev.Y)
	return writeAll(w, buf)
}

// WriteClientCutText encodes RFB 6.4.6.
func WriteClientCutText(w io.Writer, ev ClientCutText) error {
	payload := []byte(ev.Text)
	buf := make([]byte, 8+len(payload))
	buf[0] = CmdClientCutText
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[8:], payload)
	return writeAll(w, buf)
}

func writeAll(w io.Writer, buf []byte) error {
	n, err := w.Write(buf)
	if err != nil {
		return fmt.Errorf("rfbwire: write: %w", err)
	}
	if n != len(buf) {
		return ErrShortWrite
	}
	return nil
}

// ReadServerInit reads the ServerInit message (RFB 6.3.2): width, height,
// pixel format, and a server-name string.
func ReadServerInit(r io.Reader) (width, height int, pf PixelFormat, name string, err error) {
	var hdr [24]byte
	if _, err = io.ReadFull(r, hdr[:]); err != nil {
		return 0, 0, PixelFormat{}, "", fmt.Errorf("rfbwire: read server-init header: %w", err)
	}
	width = int(binary.BigEndian.Uint16(hdr[0:2]))
	height = int(binary.BigEndian.Uint16(hdr[2:4]))
	pf = PixelFormat{
		BitsPerPixel:   hdr[4],
		Depth:          hdr[5],
		BigEndianFlag:  hdr[6],
		TrueColourFlag: hdr[7],
		RedMax:         binary.BigEndian.Uint16(hdr[8:10]),
		GreenMax:       binary.BigEndian.Uint16(hdr[10:12]),
		BlueMax:        binary.BigEndian.Uint16(hdr[12:14]),
		RedShift:       hdr[14],
		GreenShift:     hdr[15],
		BlueShift:      hdr[16],
	}
	nameLen := binary.BigEndian.Uint32(hdr[20:24])
	nameBuf := make([]byte, nameLen)
	if _, err = io.ReadFull(r, nameBuf); err != nil {
		return 0, 0, PixelFormat{}, "", fmt.Errorf("rfbwire: read server name: %w", err)
	}
	return width, height, pf, string(nameBuf), nil
}

// FramebufferUpdateHeader is the fixed-size prefix of a
// FramebufferUpdate message (RFB 6.5.1): message type, padding, and a
// rectangle count.
type FramebufferUpdateHeader struct {
	NumRects uint16
}

// ReadFramebufferUpdateHeader reads the 3 bytes (1 padding byte and the
// 2-byte rectangle count) that follow the already-consumed message-type
// byte.
func ReadFramebufferUpdateHeader(r io.Reader) (FramebufferUpdateHeader, error) {
	var buf [3]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return FramebufferUpdateHeader{}, fmt.Errorf("rfbwire: read update header: %w", err)
	}
	return FramebufferUpdateHeader{NumRects: binary.BigEndian.Uint16(buf[1:3])}, nil
}

// RectHeader is a single rectangle's header within a FramebufferUpdate.
type RectHeader struct {
	X, Y, Width, Height uint16
	EncodingType        int32
}

// ReadRectHeader reads one 12-byte rectangle header.
func ReadRectHeader(r io.Reader) (RectHeader, error) {
	var buf [12]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return RectHeader{}, fmt.Errorf("rfbwire: read rect header: %w", err)
	}
	return RectHeader{
		X:            binary.BigEndian.Uint16(buf[0:2]),
		Y:            binary.BigEndian.Uint16(buf[2:4]),
		Width:        binary.BigEndian.Uint16(buf[4:6]),
		Height:       binary.BigEndian.Uint16(buf[6:8]),
		EncodingType: int32(binary.BigEndian.Uint32(buf[8:12])),
	}, nil
}

// ReadServerCutText reads the ServerCutText message body (after the
// message-type byte has already been consumed): 3 padding bytes, a
// 4-byte length, then the UTF-8 text.
func ReadServerCutText(r io.Reader) (string, error) {
	var hdr [7]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return "", fmt.Errorf("rfbwire: read cut-text header: %w", err)
	}
	n := binary.BigEndian.Uint32(hdr[3:7])
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return "", fmt.Errorf("rfbwire: read cut-text body: %w", err)
	}
	return string(body), nil
}
