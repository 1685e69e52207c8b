// Package rfbwire holds RFB (Remote Framebuffer) wire-format constants and
// the on-the-wire PixelFormat structure, grounded on the message layout
// used by both example RFB servers in the retrieval pack (patdhlk/rfb and
// bradfitz/rfbgo) — this module reads the client-to-server side of the
// same protocol those implement server-to-client.
package rfbwire

// Protocol version handshake strings, as sent by the server and echoed by
// the client during the initial version negotiation.
const (
	Version33 = "RFB 003.003\n"
	Version37 = "RFB 003.007\n"
	Version38 = "RFB 003.008\n"
)

// Security types (RFB 6.1.1).
const (
	SecurityInvalid = 0
	SecurityNone    = 1
	SecurityVNCAuth = 2
)

// Security result (RFB 6.1.3 / 6.2.2).
const (
	SecurityResultOK     = 0
	SecurityResultFailed = 1
)

// Encoding type identifiers (RFB 6.6 / the pack's tight/zrle extensions).
const (
	EncodingRaw       int32 = 0
	EncodingCopyRect  int32 = 1
	EncodingRRE       int32 = 2
	EncodingCoRRE     int32 = 4
	EncodingHextile   int32 = 5
	EncodingZlib      int32 = 6
	EncodingTight     int32 = 7
	EncodingZRLE      int32 = 16
	EncodingZYWRLE    int32 = 17
	EncodingUltra     int32 = 9
	EncodingDesktopSz int32 = -223
	EncodingCursor    int32 = -239
	EncodingPointerPos int32 = -232
)

// Client-to-server message types (RFB 6.4).
const (
	CmdSetPixelFormat           = 0
	CmdSetEncodings             = 2
	CmdFramebufferUpdateRequest = 3
	CmdKeyEvent                 = 4
	CmdPointerEvent             = 5
	CmdClientCutText            = 6
)

// Server-to-client message types (RFB 6.5).
const (
	CmdFramebufferUpdate  = 0
	CmdSetColourMapEntries = 1
	CmdBell                = 2
	CmdServerCutText       = 3
)

// PixelFormat is the RFB wire PixelFormat structure (RFB 6.3.1/6.5.1),
// 16 bytes on the wire including 3 padding bytes. The core only ever
// negotiates one concrete instance of this (see ExpectedPixelFormat):
// 32-bit-per-pixel, 8 bits per R/G/B channel, at byte shifts 16/8/0.
type PixelFormat struct {
	BitsPerPixel          uint8
	Depth                 uint8
	BigEndianFlag         uint8
	TrueColourFlag        uint8
	RedMax                uint16
	GreenMax              uint16
	BlueMax               uint16
	RedShift              uint8
	GreenShift            uint8
	BlueShift             uint8
	// 3 padding bytes, not represented here; encode/decode handle them.
}

// ExpectedPixelFormat is the only pixel format this client negotiates:
// 32 bits per pixel, 24-bit depth, true colour, little-endian, with
// red/green/blue 8-bit channels at byte shifts 16/8/0 — matching the
// Framebuffer's fixed in-memory layout (spec.md §3 "Pixel buffer").
var ExpectedPixelFormat = PixelFormat{
	BitsPerPixel:   32,
	Depth:          24,
	BigEndianFlag:  0,
	TrueColourFlag: 1,
	RedMax:         0xFF,
	GreenMax:       0xFF,
	BlueMax:        0xFF,
	RedShift:       16,
	GreenShift:     8,
	BlueShift:      0,
}

// MatchesExpected32Bit reports whether a server-announced format uses the
// 32-bit-per-pixel layout the core requires. A mismatch is a protocol
// failure per spec.md §4.2 ("init framebuffer ... fail the connection if
// not"); the core does not attempt to convert other bit depths.
func (pf PixelFormat) MatchesExpected32Bit() bool {
	return pf.BitsPerPixel == 32
}

// FramebufferUpdateRequest is the client->server message requesting
// (incremental or full) pixel updates for a rectangle.
type FramebufferUpdateRequest struct {
	Incremental         bool
	X, Y, Width, Height uint16
}

// KeyEvent is the client->server message for a single key press/release.
type KeyEvent struct {
	Pressed bool
	Keysym  uint32
}

// PointerEvent is the client->server message for pointer motion/buttons.
type PointerEvent struct {
	ButtonMask uint8
	X, Y       uint16
}

// ClientCutText is the client->server clipboard message.
type ClientCutText struct {
	Text string
}
