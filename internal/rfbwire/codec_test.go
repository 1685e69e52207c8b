package rfbwire

import (
	"bytes"
	"testing"
)

func TestWriteFramebufferUpdateRequestHeader(t *testing.T) {
	var buf bytes.Buffer
	req := FramebufferUpdateRequest{Incremental: true, X: 1, Y: 2, Width: 800, Height: 600}
	if err := WriteFramebufferUpdateRequest(&buf, req); err != nil {
		t.Fatalf("WriteFramebufferUpdateRequest: %v", err)
	}
	b := buf.Bytes()
	if b[0] != CmdFramebufferUpdateRequest {
		t.Fatalf("message type = %d, want %d", b[0], CmdFramebufferUpdateRequest)
	}
	if b[1] != 1 {
		t.Fatalf("incremental flag = %d, want 1", b[1])
	}
}

func TestWriteKeyEventEncodesPressedFlag(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteKeyEvent(&buf, KeyEvent{Pressed: false, Keysym: 0x41}); err != nil {
		t.Fatalf("WriteKeyEvent: %v", err)
	}
	b := buf.Bytes()
	if b[1] != 0 {
		t.Fatalf("pressed flag = %d, want 0", b[1])
	}
	if len(b) != 8 {
		t.Fatalf("key event length = %d, want 8", len(b))
	}
}

func TestReadServerInitRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	// Manually build a ServerInit message body: width=1024 height=768, expected pixel format, name="srv".
	hdr := make([]byte, 24)
	hdr[0], hdr[1] = 0x04, 0x00 // width 1024
	hdr[2], hdr[3] = 0x03, 0x00 // height 768
	hdr[4] = ExpectedPixelFormat.BitsPerPixel
	hdr[5] = ExpectedPixelFormat.Depth
	hdr[6] = ExpectedPixelFormat.BigEndianFlag
	hdr[7] = ExpectedPixelFormat.TrueColourFlag
	hdr[8], hdr[9] = 0x00, 0xFF
	hdr[10], hdr[11] = 0x00, 0xFF
	hdr[12], hdr[13] = 0x00, 0xFF
	hdr[14] = ExpectedPixelFormat.RedShift
	hdr[15] = ExpectedPixelFormat.GreenShift
	hdr[16] = ExpectedPixelFormat.BlueShift
	hdr[20], hdr[21], hdr[22], hdr[23] = 0, 0, 0, 3
	buf.Write(hdr)
	buf.WriteString("srv")

	w, h, pf, name, err := ReadServerInit(&buf)
	if err != nil {
		t.Fatalf("ReadServerInit: %v", err)
	}
	if w != 1024 || h != 768 {
		t.Fatalf("dimensions = (%d, %d), want (1024, 768)", w, h)
	}
	if !pf.MatchesExpected32Bit() {
		t.Fatalf("expected 32-bit pixel format, got %+v", pf)
	}
	if name != "srv" {
		t.Fatalf("name = %q, want %q", name, "srv")
	}
}

func TestMatchesExpected32BitRejects16BitServerInit(t *testing.T) {
	var buf bytes.Buffer
	hdr := make([]byte, 24)
	hdr[4] = 16 // 16 bits per pixel, the classic mismatch scenario from spec.md §8 scenario 5
	buf.Write(hdr)
	_, _, pf, _, err := ReadServerInit(&buf)
	if err != nil {
		t.Fatalf("ReadServerInit: %v", err)
	}
	if pf.MatchesExpected32Bit() {
		t.Fatal("expected MatchesExpected32Bit to be false for a 16-bit format")
	}
}

func TestReadServerCutTextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0})
	lenBuf := make([]byte, 4)
	text := "hello clipboard"
	lenBuf[3] = byte(len(text))
	buf.Write(lenBuf)
	buf.WriteString(text)

	got, err := ReadServerCutText(&buf)
	if err != nil {
		t.Fatalf("ReadServerCutText: %v", err)
	}
	if got != text {
		t.Fatalf("got %q, want %q", got, text)
	}
}
