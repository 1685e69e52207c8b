package rfbclient

import (
	"bufio"
	"fmt"
	"io"
)

// negotiateVersion performs the RFB 6.1.1 version handshake: read the
// server's 12-byte version string, reply with the highest version both
// sides understand (this client always replies 3.8, which every server
// implementation this core targets accepts and, per the RFB spec,
// silently downgrades its own behaviour for if it only speaks 3.3/3.7).
func negotiateVersion(r *bufio.Reader, w io.Writer) error {
	buf := make([]byte, 12)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("rfbclient: read server version: %w", err)
	}
	if _, err := io.WriteString(w, "RFB 003.008\n"); err != nil {
		return fmt.Errorf("rfbclient: write client version: %w", err)
	}
	return nil
}

// negotiateSecurityNone performs the RFB 3.7/3.8 security-type negotiation,
// only ever selecting "None" — VNC password and other auth schemes are out
// of scope for this core (the spec's AuthenticationFailed state exists for
// when a server refuses a connection outright, not for this client
// implementing a password prompt).
func negotiateSecurityNone(r *bufio.Reader, w io.Writer) error {
	var count [1]byte
	if _, err := io.ReadFull(r, count[:]); err != nil {
		return fmt.Errorf("rfbclient: read security-type count: %w", err)
	}
	n := int(count[0])
	if n == 0 {
		return errSecurityHandshakeFailed(r)
	}
	types := make([]byte, n)
	if _, err := io.ReadFull(r, types); err != nil {
		return fmt.Errorf("rfbclient: read security types: %w", err)
	}
	found := false
	for _, t := range types {
		if t == 1 { // SecurityNone
			found = true
			break
		}
	}
	if !found {
		return ErrAuthenticationFailed
	}
	if _, err := w.Write([]byte{1}); err != nil {
		return fmt.Errorf("rfbclient: write security choice: %w", err)
	}
	var result [4]byte
	if _, err := io.ReadFull(r, result[:]); err != nil {
		return fmt.Errorf("rfbclient: read security result: %w", err)
	}
	if result[3] != 0 {
		return ErrAuthenticationFailed
	}
	return nil
}

func errSecurityHandshakeFailed(r *bufio.Reader) error {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return ErrAuthenticationFailed
	}
	n := int(lenBuf[3]) | int(lenBuf[2])<<8 | int(lenBuf[1])<<16 | int(lenBuf[0])<<24
	if n > 0 {
		msg := make([]byte, n)
		_, _ = io.ReadFull(r, msg)
		return fmt.Errorf("%w: %s", ErrAuthenticationFailed, string(msg))
	}
	return ErrAuthenticationFailed
}

// sendClientInit writes ClientInit (RFB 6.1.4) requesting a non-shared
// session — this core always wants exclusive control of the remote
// desktop.
func sendClientInit(w io.Writer) error {
	_, err := w.Write([]byte{0})
	return err
}
