package rfbclient

import "errors"

// Sentinel errors the driver classifies via errors.Is, mirroring the
// teacher's internal/server/errors.go sentinel-and-wrap pattern.
var (
	ErrDial                 = errors.New("rfbclient: dial failed")
	ErrAuthenticationFailed = errors.New("rfbclient: authentication failed")
	ErrProtocolFailure      = errors.New("rfbclient: protocol failure")
	ErrFatalSocket          = errors.New("rfbclient: fatal socket error")
)
