package rfbclient

import (
	"strings"

	"github.com/liucy427/veyon-rfbcore/internal/rfbwire"
)

var encodingByName = map[string]int32{
	"raw":      rfbwire.EncodingRaw,
	"copyrect": rfbwire.EncodingCopyRect,
	"rre":      rfbwire.EncodingRRE,
	"corre":    rfbwire.EncodingCoRRE,
	"hextile":  rfbwire.EncodingHextile,
	"zlib":     rfbwire.EncodingZlib,
	"tight":    rfbwire.EncodingTight,
	"zrle":     rfbwire.EncodingZRLE,
	"zywrle":   rfbwire.EncodingZYWRLE,
	"ultra":    rfbwire.EncodingUltra,
}

// encodingsFromNames converts a quality.Profile's space-separated
// encoding-name string into wire type identifiers, appending the three
// pseudo-encodings this client always advertises (desktop-size, cursor
// shape and cursor position) and silently skipping any unrecognised token — the
// quality package only ever emits names from encodingByName, so an unknown
// token would mean a future quality profile change, not bad input.
func encodingsFromNames(names string) []int32 {
	fields := strings.Fields(names)
	out := make([]int32, 0, len(fields)+2)
	for _, f := range fields {
		if id, ok := encodingByName[f]; ok {
			out = append(out, id)
		}
	}
	out = append(out, rfbwire.EncodingDesktopSz, rfbwire.EncodingCursor, rfbwire.EncodingPointerPos)
	return out
}
