// Package quality maps a user-selected connection quality level to the
// encoding/compression parameters the RFB client negotiates with the server.
package quality

// Level is a user-selected connection quality preset.
type Level int

const (
	Highest Level = iota
	High
	Medium
	Low
	Lowest
)

// String renders the level for logging.
func (l Level) String() string {
	switch l {
	case Highest:
		return "highest"
	case High:
		return "high"
	case Medium:
		return "medium"
	case Low:
		return "low"
	case Lowest:
		return "lowest"
	default:
		return "unknown"
	}
}

// Profile is the pure result of mapping a Level to protocol parameters.
type Profile struct {
	Encodings     string
	CompressLevel int
	QualityLevel  int
	JPEGEnabled   bool
}

const (
	losslessEncodings = "zrle ultra copyrect hextile zlib corre rre raw"
	lossyEncodings    = "tight zywrle zrle ultra"
)

// For maps a quality Level to its Profile. CompressLevel is always 9;
// JPEGEnabled is true for every level except Highest (lossless).
func For(l Level) Profile {
	if l == Highest {
		return Profile{
			Encodings:     losslessEncodings,
			CompressLevel: 9,
			QualityLevel:  9,
			JPEGEnabled:   false,
		}
	}
	p := Profile{
		Encodings:     lossyEncodings,
		CompressLevel: 9,
		JPEGEnabled:   true,
	}
	switch l {
	case High:
		p.QualityLevel = 7
	case Medium:
		p.QualityLevel = 5
	case Low:
		p.QualityLevel = 3
	default: // Lowest and any out-of-range value
		p.QualityLevel = 0
	}
	return p
}
