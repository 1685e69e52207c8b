// Package framebuffer owns the pixel backing store for a single RFB
// connection: a fixed-layout 32-bit-per-pixel image, a reader-writer lock
// protecting it from the single writer (the driver thread), and an
// on-demand scaled derivative for zoomed-out views.
package framebuffer

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// State is the lifecycle of a Framebuffer.
type State int

const (
	Invalid State = iota
	Initialized
	Valid
)

func (s State) String() string {
	switch s {
	case Invalid:
		return "invalid"
	case Initialized:
		return "initialized"
	case Valid:
		return "valid"
	default:
		return "unknown"
	}
}

// Snapshot is a shared-ownership handle on a pixel view. Holding a
// Snapshot keeps the underlying memory alive even across a subsequent
// Allocate on the Framebuffer that produced it — the handle is reference
// counted via the Go garbage collector: as long as the caller holds the
// *image.RGBA returned by Pix, the backing array cannot be collected or
// reused, because Allocate always swaps in a fresh array rather than
// resizing in place. The view is shared, not copied: pixel writes
// (WriteRegion, CopyRect, SetPixel) made before the next Allocate land in
// the same array and are visible through the Snapshot.
type Snapshot struct {
	img *image.RGBA
}

// Pix returns the shared pixel view. Safe to call any number of times;
// the same underlying array is returned on every call for this Snapshot.
func (s Snapshot) Pix() *image.RGBA { return s.img }

// Bounds reports the dimensions of the snapshot, or a zero rectangle for
// the empty Snapshot.
func (s Snapshot) Bounds() image.Rectangle {
	if s.img == nil {
		return image.Rectangle{}
	}
	return s.img.Bounds()
}

// Framebuffer is exclusively owned and mutated by a single writer (the
// ConnectionDriver thread); many readers may hold a Snapshot concurrently.
type Framebuffer struct {
	mu    sync.RWMutex
	state State
	img   *image.RGBA

	scaledMu sync.RWMutex
	scaled   *image.RGBA
}

// New returns an empty Framebuffer in the Invalid state.
func New() *Framebuffer {
	return &Framebuffer{state: Invalid}
}

// State returns the current lifecycle state.
func (f *Framebuffer) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// Allocate replaces the pixel backing store with a fresh, zeroed w×h image
// and marks the Framebuffer Initialized. It is the single writer operation
// for resizing: called once at connection init and again whenever the
// server announces a desktop resize. Safe to call only from the driver
// thread (§5: "the driver thread is the sole writer of Framebuffer pixel
// memory").
func (f *Framebuffer) Allocate(w, h int) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	f.mu.Lock()
	f.img = img
	f.state = Initialized
	f.mu.Unlock()
}

// MarkValid transitions Initialized -> Valid after the first complete
// update from the server. A no-op if the Framebuffer is still Invalid
// (nothing has been allocated yet).
func (f *Framebuffer) MarkValid() {
	f.mu.Lock()
	if f.state != Invalid {
		f.state = Valid
	}
	f.mu.Unlock()
}

// Invalidate resets the Framebuffer to Invalid, releasing its pixel
// backing store. Called on tear-down; any Snapshot already handed out
// remains valid because it holds its own reference to the old array.
func (f *Framebuffer) Invalidate() {
	f.mu.Lock()
	f.img = nil
	f.state = Invalid
	f.mu.Unlock()
	f.scaledMu.Lock()
	f.scaled = nil
	f.scaledMu.Unlock()
}

// SetPixel writes an RGB pixel (channels packed red/green/blue, matching the
// RFB raw encoding after conversion to the client's negotiated 32-bit
// format) into the backing store at (x, y). The protocol adapter's decode
// path uses WriteRegion and CopyRect instead. No bounds check beyond what
// image.RGBA.Set already provides; callers are responsible for only
// writing inside the negotiated dimensions.
func (f *Framebuffer) SetPixel(x, y int, r, g, b uint8) {
	f.mu.Lock()
	if f.img != nil {
		f.img.Set(x, y, color.RGBA{R: r, G: g, B: b, A: 0})
	}
	f.mu.Unlock()
}

// CopyRect blits a caller-supplied RGBA sub-image into the backing store at
// (x, y), honoring the rfbCopyRect encoding (server says "move this
// already-known region").
func (f *Framebuffer) CopyRect(dstX, dstY int, src *image.RGBA, srcRect image.Rectangle) {
	f.mu.Lock()
	if f.img != nil {
		dr := image.Rect(dstX, dstY, dstX+srcRect.Dx(), dstY+srcRect.Dy())
		draw.Draw(f.img, dr, src, srcRect.Min, draw.Src)
	}
	f.mu.Unlock()
}

// WriteRegion copies a decoded raw-encoding region's RGBA bytes into the
// backing store at (x, y, w, h). data must be tightly packed RGBA, w*h*4
// bytes, in row-major order — the shape the RFB raw encoding delivers
// once converted to the client's negotiated pixel format.
func (f *Framebuffer) WriteRegion(x, y, w, h int, data []byte) {
	if len(data) < w*h*4 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.img == nil {
		return
	}
	for row := 0; row < h; row++ {
		srcOff := row * w * 4
		dstOff := f.img.PixOffset(x, y+row)
		copy(f.img.Pix[dstOff:dstOff+w*4], data[srcOff:srcOff+w*4])
	}
}

// Snapshot acquires a read lock and returns a shared-ownership handle to
// the current pixel view. Returns the zero Snapshot if the Framebuffer has
// never been allocated.
func (f *Framebuffer) Snapshot() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return Snapshot{img: f.img}
}

// Dimensions returns the current width and height, or (0, 0) before the
// first Allocate.
func (f *Framebuffer) Dimensions() (int, int) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.img == nil {
		return 0, 0
	}
	b := f.img.Bounds()
	return b.Dx(), b.Dy()
}

// RescaleTo recomputes the scaled derivative at size (w, h) using smooth,
// aspect-ignoring resampling, but only if dirty is true and a valid
// framebuffer and non-empty size exist — matching §4.3's
// "no-op if no valid framebuffer or size is empty or scaled-dirty is
// clear". On success it clears dirty's backing flag via clearDirty.
func (f *Framebuffer) RescaleTo(w, h int, dirty bool, clearDirty func()) {
	if !dirty || w <= 0 || h <= 0 {
		return
	}
	f.mu.RLock()
	src := f.img
	valid := f.state == Valid
	f.mu.RUnlock()
	if src == nil || !valid {
		return
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	f.scaledMu.Lock()
	f.scaled = dst
	f.scaledMu.Unlock()
	if clearDirty != nil {
		clearDirty()
	}
}

// Scaled returns the most recently computed scaled image, or nil if
// RescaleTo has never produced one (or Invalidate cleared it).
func (f *Framebuffer) Scaled() *image.RGBA {
	f.scaledMu.RLock()
	defer f.scaledMu.RUnlock()
	return f.scaled
}
