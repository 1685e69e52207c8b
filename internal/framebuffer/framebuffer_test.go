package framebuffer

import (
	"sync"
	"testing"
)

func TestAllocateInitializesState(t *testing.T) {
	f := New()
	if f.State() != Invalid {
		t.Fatalf("new framebuffer state = %v, want Invalid", f.State())
	}
	f.Allocate(4, 3)
	if f.State() != Initialized {
		t.Fatalf("state after Allocate = %v, want Initialized", f.State())
	}
	w, h := f.Dimensions()
	if w != 4 || h != 3 {
		t.Fatalf("Dimensions = (%d, %d), want (4, 3)", w, h)
	}
}

func TestMarkValidRequiresAllocation(t *testing.T) {
	f := New()
	f.MarkValid()
	if f.State() != Invalid {
		t.Fatalf("MarkValid on unallocated framebuffer should stay Invalid, got %v", f.State())
	}
	f.Allocate(1, 1)
	f.MarkValid()
	if f.State() != Valid {
		t.Fatalf("state after MarkValid = %v, want Valid", f.State())
	}
}

func TestSnapshotSurvivesReallocation(t *testing.T) {
	f := New()
	f.Allocate(2, 2)
	f.MarkValid()
	f.SetPixel(0, 0, 10, 20, 30)
	snap := f.Snapshot()

	f.Allocate(5, 5) // reallocate while snap is held
	f.SetPixel(0, 0, 99, 99, 99)

	r, g, b, _ := snap.Pix().At(0, 0).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 {
		t.Fatalf("snapshot pixel mutated after reallocation: got (%d,%d,%d)", r>>8, g>>8, b>>8)
	}
	if got := snap.Bounds().Dx(); got != 2 {
		t.Fatalf("snapshot bounds changed after reallocation: Dx=%d, want 2", got)
	}
}

func TestRescaleToNoopWhenNotDirty(t *testing.T) {
	f := New()
	f.Allocate(10, 10)
	f.MarkValid()
	cleared := false
	f.RescaleTo(5, 5, false, func() { cleared = true })
	if f.Scaled() != nil {
		t.Fatal("expected no scaled image when dirty=false")
	}
	if cleared {
		t.Fatal("clearDirty should not be called when dirty was already false")
	}
}

func TestRescaleToNoopOnInvalidFramebuffer(t *testing.T) {
	f := New()
	f.RescaleTo(5, 5, true, func() {})
	if f.Scaled() != nil {
		t.Fatal("expected no scaled image for an Invalid framebuffer")
	}
}

func TestRescaleToProducesRequestedSize(t *testing.T) {
	f := New()
	f.Allocate(20, 10)
	f.MarkValid()
	var clearedCount int
	var mu sync.Mutex
	f.RescaleTo(8, 6, true, func() {
		mu.Lock()
		clearedCount++
		mu.Unlock()
	})
	scaled := f.Scaled()
	if scaled == nil {
		t.Fatal("expected a scaled image")
	}
	if b := scaled.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Fatalf("scaled bounds = %v, want 8x6", b)
	}
	if clearedCount != 1 {
		t.Fatalf("clearDirty called %d times, want 1", clearedCount)
	}
}

func TestInvalidateClearsStateAndScaled(t *testing.T) {
	f := New()
	f.Allocate(4, 4)
	f.MarkValid()
	f.RescaleTo(2, 2, true, func() {})
	f.Invalidate()
	if f.State() != Invalid {
		t.Fatalf("state after Invalidate = %v, want Invalid", f.State())
	}
	if f.Scaled() != nil {
		t.Fatal("expected scaled image cleared after Invalidate")
	}
}
