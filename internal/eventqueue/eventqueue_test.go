package eventqueue

import (
	"errors"
	"sync"
	"testing"
)

type recordingSender struct {
	mu     sync.Mutex
	pointer []struct{ x, y int; mask uint8 }
	keys    []struct {
		keysym  uint32
		pressed bool
	}
	cuts    []string
	refresh int
	failNext bool
}

func (s *recordingSender) SendPointerEvent(x, y int, mask uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pointer = append(s.pointer, struct {
		x, y int
		mask uint8
	}{x, y, mask})
	return nil
}

func (s *recordingSender) SendKeyEvent(keysym uint32, pressed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return errors.New("boom")
	}
	s.keys = append(s.keys, struct {
		keysym  uint32
		pressed bool
	}{keysym, pressed})
	return nil
}

func (s *recordingSender) SendClientCut(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cuts = append(s.cuts, text)
	return nil
}

func (s *recordingSender) SendFormatAndEncodings() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh++
	return nil
}

func TestEnqueueDrainOrder(t *testing.T) {
	q := New()
	q.Enqueue(Event{Kind: KindKey, Keysym: 1, Pressed: true})
	q.Enqueue(Event{Kind: KindKey, Keysym: 2, Pressed: false})
	q.Enqueue(Event{Kind: KindClientCut, Text: "hello"})

	s := &recordingSender{}
	q.DrainInto(s, nil)

	if len(s.keys) != 2 || s.keys[0].keysym != 1 || s.keys[1].keysym != 2 {
		t.Fatalf("unexpected key order: %+v", s.keys)
	}
	if len(s.cuts) != 1 || s.cuts[0] != "hello" {
		t.Fatalf("unexpected cuts: %+v", s.cuts)
	}
	if q.Len() != 0 {
		t.Fatalf("expected queue drained, len=%d", q.Len())
	}
}

func TestDrainDeliversExactlyOnceEvenOnSendError(t *testing.T) {
	q := New()
	s := &recordingSender{failNext: true}
	q.Enqueue(Event{Kind: KindKey, Keysym: 42})
	q.DrainInto(s, nil)
	if len(s.keys) != 0 {
		t.Fatalf("expected failed send not recorded, got %+v", s.keys)
	}
	if q.Len() != 0 {
		t.Fatalf("expected event discarded after failed send, not requeued, len=%d", q.Len())
	}
}

func TestDrainStopsOnTerminate(t *testing.T) {
	q := New()
	q.Enqueue(Event{Kind: KindRefreshFormatAndEncodings})
	q.Enqueue(Event{Kind: KindRefreshFormatAndEncodings})
	s := &recordingSender{}
	called := false
	q.DrainInto(s, func() bool {
		called = true
		return true
	})
	if !called {
		t.Fatal("expected stopped predicate to be consulted")
	}
	if s.refresh != 0 {
		t.Fatalf("expected zero events delivered once stopped, got %d", s.refresh)
	}
}

func TestCloseDropsFutureEnqueues(t *testing.T) {
	q := New()
	q.Close()
	q.Enqueue(Event{Kind: KindRefreshFormatAndEncodings})
	if q.Len() != 0 {
		t.Fatalf("expected enqueue after Close to be dropped, len=%d", q.Len())
	}
}

func TestConcurrentEnqueueKeepsEveryEvent(t *testing.T) {
	q := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			q.Enqueue(Event{Kind: KindKey, Keysym: uint32(n)})
		}(i)
	}
	wg.Wait()
	if q.Len() != 100 {
		t.Fatalf("expected 100 queued events, got %d", q.Len())
	}
}
