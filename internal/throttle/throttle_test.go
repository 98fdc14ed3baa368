package throttle

import (
	"sync"
	"testing"
	"time"
)

type move struct {
	id   string
	x, y float64
}

type recorder struct {
	mu    sync.Mutex
	calls []move
	at    []time.Time
}

func (r *recorder) record(m move) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, m)
	r.at = append(r.at, time.Now())
}

func (r *recorder) snapshot() []move {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]move(nil), r.calls...)
}

func TestBurstForwardsLastValueOnce(t *testing.T) {
	rec := &recorder{}
	th := New(30*time.Millisecond, rec.record)

	start := time.Now()
	for i := 0; i < 10; i++ {
		th.Call(move{"w1", float64(i), float64(i * 2)})
	}

	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("forwarded before the window closed: %v", got)
	}

	time.Sleep(120 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 1 {
		t.Fatalf("got %d sends, want 1", len(got))
	}
	if got[0] != (move{"w1", 9, 18}) {
		t.Fatalf("got %v, want last call", got[0])
	}
	if elapsed := rec.at[0].Sub(start); elapsed < 30*time.Millisecond {
		t.Fatalf("forwarded after %s, before the window boundary", elapsed)
	}
}

func TestSpacedCallsEachForwarded(t *testing.T) {
	rec := &recorder{}
	th := New(10*time.Millisecond, rec.record)

	th.Call(move{id: "a"})
	time.Sleep(60 * time.Millisecond)
	th.Call(move{id: "b"})
	time.Sleep(60 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 2 || got[0].id != "a" || got[1].id != "b" {
		t.Fatalf("got %v", got)
	}
}

func TestFlushForwardsPendingImmediately(t *testing.T) {
	rec := &recorder{}
	th := New(time.Hour, rec.record)

	th.Call(move{id: "a", x: 1})
	th.Call(move{id: "a", x: 2})
	th.Flush()

	got := rec.snapshot()
	if len(got) != 1 || got[0].x != 2 {
		t.Fatalf("got %v", got)
	}

	th.Flush()
	if n := len(rec.snapshot()); n != 1 {
		t.Fatalf("flush without pending value forwarded: %d", n)
	}
}

func TestFlushThenCallOpensNewWindow(t *testing.T) {
	rec := &recorder{}
	th := New(20*time.Millisecond, rec.record)

	th.Call(move{id: "a"})
	th.Flush()
	th.Call(move{id: "b"})
	time.Sleep(80 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 2 || got[1].id != "b" {
		t.Fatalf("got %v", got)
	}
}

func TestStopDiscardsPending(t *testing.T) {
	rec := &recorder{}
	th := New(10*time.Millisecond, rec.record)

	th.Call(move{id: "a"})
	th.Stop()
	th.Call(move{id: "b"})
	time.Sleep(50 * time.Millisecond)

	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("got %v after stop", got)
	}
}
