package capture

import (
	"context"
	"testing"
	"time"

	"github.com/mayukhjana/ticket-stamp-scan-track/internal/clock"
)

type fakeSource struct {
	frame Frame
	ok    bool
}

func (f *fakeSource) Frame() (Frame, bool) {
	return f.frame, f.ok
}

func (f *fakeSource) set(w, h int) {
	f.frame = Frame{Pix: make([]uint8, 4*w*h), Width: w, Height: h}
	f.ok = true
}

// fakeDecoder returns its configured payload on every call.
type fakeDecoder struct {
	payload string
	found   bool
	calls   int
}

func (d *fakeDecoder) Decode(_ []uint8, _, _ int) (string, bool) {
	d.calls++
	return d.payload, d.found
}

type panicDecoder struct{}

func (panicDecoder) Decode(_ []uint8, _, _ int) (string, bool) {
	panic("decoder blew up")
}

func TestLoop_Debounce(t *testing.T) {
	t.Parallel()

	newLoop := func(dec Decoder) (*Loop, *fakeSource, *clock.Manual, *[]string) {
		src := &fakeSource{}
		src.set(640, 480)
		clk := clock.NewManual(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
		var detected []string
		loop := NewLoop(src, dec, clk, func(p string) {
			detected = append(detected, p)
		}, WithDebounceWindow(time.Second))
		loop.Start()
		return loop, src, clk, &detected
	}

	t.Run("same payload within window fires once", func(t *testing.T) {
		dec := &fakeDecoder{payload: "A", found: true}
		loop, _, clk, detected := newLoop(dec)

		loop.Tick()
		clk.Advance(200 * time.Millisecond)
		loop.Tick()

		if len(*detected) != 1 {
			t.Fatalf("expected 1 detection, got %d", len(*detected))
		}
	})

	t.Run("same payload after window fires again", func(t *testing.T) {
		dec := &fakeDecoder{payload: "A", found: true}
		loop, _, clk, detected := newLoop(dec)

		loop.Tick()
		clk.Advance(1100 * time.Millisecond)
		loop.Tick()

		if len(*detected) != 2 {
			t.Fatalf("expected 2 detections, got %d", len(*detected))
		}
	})

	t.Run("distinct payloads pass through regardless of timing", func(t *testing.T) {
		dec := &fakeDecoder{payload: "A", found: true}
		loop, _, _, detected := newLoop(dec)

		loop.Tick()
		dec.payload = "B"
		loop.Tick()

		if len(*detected) != 2 {
			t.Fatalf("expected 2 detections, got %d", len(*detected))
		}
		if (*detected)[0] != "A" || (*detected)[1] != "B" {
			t.Fatalf("unexpected detections %v", *detected)
		}
	})

	t.Run("debounce state survives intervening misses", func(t *testing.T) {
		dec := &fakeDecoder{payload: "A", found: true}
		loop, _, clk, detected := newLoop(dec)

		loop.Tick()
		dec.found = false
		clk.Advance(300 * time.Millisecond)
		loop.Tick()
		dec.found = true
		clk.Advance(300 * time.Millisecond)
		loop.Tick()

		if len(*detected) != 1 {
			t.Fatalf("expected 1 detection, got %d", len(*detected))
		}
	})
}

func TestLoop_BenignConditions(t *testing.T) {
	t.Parallel()

	clk := clock.NewFixed(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	t.Run("no frame available", func(t *testing.T) {
		dec := &fakeDecoder{payload: "A", found: true}
		src := &fakeSource{ok: false}
		loop := NewLoop(src, dec, clk, func(string) { t.Fatal("unexpected detection") })
		loop.Start()
		loop.Tick()
		if dec.calls != 0 {
			t.Fatalf("decoder should not run without a frame, ran %d times", dec.calls)
		}
	})

	t.Run("zero-dimension frame", func(t *testing.T) {
		dec := &fakeDecoder{payload: "A", found: true}
		src := &fakeSource{frame: Frame{Width: 0, Height: 0}, ok: true}
		loop := NewLoop(src, dec, clk, func(string) { t.Fatal("unexpected detection") })
		loop.Start()
		loop.Tick()
		if dec.calls != 0 {
			t.Fatalf("decoder should not run on an empty frame, ran %d times", dec.calls)
		}
	})

	t.Run("panicking decoder is a miss", func(t *testing.T) {
		src := &fakeSource{}
		src.set(64, 64)
		loop := NewLoop(src, panicDecoder{}, clk, func(string) { t.Fatal("unexpected detection") })
		loop.Start()
		loop.Tick()
		loop.Tick()
	})

	t.Run("inactive loop never samples", func(t *testing.T) {
		dec := &fakeDecoder{payload: "A", found: true}
		src := &fakeSource{}
		src.set(64, 64)
		loop := NewLoop(src, dec, clk, func(string) { t.Fatal("unexpected detection") })
		loop.Tick()
		if dec.calls != 0 {
			t.Fatalf("expected no decode calls while inactive, got %d", dec.calls)
		}
	})
}

func TestLoop_StopOnDetect(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	src.set(64, 64)
	dec := &fakeDecoder{payload: "A", found: true}
	clk := clock.NewManual(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	var detections int
	loop := NewLoop(src, dec, clk, func(string) { detections++ },
		WithDebounceWindow(time.Second), WithStopOnDetect(true))
	loop.Start()

	loop.Tick()
	clk.Advance(2 * time.Second)
	loop.Tick()

	if detections != 1 {
		t.Fatalf("expected loop to deactivate after detection, got %d detections", detections)
	}
	if loop.Active() {
		t.Fatal("expected loop inactive after stop-on-detect")
	}

	// Restarting resumes scanning.
	loop.Start()
	clk.Advance(2 * time.Second)
	loop.Tick()
	if detections != 2 {
		t.Fatalf("expected detection after restart, got %d", detections)
	}
}

func TestLoop_StartStopIdempotent(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	src.set(64, 64)
	dec := &fakeDecoder{payload: "A", found: true}
	loop := NewLoop(src, dec, clock.NewSystem(), func(string) {})

	loop.Start()
	loop.Start()
	if !loop.Active() {
		t.Fatal("expected active after Start")
	}
	loop.Stop()
	loop.Stop()
	if loop.Active() {
		t.Fatal("expected inactive after Stop")
	}
}

func TestLoop_BufferReuse(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	src.set(100, 50)
	dec := &fakeDecoder{}
	loop := NewLoop(src, dec, clock.NewSystem(), func(string) {})
	loop.Start()

	loop.Tick()
	first := &loop.buf[0]
	loop.Tick()
	if first != &loop.buf[0] {
		t.Fatal("expected buffer reuse for unchanged dimensions")
	}

	src.set(200, 100)
	loop.Tick()
	if len(loop.buf) != 4*200*100 {
		t.Fatalf("expected buffer resized to new frame, got len %d", len(loop.buf))
	}
}

func TestRunner_StopsOnCancel(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	src.set(64, 64)
	dec := &fakeDecoder{payload: "A", found: true}

	detected := make(chan string, 1)
	loop := NewLoop(src, dec, clock.NewSystem(), func(p string) {
		select {
		case detected <- p:
		default:
		}
	})
	loop.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	runner := NewRunner(loop, time.Millisecond)
	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	select {
	case p := <-detected:
		if p != "A" {
			t.Fatalf("expected payload A, got %q", p)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for detection")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop on cancel")
	}
}
