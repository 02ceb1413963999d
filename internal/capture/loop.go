package capture

import (
	"sync"
	"time"

	"github.com/mayukhjana/ticket-stamp-scan-track/internal/clock"
)

const defaultDebounceWindow = 1500 * time.Millisecond

// Loop repeatedly samples the frame source and tries to decode a QR code,
// surfacing at most one detection per distinct code within the debounce
// window. Tick is cheap and never blocks: missing frames, zero-sized frames
// and decode misses all fall through to the next tick silently.
type Loop struct {
	source     FrameSource
	decoder    Decoder
	clock      clock.Clock
	onDetected func(payload string)

	debounce     time.Duration
	stopOnDetect bool

	mu          sync.Mutex
	active      bool
	buf         []uint8
	bufW, bufH  int
	lastPayload string
	lastAt      time.Time
	seenAny     bool
}

type LoopOption func(*Loop)

// WithDebounceWindow overrides how long a just-seen payload is suppressed.
// The source app used 1s in one scanner variant and 2s in another; the
// default splits the difference.
func WithDebounceWindow(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.debounce = d
		}
	}
}

// WithStopOnDetect makes the loop deactivate itself after a detection
// (close-on-scan stations). The default is continuous scanning.
func WithStopOnDetect(stop bool) LoopOption {
	return func(l *Loop) {
		l.stopOnDetect = stop
	}
}

func NewLoop(source FrameSource, decoder Decoder, clk clock.Clock, onDetected func(string), opts ...LoopOption) *Loop {
	l := &Loop{
		source:     source,
		decoder:    decoder,
		clock:      clk,
		onDetected: onDetected,
		debounce:   defaultDebounceWindow,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start marks the loop active. Calling it while already active is a no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = true
}

// Stop marks the loop inactive; any subsequent Tick is a no-op until the
// next Start. Safe to call repeatedly.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = false
}

func (l *Loop) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Tick runs one capture-and-decode attempt. The callback is invoked outside
// the loop's lock so it may call Start/Stop without deadlocking.
func (l *Loop) Tick() {
	l.mu.Lock()
	payload, fire := l.tickLocked()
	cb := l.onDetected
	l.mu.Unlock()

	if fire && cb != nil {
		cb(payload)
	}
}

func (l *Loop) tickLocked() (string, bool) {
	if !l.active {
		return "", false
	}

	frame, ok := l.source.Frame()
	if !ok || frame.Width <= 0 || frame.Height <= 0 {
		return "", false
	}

	l.fillBuffer(frame)

	payload, found := decodeSafely(l.decoder, l.buf, frame.Width, frame.Height)
	if !found {
		return "", false
	}

	now := l.clock.Now()
	if l.seenAny && payload == l.lastPayload && now.Sub(l.lastAt) < l.debounce {
		return "", false
	}
	l.lastPayload = payload
	l.lastAt = now
	l.seenAny = true

	if l.stopOnDetect {
		l.active = false
	}
	return payload, true
}

// fillBuffer copies the frame into the reusable buffer, reallocating only
// when the frame dimensions change.
func (l *Loop) fillBuffer(f Frame) {
	if f.Width != l.bufW || f.Height != l.bufH {
		l.buf = make([]uint8, 4*f.Width*f.Height)
		l.bufW, l.bufH = f.Width, f.Height
	}
	copy(l.buf, f.Pix)
}

// decodeSafely treats a panicking decoder the same as a decode miss; the
// loop must survive malformed pixel data.
func decodeSafely(d Decoder, pix []uint8, w, h int) (payload string, ok bool) {
	defer func() {
		if recover() != nil {
			payload, ok = "", false
		}
	}()
	return d.Decode(pix, w, h)
}
