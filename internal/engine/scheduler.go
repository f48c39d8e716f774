package engine

import (
	"sort"
	"sync"
	"time"
)

// FrameFunc receives the frame timestamp, measured from an arbitrary origin.
type FrameFunc func(now time.Duration)

// FrameHandle identifies a requested frame. Handles increase monotonically.
type FrameHandle uint64

// Scheduler is the host's frame and timer source. All callbacks must run on a
// single goroutine, in the spirit of a browser main thread.
type Scheduler interface {
	RequestFrame(fn FrameFunc) FrameHandle
	CancelFrame(h FrameHandle)
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

// VirtualScheduler is a deterministic Scheduler driven by Step or Run. Frames
// fire on a fixed interval grid; timers fire in due order, before a frame
// scheduled for the same instant.
type VirtualScheduler struct {
	interval time.Duration

	mu        sync.Mutex
	now       time.Duration
	lastFrame time.Duration
	ranFrame  bool

	nextHandle FrameHandle
	frames     []pendingFrame

	timerSeq uint64
	timers   []*virtualTimer
}

type pendingFrame struct {
	handle FrameHandle
	fn     FrameFunc
}

type virtualTimer struct {
	seq       uint64
	due       time.Duration
	fn        func()
	cancelled bool
}

func NewVirtualScheduler(interval time.Duration) *VirtualScheduler {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &VirtualScheduler{interval: interval}
}

// FrameRate builds the frame interval for fps frames per second.
func FrameRate(fps int) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Second / time.Duration(fps)
}

func (s *VirtualScheduler) Interval() time.Duration { return s.interval }

func (s *VirtualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *VirtualScheduler) RequestFrame(fn FrameFunc) FrameHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHandle++
	s.frames = append(s.frames, pendingFrame{handle: s.nextHandle, fn: fn})
	return s.nextHandle
}

func (s *VirtualScheduler) CancelFrame(h FrameHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.frames {
		if f.handle == h {
			s.frames = append(s.frames[:i], s.frames[i+1:]...)
			return
		}
	}
}

func (s *VirtualScheduler) AfterFunc(d time.Duration, fn func()) func() {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	s.timerSeq++
	t := &virtualTimer{seq: s.timerSeq, due: s.now + d, fn: fn}
	s.timers = append(s.timers, t)
	sort.SliceStable(s.timers, func(i, j int) bool {
		if s.timers[i].due != s.timers[j].due {
			return s.timers[i].due < s.timers[j].due
		}
		return s.timers[i].seq < s.timers[j].seq
	})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		t.cancelled = true
		for i, other := range s.timers {
			if other == t {
				s.timers = append(s.timers[:i], s.timers[i+1:]...)
				break
			}
		}
	}
}

// Pending is the number of outstanding frames and timers.
func (s *VirtualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames) + len(s.timers)
}

// nextFrameAt is the next grid instant after the last fired frame.
func (s *VirtualScheduler) nextFrameAt() time.Duration {
	t := (s.now + s.interval - 1) / s.interval * s.interval
	if s.ranFrame && t <= s.lastFrame {
		t = s.lastFrame + s.interval
	}
	return t
}

// nextEvent reports when the next callback would run.
func (s *VirtualScheduler) nextEvent() (at time.Duration, ok bool) {
	if len(s.timers) > 0 {
		at, ok = s.timers[0].due, true
	}
	if len(s.frames) > 0 {
		if f := s.nextFrameAt(); !ok || f < at {
			at, ok = f, true
		}
	}
	return at, ok
}

// Step runs the next due callback batch and reports whether anything ran.
// A frame batch runs every callback requested before it started; callbacks
// requested while it runs go to the next frame.
func (s *VirtualScheduler) Step() bool {
	s.mu.Lock()
	at, ok := s.nextEvent()
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.now = at

	if len(s.timers) > 0 && s.timers[0].due <= at {
		t := s.timers[0]
		s.timers = s.timers[1:]
		s.mu.Unlock()
		if !t.cancelled {
			t.fn()
		}
		return true
	}

	batch := s.frames
	s.frames = nil
	s.lastFrame = at
	s.ranFrame = true
	s.mu.Unlock()

	for _, f := range batch {
		f.fn(at)
	}
	return true
}

// RunUntil steps every callback due at or before t, then moves the clock to t.
func (s *VirtualScheduler) RunUntil(t time.Duration) {
	for {
		s.mu.Lock()
		at, ok := s.nextEvent()
		s.mu.Unlock()
		if !ok || at > t {
			break
		}
		s.Step()
	}
	s.mu.Lock()
	if t > s.now {
		s.now = t
	}
	s.mu.Unlock()
}

// Run steps until nothing is pending or maxSteps callbacks ran. It returns
// the number of steps taken.
func (s *VirtualScheduler) Run(maxSteps int) int {
	n := 0
	for n < maxSteps && s.Step() {
		n++
	}
	return n
}
