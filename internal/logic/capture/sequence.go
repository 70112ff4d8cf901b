package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/cjeanneret/PhotoBooth/internal/hw/lamp"
)

// ErrBusy is returned when a run is requested while another is in progress.
var ErrBusy = errors.New("capture: a run is already in progress")

// State is the sequencer position within a run.
type State int

const (
	Idle State = iota
	Counting
	Stabilizing
	Captured
	Complete
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Counting:
		return "counting"
	case Stabilizing:
		return "stabilizing"
	case Captured:
		return "captured"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Status is one observable transition of a run.
type Status struct {
	State       State
	Photo       int // 1-based, 0 when not tied to a photo
	Total       int
	SecondsLeft int   // Counting only
	Err         error // Failed only
}

// Message is the text shown to the user for this transition.
func (s Status) Message() string {
	switch s.State {
	case Counting:
		return fmt.Sprintf("Photo %d - get ready... %d", s.Photo, s.SecondsLeft)
	case Stabilizing:
		return fmt.Sprintf("Taking photo %d...", s.Photo)
	case Captured:
		return fmt.Sprintf("Photo %d done", s.Photo)
	case Complete:
		return "Done! See the preview on the right."
	case Failed:
		if s.Err != nil {
			return fmt.Sprintf("Capture failed: %v", s.Err)
		}
		return "Capture failed"
	default:
		return "—"
	}
}

// StatusFunc receives every transition, in order, on the run goroutine.
type StatusFunc func(Status)

// StillFunc receives each still as soon as it is taken. index is 0-based.
type StillFunc func(index int, still *image.RGBA)

// Shooter takes one still.
type Shooter interface {
	Shoot() (*image.RGBA, error)
}

// Params defines the timing of a run.
type Params struct {
	Count     int           // stills per run
	Countdown int           // countdown steps before each still
	Tick      time.Duration // duration of one countdown step
	Stabilize time.Duration // pause between the countdown and the shot
	Done      time.Duration // "done" status hold after each shot
}

// DefaultParams returns four stills, a 3 s countdown, 150 ms stabilisation
// and a 400 ms "done" hold.
func DefaultParams() Params {
	return Params{
		Count:     4,
		Countdown: 3,
		Tick:      time.Second,
		Stabilize: 150 * time.Millisecond,
		Done:      400 * time.Millisecond,
	}
}

// Sequence drives the timed capture loop. Only one run may be active.
type Sequence struct {
	shooter Shooter
	lamp    lamp.Lamp

	mu   sync.Mutex
	busy bool
}

// NewSequence creates a sequencer. l may be nil when no lamp is wired.
func NewSequence(s Shooter, l lamp.Lamp) *Sequence {
	if l == nil {
		l = lamp.Nop{}
	}
	return &Sequence{
		shooter: s,
		lamp:    l,
	}
}

// Busy reports whether a run is in progress.
func (s *Sequence) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Run takes p.Count stills: for each one it counts down, pauses for the
// sensor to settle, shoots and holds a "done" status. It returns the stills
// in capture order, or an error and no stills if any shot fails or ctx is
// cancelled. Complete is left to the caller, once the stills are used.
func (s *Sequence) Run(ctx context.Context, p Params, onStatus StatusFunc, onStill StillFunc) ([]*image.RGBA, error) {
	if p.Count <= 0 {
		return nil, fmt.Errorf("capture: photo count must be > 0, got %d", p.Count)
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.busy = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	emit := func(st Status) {
		st.Total = p.Count
		if onStatus != nil {
			onStatus(st)
		}
	}
	fail := func(photo int, err error) ([]*image.RGBA, error) {
		if offErr := s.lamp.Off(); offErr != nil {
			debug.Error(offErr)
		}
		emit(Status{State: Failed, Photo: photo, Err: err})
		return nil, err
	}

	debug.Section("Capture Run")
	stills := make([]*image.RGBA, 0, p.Count)
	for i := 0; i < p.Count; i++ {
		photo := i + 1

		for secs := p.Countdown; secs > 0; secs-- {
			emit(Status{State: Counting, Photo: photo, SecondsLeft: secs})
			debug.Countdown(photo, p.Count, secs)
			s.lamp.Blink()
			if err := wait(ctx, p.Tick); err != nil {
				return fail(photo, err)
			}
		}

		emit(Status{State: Stabilizing, Photo: photo})
		if err := s.lamp.On(); err != nil {
			debug.Error(err)
		}
		if err := wait(ctx, p.Stabilize); err != nil {
			return fail(photo, err)
		}

		still, err := s.shooter.Shoot()
		if err != nil {
			return fail(photo, fmt.Errorf("photo %d: %w", photo, err))
		}
		if err := s.lamp.Off(); err != nil {
			debug.Error(err)
		}
		stills = append(stills, still)
		debug.Shot(photo, p.Count)
		if onStill != nil {
			onStill(i, still)
		}

		emit(Status{State: Captured, Photo: photo})
		if err := wait(ctx, p.Done); err != nil {
			return fail(photo, err)
		}
	}

	return stills, nil
}

// wait sleeps for d unless ctx is cancelled first.
func wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil || d <= 0 {
		return err
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
