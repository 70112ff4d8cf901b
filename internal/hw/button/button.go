package button

import (
	"context"
	"time"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/cjeanneret/PhotoBooth/internal/hw/gpio"
)

// Button is a momentary push button wired between a GPIO pin and GND,
// read through the internal pull-up: released = High, pressed = Low.
type Button struct {
	gpio     gpio.Driver
	pin      int
	debounce time.Duration // a press must stay Low this long to count
	poll     time.Duration // sampling interval
}

// New configures pin as a pulled-up input.
func New(g gpio.Driver, pin int, debounce time.Duration) *Button {
	_ = g.SetupPin(pin, gpio.InputPullUp)

	if debounce <= 0 {
		debounce = 50 * time.Millisecond
	}
	poll := debounce / 5
	if poll < time.Millisecond {
		poll = time.Millisecond
	}
	return &Button{
		gpio:     g,
		pin:      pin,
		debounce: debounce,
		poll:     poll,
	}
}

// Watch polls the pin until ctx is cancelled and calls onPress once per
// debounced press. onPress runs on the polling goroutine; a new press is
// only recognised after the button has been released.
func (b *Button) Watch(ctx context.Context, onPress func()) error {
	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()

	var lowSince time.Time
	fired := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			lvl, err := b.gpio.ReadPin(b.pin)
			if err != nil {
				return err
			}

			if lvl == gpio.High {
				lowSince = time.Time{}
				fired = false
				continue
			}
			if lowSince.IsZero() {
				lowSince = now
			}
			if !fired && now.Sub(lowSince) >= b.debounce {
				fired = true
				debug.Live("Button pressed (pin %d)", b.pin)
				onPress()
			}
		}
	}
}
