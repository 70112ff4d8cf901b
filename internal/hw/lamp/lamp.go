package lamp

import (
	"time"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/cjeanneret/PhotoBooth/internal/hw/gpio"
)

// Lamp is the countdown light driven by the capture sequencer.
// Blink must not block: the countdown keeps its own timing.
type Lamp interface {
	Blink()
	On() error
	Off() error
}

// Nop is used when no lamp is wired.
type Nop struct{}

func (Nop) Blink()     {}
func (Nop) On() error  { return nil }
func (Nop) Off() error { return nil }

// GPIOLamp is a Lamp on a single GPIO output (active HIGH), e.g. an LED
// ring or a relay-switched fill light.
//
// Sequence per still:
// 1. one short pulse per countdown second
// 2. steady on during sensor stabilization and the shot
// 3. off once the still is taken
type GPIOLamp struct {
	gpio  gpio.Driver
	pin   int
	pulse time.Duration // blink duration
}

// NewGPIOLamp configures pin as an output and switches it off.
func NewGPIOLamp(g gpio.Driver, pin int, pulse time.Duration) *GPIOLamp {
	_ = g.SetupPin(pin, gpio.Output)
	_ = g.WritePin(pin, gpio.Low)

	if pulse <= 0 {
		pulse = 100 * time.Millisecond
	}
	return &GPIOLamp{
		gpio:  g,
		pin:   pin,
		pulse: pulse,
	}
}

// Blink switches the lamp on and schedules it off after the pulse.
func (l *GPIOLamp) Blink() {
	debug.Verbose("Lamp: blink (pin %d, %v)", l.pin, l.pulse)
	if err := l.gpio.WritePin(l.pin, gpio.High); err != nil {
		debug.Error(err)
		return
	}
	time.AfterFunc(l.pulse, func() {
		if err := l.gpio.WritePin(l.pin, gpio.Low); err != nil {
			debug.Error(err)
		}
	})
}

// On switches the lamp on until Off.
func (l *GPIOLamp) On() error {
	debug.Verbose("Lamp: on (pin %d -> HIGH)", l.pin)
	return l.gpio.WritePin(l.pin, gpio.High)
}

// Off switches the lamp off.
func (l *GPIOLamp) Off() error {
	debug.Verbose("Lamp: off (pin %d -> LOW)", l.pin)
	return l.gpio.WritePin(l.pin, gpio.Low)
}
