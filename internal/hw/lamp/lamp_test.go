package lamp

import (
	"sync"
	"testing"
	"time"

	"github.com/cjeanneret/PhotoBooth/internal/hw/gpio"
)

// recordingDriver records GPIO calls for verification.
type recordingDriver struct {
	mu    sync.Mutex
	calls []gpioCall
}

type gpioCall struct {
	op    string
	pin   int
	level gpio.Level
}

func (d *recordingDriver) SetupPin(pin int, mode gpio.PinMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, gpioCall{op: "setup", pin: pin})
	return nil
}

func (d *recordingDriver) WritePin(pin int, level gpio.Level) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, gpioCall{op: "write", pin: pin, level: level})
	return nil
}

func (d *recordingDriver) ReadPin(pin int) (gpio.Level, error) {
	return gpio.Low, nil
}

func (d *recordingDriver) Close() error { return nil }

func (d *recordingDriver) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}

func (d *recordingDriver) writeCalls() []gpioCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []gpioCall
	for _, c := range d.calls {
		if c.op == "write" {
			result = append(result, c)
		}
	}
	return result
}

func TestGPIOLamp_InitializedOff(t *testing.T) {
	drv := &recordingDriver{}
	NewGPIOLamp(drv, 27, time.Millisecond)

	writes := drv.writeCalls()
	if len(writes) != 1 || writes[0].pin != 27 || writes[0].level != gpio.Low {
		t.Errorf("expected a single LOW write on pin 27, got %v", writes)
	}
}

func TestGPIOLamp_OnOff(t *testing.T) {
	drv := &recordingDriver{}
	l := NewGPIOLamp(drv, 27, time.Millisecond)
	drv.reset()

	if err := l.On(); err != nil {
		t.Fatalf("On: %v", err)
	}
	if err := l.Off(); err != nil {
		t.Fatalf("Off: %v", err)
	}

	writes := drv.writeCalls()
	expected := []gpio.Level{gpio.High, gpio.Low}
	if len(writes) != len(expected) {
		t.Fatalf("expected %d writes, got %d: %v", len(expected), len(writes), writes)
	}
	for i, lvl := range expected {
		if writes[i].level != lvl {
			t.Errorf("write %d: level=%v, want %v", i, writes[i].level, lvl)
		}
	}
}

func TestGPIOLamp_BlinkTurnsOffAfterPulse(t *testing.T) {
	drv := &recordingDriver{}
	l := NewGPIOLamp(drv, 27, 5*time.Millisecond)
	drv.reset()

	l.Blink()
	if writes := drv.writeCalls(); len(writes) != 1 || writes[0].level != gpio.High {
		t.Fatalf("Blink should switch on immediately, got %v", writes)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(drv.writeCalls()) == 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	writes := drv.writeCalls()
	if len(writes) != 2 || writes[1].level != gpio.Low {
		t.Errorf("Blink should switch off after the pulse, got %v", writes)
	}
}

func TestLamps_ImplementLamp(t *testing.T) {
	drv := &recordingDriver{}
	var _ Lamp = NewGPIOLamp(drv, 1, time.Millisecond)
	var _ Lamp = Nop{}
}
