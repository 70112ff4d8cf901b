package gpio

import "testing"

func TestMockDriver_PullUpReadsHigh(t *testing.T) {
	drv := NewMockDriver()
	if err := drv.SetupPin(17, InputPullUp); err != nil {
		t.Fatalf("SetupPin: %v", err)
	}
	lvl, err := drv.ReadPin(17)
	if err != nil {
		t.Fatalf("ReadPin: %v", err)
	}
	if lvl != High {
		t.Errorf("pull-up input should read High, got %v", lvl)
	}
}

func TestMockDriver_WriteThenRead(t *testing.T) {
	drv := NewMockDriver()
	_ = drv.SetupPin(27, Output)
	if err := drv.WritePin(27, High); err != nil {
		t.Fatalf("WritePin: %v", err)
	}
	if lvl, _ := drv.ReadPin(27); lvl != High {
		t.Errorf("ReadPin after High write = %v, want High", lvl)
	}
	_ = drv.WritePin(27, Low)
	if lvl, _ := drv.ReadPin(27); lvl != Low {
		t.Errorf("ReadPin after Low write = %v, want Low", lvl)
	}
}

func TestMockDriver_SetSimulatesPress(t *testing.T) {
	drv := NewMockDriver()
	_ = drv.SetupPin(4, InputPullUp)
	drv.Set(4, Low)
	if lvl, _ := drv.ReadPin(4); lvl != Low {
		t.Errorf("pressed button should read Low, got %v", lvl)
	}
}

func TestMockDriver_ZeroValueUsable(t *testing.T) {
	var drv MockDriver
	if err := drv.WritePin(5, High); err != nil {
		t.Fatalf("WritePin on zero value: %v", err)
	}
	if lvl, _ := drv.ReadPin(5); lvl != High {
		t.Errorf("ReadPin = %v, want High", lvl)
	}
}

func TestNewDriver_Mock(t *testing.T) {
	drv, err := NewDriver(true)
	if err != nil {
		t.Fatalf("NewDriver(true): %v", err)
	}
	if _, ok := drv.(*MockDriver); !ok {
		t.Errorf("NewDriver(true) returned %T, want *MockDriver", drv)
	}
	if err := drv.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
