package board

import (
	"context"
	"errors"
	"testing"
)

func TestParseBCM(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "GPIO18", want: 18},
		{in: "gpio4", want: 4},
		{in: "18", want: 18},
		{in: " 23 ", want: 23},
		{in: "", wantErr: true},
		{in: "GPIO", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "pin7", wantErr: true},
	}
	for _, c := range cases {
		got, err := parseBCM(c.in)
		if c.wantErr {
			if err == nil {
				t.Fatalf("parseBCM(%q) expected error, got %d", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseBCM(%q) error: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("parseBCM(%q)=%d want %d", c.in, got, c.want)
		}
	}
}

func TestLineName(t *testing.T) {
	got, err := lineName("7")
	if err != nil {
		t.Fatalf("lineName: %v", err)
	}
	if got != "GPIO7" {
		t.Fatalf("lineName(7)=%q want GPIO7", got)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open(Config{Name: "b", Backend: "nope"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestOpen_Fake(t *testing.T) {
	b, err := Open(Config{Name: "b", Backend: BackendFake})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := b.(*Fake); !ok {
		t.Fatalf("expected *Fake, got %T", b)
	}
}

func TestFake_RecordsOpsAndLevels(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	pin, err := f.GPIOPinByName("GPIO17")
	if err != nil {
		t.Fatalf("GPIOPinByName: %v", err)
	}
	if err := pin.Set(ctx, true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := pin.SetPWMFreq(ctx, 60); err != nil {
		t.Fatalf("SetPWMFreq: %v", err)
	}
	if err := pin.SetPWM(ctx, 0.5); err != nil {
		t.Fatalf("SetPWM: %v", err)
	}

	ops := f.Ops()
	if len(ops) != 3 {
		t.Fatalf("ops=%d want 3", len(ops))
	}
	if ops[0].Kind != OpSet || !ops[0].High {
		t.Fatalf("ops[0]=%+v want set high", ops[0])
	}
	if ops[1].Kind != OpFreq || ops[1].Freq != 60 {
		t.Fatalf("ops[1]=%+v want freq 60", ops[1])
	}
	if ops[2].Kind != OpPWM || ops[2].Duty != 0.5 {
		t.Fatalf("ops[2]=%+v want pwm 0.5", ops[2])
	}
	if !f.Level("GPIO17") {
		t.Fatalf("expected pin high")
	}
	if f.Duty("GPIO17") != 0.5 {
		t.Fatalf("duty=%v want 0.5", f.Duty("GPIO17"))
	}
	if f.Freq("GPIO17") != 60 {
		t.Fatalf("freq=%v want 60", f.Freq("GPIO17"))
	}

	if err := pin.SetPWM(ctx, 0); err != nil {
		t.Fatalf("SetPWM(0): %v", err)
	}
	if f.Level("GPIO17") {
		t.Fatalf("duty 0 should read as low")
	}
}

func TestFake_FailPin(t *testing.T) {
	f := NewFake()
	boom := errors.New("boom")
	f.FailPin("GPIO5", boom)

	pin, err := f.GPIOPinByName("GPIO5")
	if err != nil {
		t.Fatalf("GPIOPinByName: %v", err)
	}
	if err := pin.Set(context.Background(), true); !errors.Is(err, boom) {
		t.Fatalf("Set error=%v want boom", err)
	}
	if len(f.Ops()) != 0 {
		t.Fatalf("failed op must not be recorded")
	}

	f.FailPin("GPIO5", nil)
	if err := pin.Set(context.Background(), true); err != nil {
		t.Fatalf("Set after clear: %v", err)
	}
}

func TestFake_CancelledContext(t *testing.T) {
	f := NewFake()
	pin, err := f.GPIOPinByName("GPIO6")
	if err != nil {
		t.Fatalf("GPIOPinByName: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pin.Set(ctx, true); !errors.Is(err, context.Canceled) {
		t.Fatalf("Set error=%v want context.Canceled", err)
	}
}

func TestFake_ClosedBoardRejectsPins(t *testing.T) {
	f := NewFake()
	_ = f.Close()
	if _, err := f.GPIOPinByName("GPIO1"); err == nil {
		t.Fatalf("expected error after Close")
	}
}
