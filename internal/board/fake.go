package board

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Op kinds recorded by the fake board.
const (
	OpSet  = "set"
	OpPWM  = "pwm"
	OpFreq = "freq"
)

// PinOp is one recorded pin operation.
type PinOp struct {
	Pin  string
	Kind string
	High bool
	Duty float64
	Freq uint
	At   time.Time
}

// Fake is an in-memory Board. It records every pin operation with a
// timestamp, which is what the driver tests key off, and doubles as the
// "fake" backend for bench runs without hardware.
type Fake struct {
	mu     sync.Mutex
	ops    []PinOp
	level  map[string]bool
	duty   map[string]float64
	freq   map[string]uint
	errs   map[string]error
	closed bool
}

func NewFake() *Fake {
	return &Fake{
		level:  make(map[string]bool),
		duty:   make(map[string]float64),
		freq:   make(map[string]uint),
		errs:   make(map[string]error),
	}
}

func (f *Fake) GPIOPinByName(name string) (GPIOPin, error) {
	if name == "" {
		return nil, fmt.Errorf("board: empty pin name")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, fmt.Errorf("board: fake board closed")
	}
	return &fakePin{b: f, name: name}, nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// FailPin makes every subsequent operation on the named pin return err.
// Pass nil to clear.
func (f *Fake) FailPin(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, name)
		return
	}
	f.errs[name] = err
}

// Ops returns a copy of all recorded operations in order.
func (f *Fake) Ops() []PinOp {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]PinOp, len(f.ops))
	copy(out, f.ops)
	return out
}

// Level reports the last digital level driven on the pin. PWM duty > 0
// counts as high, matching what the hardware would show.
func (f *Fake) Level(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level[name]
}

// Duty reports the last PWM duty cycle set on the pin.
func (f *Fake) Duty(name string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duty[name]
}

// Freq reports the last PWM frequency set on the pin.
func (f *Fake) Freq(name string) uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.freq[name]
}

func (f *Fake) record(op PinOp) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[op.Pin]; err != nil {
		return err
	}
	op.At = time.Now()
	f.ops = append(f.ops, op)
	switch op.Kind {
	case OpSet:
		f.level[op.Pin] = op.High
	case OpPWM:
		f.duty[op.Pin] = op.Duty
		f.level[op.Pin] = op.Duty > 0
	case OpFreq:
		f.freq[op.Pin] = op.Freq
	}
	return nil
}

type fakePin struct {
	b    *Fake
	name string
}

func (p *fakePin) Set(ctx context.Context, high bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.b.record(PinOp{Pin: p.name, Kind: OpSet, High: high})
}

func (p *fakePin) SetPWM(ctx context.Context, dutyCyclePct float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.b.record(PinOp{Pin: p.name, Kind: OpPWM, Duty: dutyCyclePct})
}

func (p *fakePin) SetPWMFreq(ctx context.Context, freqHz uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.b.record(PinOp{Pin: p.name, Kind: OpFreq, Freq: freqHz})
}
