package board

import (
	"context"
	"fmt"
	"math"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// periphBoard resolves pins through the periph.io host registry. Portable
// across the platforms periph supports; PWM availability depends on the pin.

var (
	periphInitOnce sync.Once
	periphInitErr  error
)

func openPeriph() (Board, error) {
	periphInitOnce.Do(func() {
		_, periphInitErr = host.Init()
	})
	if periphInitErr != nil {
		return nil, fmt.Errorf("board: periph init: %w", periphInitErr)
	}
	return &periphBoard{}, nil
}

var openPeriphFn = openPeriph

type periphBoard struct{}

func (b *periphBoard) GPIOPinByName(name string) (GPIOPin, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("board: periph pin %q not found", name)
	}
	return &periphPin{pin: pin, freq: 60 * physic.Hertz}, nil
}

func (b *periphBoard) Close() error { return nil }

type periphPin struct {
	mu   sync.Mutex
	pin  gpio.PinIO
	freq physic.Frequency
}

func (p *periphPin) Set(ctx context.Context, high bool) error {
	l := gpio.Low
	if high {
		l = gpio.High
	}
	return p.pin.Out(l)
}

func (p *periphPin) SetPWM(ctx context.Context, dutyCyclePct float64) error {
	if dutyCyclePct < 0 || dutyCyclePct > 1 {
		return fmt.Errorf("board: duty cycle %v out of [0,1]", dutyCyclePct)
	}
	p.mu.Lock()
	freq := p.freq
	p.mu.Unlock()
	if dutyCyclePct == 0 {
		// Some pins reject PWM at duty 0; a plain low drive is equivalent.
		return p.pin.Out(gpio.Low)
	}
	duty := gpio.Duty(math.Round(dutyCyclePct * float64(gpio.DutyMax)))
	return p.pin.PWM(duty, freq)
}

func (p *periphPin) SetPWMFreq(ctx context.Context, freqHz uint) error {
	if freqHz == 0 {
		return fmt.Errorf("board: zero pwm frequency")
	}
	p.mu.Lock()
	p.freq = physic.Frequency(freqHz) * physic.Hertz
	p.mu.Unlock()
	return nil
}
