//go:build linux && (arm || arm64)

package board

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// rpio drives the Pi's GPIO block via /dev/gpiomem (or /dev/mem) with
// memory-mapped access, and supports the hardware PWM channels. The library
// holds one process-wide mapping, so Open/Close are refcounted here in case
// the config declares more than one rpio board.

const rpioCycleLen = 100

var (
	rpioMu   sync.Mutex
	rpioRefs int
)

func openRPIO() (Board, error) {
	rpioMu.Lock()
	defer rpioMu.Unlock()
	if rpioRefs == 0 {
		if err := rpio.Open(); err != nil {
			return nil, fmt.Errorf("board: rpio open: %w", err)
		}
	}
	rpioRefs++
	return &rpioBoard{}, nil
}

var openRPIOFn = openRPIO

type rpioBoard struct {
	mu     sync.Mutex
	closed bool
}

func (b *rpioBoard) GPIOPinByName(name string) (GPIOPin, error) {
	n, err := parseBCM(name)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("board: rpio board closed")
	}
	return &rpioPin{pin: rpio.Pin(n)}, nil
}

func (b *rpioBoard) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	rpioMu.Lock()
	defer rpioMu.Unlock()
	rpioRefs--
	if rpioRefs == 0 {
		return rpio.Close()
	}
	return nil
}

type rpioPin struct {
	mu  sync.Mutex
	pin rpio.Pin
	pwm bool
}

func (p *rpioPin) Set(ctx context.Context, high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pin.Output()
	p.pwm = false
	if high {
		p.pin.High()
	} else {
		p.pin.Low()
	}
	return nil
}

func (p *rpioPin) SetPWM(ctx context.Context, dutyCyclePct float64) error {
	if dutyCyclePct < 0 || dutyCyclePct > 1 {
		return fmt.Errorf("board: duty cycle %v out of [0,1]", dutyCyclePct)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.pwm {
		p.pin.Mode(rpio.Pwm)
		p.pwm = true
	}
	duty := uint32(math.Round(dutyCyclePct * rpioCycleLen))
	p.pin.DutyCycle(duty, rpioCycleLen)
	return nil
}

func (p *rpioPin) SetPWMFreq(ctx context.Context, freqHz uint) error {
	if freqHz == 0 {
		return fmt.Errorf("board: zero pwm frequency")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.pwm {
		p.pin.Mode(rpio.Pwm)
		p.pwm = true
	}
	// Freq sets the PWM clock source; output frequency is that divided by
	// the cycle length.
	p.pin.Freq(int(freqHz) * rpioCycleLen)
	return nil
}
