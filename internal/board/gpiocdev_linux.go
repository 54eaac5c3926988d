//go:build linux

package board

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// openGPIOCdev opens a board backed by the Linux GPIO character device
// (libgpiod). Digital output only: SetPWM maps any duty > 0 to high, and
// SetPWMFreq is a no-op.
//
// chipPath may be empty, in which case likely chips are probed per pin.
func openGPIOCdev(chipPath string) (Board, error) {
	return &gpiocdevBoard{
		chipPath: chipPath,
		lines:    make(map[string]*gpiocdevPin),
	}, nil
}

var openGPIOCdevFn = openGPIOCdev

type gpiocdevBoard struct {
	chipPath string

	mu     sync.Mutex
	lines  map[string]*gpiocdevPin
	closed bool
}

func (b *gpiocdevBoard) GPIOPinByName(name string) (GPIOPin, error) {
	ln, err := lineName(name)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("board: gpiocdev board closed")
	}
	if p, ok := b.lines[ln]; ok {
		return p, nil
	}

	chip, line, err := requestLine(b.chipPath, ln)
	if err != nil {
		return nil, err
	}
	p := &gpiocdevPin{chip: chip, line: line}
	b.lines[ln] = p
	return p, nil
}

// requestLine finds and requests an output line by name. When chipPath is
// empty it scans /dev/gpiochip* candidates, trying gpiochip0 and gpiochip4
// first (Pi 5 kernels have moved header GPIOs between chips).
func requestLine(chipPath, ln string) (*gpiocdev.Chip, *gpiocdev.Line, error) {
	candidates := []string{"/dev/gpiochip0", "/dev/gpiochip4"}
	if chipPath != "" {
		candidates = []string{chipPath}
	} else {
		entries, _ := os.ReadDir("/dev")
		for _, e := range entries {
			name := e.Name()
			if strings.HasPrefix(name, "gpiochip") {
				candidates = append(candidates, filepath.Join("/dev", name))
			}
		}
	}

	for _, path := range candidates {
		chip, err := gpiocdev.NewChip(path)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(ln)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("solenoid-ac"))
		if err != nil {
			_ = chip.Close()
			continue
		}
		return chip, line, nil
	}
	return nil, nil, fmt.Errorf("board: gpio line %q not found (or busy)", ln)
}

func (b *gpiocdevBoard) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	var first error
	for _, p := range b.lines {
		if err := p.release(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type gpiocdevPin struct {
	mu   sync.Mutex
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (p *gpiocdevPin) Set(ctx context.Context, high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.line == nil {
		return fmt.Errorf("board: gpio line released")
	}
	v := 0
	if high {
		v = 1
	}
	return p.line.SetValue(v)
}

func (p *gpiocdevPin) SetPWM(ctx context.Context, dutyCyclePct float64) error {
	return p.Set(ctx, dutyCyclePct > 0)
}

func (p *gpiocdevPin) SetPWMFreq(ctx context.Context, freqHz uint) error {
	// Digital-only backend; frequency has no meaning here.
	return nil
}

func (p *gpiocdevPin) release() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.line == nil {
		return nil
	}
	// Leave the line low on release.
	_ = p.line.SetValue(0)
	err := p.line.Close()
	p.line = nil
	if p.chip != nil {
		_ = p.chip.Close()
		p.chip = nil
	}
	return err
}
