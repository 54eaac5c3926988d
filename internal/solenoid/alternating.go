package solenoid

import (
	"context"
	"log"
	"sync"
	"time"

	"solenoid-ac/internal/board"
	"solenoid-ac/internal/config"
)

// The alternating model always runs at 60 Hz; unlike the static model's
// pwm_frequency there is no config knob for it. Each pin is therefore high
// for one half-period of 1/120 s per cycle.
var halfPeriod = time.Second / 120

// Alternating emulates an AC-like drive by toggling two pins in antiphase
// from a background loop. At most one loop runs per driver; SetPosition
// cancels and fully awaits any previous loop before doing anything else, so
// the pins are observably low between loops.
type Alternating struct {
	name  string
	board board.Board
	pin1  string
	pin2  string

	mu       sync.Mutex
	position int
	loop     *loopHandle
}

// loopHandle owns one running alternation loop. done is closed by the loop
// goroutine only after its pin-low cleanup has run.
type loopHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewAlternating(cfg config.Solenoid, deps board.Deps) (*Alternating, error) {
	if err := cfg.Validate("solenoid"); err != nil {
		return nil, err
	}
	b, err := resolveBoard(cfg, deps)
	if err != nil {
		return nil, err
	}
	return &Alternating{
		name:  cfg.Name,
		board: b,
		pin1:  cfg.Pin1,
		pin2:  cfg.Pin2,
	}, nil
}

func (a *Alternating) Name() string  { return a.name }
func (a *Alternating) Model() string { return config.ModelAlternating }

func (a *Alternating) GetPosition(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.position, nil
}

func (a *Alternating) NumberOfPositions(ctx context.Context) (int, error) {
	return 2, nil
}

func (a *Alternating) SetPosition(ctx context.Context, position int) error {
	if err := checkPosition(position); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.position = position

	// Cancel-and-await any running loop before touching the pins, whatever
	// the new position is. The wait guarantees the old loop's pin-low
	// cleanup has finished, so two loops can never overlap.
	a.stopLoopLocked()

	pin1, err := a.board.GPIOPinByName(a.pin1)
	if err != nil {
		return err
	}
	pin2, err := a.board.GPIOPinByName(a.pin2)
	if err != nil {
		return err
	}

	if position == 0 {
		// The loop already drove the pins low on exit; re-assert in case
		// no loop was running.
		if err := pin1.Set(ctx, false); err != nil {
			return err
		}
		return pin2.Set(ctx, false)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	h := &loopHandle{cancel: cancel, done: make(chan struct{})}
	a.loop = h
	go a.runLoop(loopCtx, h, pin1, pin2)
	return nil
}

func (a *Alternating) stopLoopLocked() {
	if a.loop == nil {
		return
	}
	a.loop.cancel()
	<-a.loop.done
	a.loop = nil
}

// runLoop toggles the two pins in antiphase until ctx is cancelled. On any
// exit path, both pins are driven low before done is closed.
func (a *Alternating) runLoop(ctx context.Context, h *loopHandle, pin1, pin2 board.GPIOPin) {
	defer close(h.done)
	defer a.settleLow(pin1, pin2)

	for {
		if err := setPhase(ctx, pin1, pin2, true); err != nil {
			if ctx.Err() == nil {
				log.Printf("solenoid %s: alternation stopped: %v", a.name, err)
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(halfPeriod):
		}
		if err := setPhase(ctx, pin1, pin2, false); err != nil {
			if ctx.Err() == nil {
				log.Printf("solenoid %s: alternation stopped: %v", a.name, err)
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(halfPeriod):
		}
	}
}

func setPhase(ctx context.Context, pin1, pin2 board.GPIOPin, pin1High bool) error {
	if err := pin1.Set(ctx, pin1High); err != nil {
		return err
	}
	return pin2.Set(ctx, !pin1High)
}

// settleLow is the loop's unconditional cleanup: best-effort drive of both
// pins to low. The loop's own context is already cancelled by the time this
// runs, so it uses a fresh bounded one.
func (a *Alternating) settleLow(pin1, pin2 board.GPIOPin) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := pin1.Set(ctx, false); err != nil {
		log.Printf("solenoid %s: pin1 low on loop exit: %v", a.name, err)
	}
	if err := pin2.Set(ctx, false); err != nil {
		log.Printf("solenoid %s: pin2 low on loop exit: %v", a.name, err)
	}
}

func (a *Alternating) DoCommand(ctx context.Context, cmd map[string]any) (map[string]any, error) {
	return map[string]any{}, nil
}

func (a *Alternating) Geometries(ctx context.Context) ([]Geometry, error) {
	return nil, nil
}

// Close stops any running loop, then re-asserts both pins low. Errors are
// logged and swallowed; Close never fails and may be called repeatedly.
func (a *Alternating) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLoopLocked()

	if a.board == nil || a.pin1 == "" || a.pin2 == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if pin1, err := a.board.GPIOPinByName(a.pin1); err != nil {
		log.Printf("solenoid %s: close: resolve pin1: %v", a.name, err)
	} else if err := pin1.Set(ctx, false); err != nil {
		log.Printf("solenoid %s: close: pin1 low: %v", a.name, err)
	}
	if pin2, err := a.board.GPIOPinByName(a.pin2); err != nil {
		log.Printf("solenoid %s: close: resolve pin2: %v", a.name, err)
	} else if err := pin2.Set(ctx, false); err != nil {
		log.Printf("solenoid %s: close: pin2 low: %v", a.name, err)
	}
	return nil
}
