package solenoid

import (
	"context"
	"log"
	"sync"
	"time"

	"solenoid-ac/internal/board"
	"solenoid-ac/internal/config"
)

// closeTimeout bounds the final safety writes during Close. Close itself
// never fails; this only keeps it from hanging on a wedged board.
var closeTimeout = 2 * time.Second

// Static drives the solenoid with a steady control line plus a PWM line.
// On: control high, PWM at the configured frequency with 50% duty.
// Off: control low, PWM duty 0.
type Static struct {
	name       string
	board      board.Board
	controlPin string
	pwmPin     string
	freqHz     uint

	mu       sync.Mutex
	position int
}

func NewStatic(cfg config.Solenoid, deps board.Deps) (*Static, error) {
	if err := cfg.Validate("solenoid"); err != nil {
		return nil, err
	}
	b, err := resolveBoard(cfg, deps)
	if err != nil {
		return nil, err
	}
	return &Static{
		name:       cfg.Name,
		board:      b,
		controlPin: cfg.ControlPin,
		pwmPin:     cfg.PWMPin,
		freqHz:     uint(cfg.FrequencyHz()),
	}, nil
}

func (s *Static) Name() string  { return s.name }
func (s *Static) Model() string { return config.ModelStatic }

func (s *Static) GetPosition(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position, nil
}

func (s *Static) NumberOfPositions(ctx context.Context) (int, error) {
	return 2, nil
}

// SetPosition drives the pins for the new position. The control pin is
// always driven before the PWM pin so the AC load is never energized
// through an unintended path.
func (s *Static) SetPosition(ctx context.Context, position int) error {
	if err := checkPosition(position); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = position

	control, err := s.board.GPIOPinByName(s.controlPin)
	if err != nil {
		return err
	}
	pwm, err := s.board.GPIOPinByName(s.pwmPin)
	if err != nil {
		return err
	}

	if position == 0 {
		if err := control.Set(ctx, false); err != nil {
			return err
		}
		return pwm.SetPWM(ctx, 0.0)
	}

	if err := control.Set(ctx, true); err != nil {
		return err
	}
	if err := pwm.SetPWMFreq(ctx, s.freqHz); err != nil {
		return err
	}
	return pwm.SetPWM(ctx, 0.5)
}

func (s *Static) DoCommand(ctx context.Context, cmd map[string]any) (map[string]any, error) {
	return map[string]any{}, nil
}

func (s *Static) Geometries(ctx context.Context) ([]Geometry, error) {
	return nil, nil
}

// Close forces both pins to a safe state. Errors are logged, not returned:
// shutdown must complete even when a final safety write fails.
func (s *Static) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil || s.controlPin == "" || s.pwmPin == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if control, err := s.board.GPIOPinByName(s.controlPin); err != nil {
		log.Printf("solenoid %s: close: resolve control pin: %v", s.name, err)
	} else if err := control.Set(ctx, false); err != nil {
		log.Printf("solenoid %s: close: control pin low: %v", s.name, err)
	}
	if pwm, err := s.board.GPIOPinByName(s.pwmPin); err != nil {
		log.Printf("solenoid %s: close: resolve pwm pin: %v", s.name, err)
	} else if err := pwm.SetPWM(ctx, 0.0); err != nil {
		log.Printf("solenoid %s: close: pwm duty 0: %v", s.name, err)
	}
	return nil
}
