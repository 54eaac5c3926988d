// Package solenoid drives an AC solenoid actuator through two GPIO pins.
//
// Two driver models exist. The static model holds a control pin high and
// runs a PWM pin at a configured frequency while the solenoid is on. The
// alternating model emulates an AC-like drive by toggling two pins in
// antiphase at a fixed 60 Hz from a background loop.
package solenoid

import (
	"context"
	"errors"
	"fmt"

	"solenoid-ac/internal/board"
	"solenoid-ac/internal/config"
)

// ErrInvalidPosition is returned by SetPosition for any value outside {0, 1}.
var ErrInvalidPosition = errors.New("position must be 0 or 1")

// Geometry is a physical-extent descriptor. Solenoid drivers report none.
type Geometry struct {
	Label string `json:"label"`
}

// Switch is the binary on/off capability a solenoid driver exposes.
// Position 0 is off/de-energized, 1 is on/energized.
//
// Implementations are safe for concurrent use; Close is idempotent and
// never fails.
type Switch interface {
	Name() string
	Model() string
	GetPosition(ctx context.Context) (int, error)
	SetPosition(ctx context.Context, position int) error
	NumberOfPositions(ctx context.Context) (int, error)
	DoCommand(ctx context.Context, cmd map[string]any) (map[string]any, error)
	Geometries(ctx context.Context) ([]Geometry, error)
	Close() error
}

// New builds the driver for cfg.Model with its board resolved from deps.
func New(cfg config.Solenoid, deps board.Deps) (Switch, error) {
	switch cfg.Model {
	case config.ModelStatic:
		return NewStatic(cfg, deps)
	case config.ModelAlternating:
		return NewAlternating(cfg, deps)
	}
	return nil, fmt.Errorf("solenoid: unknown model %q", cfg.Model)
}

func checkPosition(p int) error {
	if p != 0 && p != 1 {
		return fmt.Errorf("%w, got %d", ErrInvalidPosition, p)
	}
	return nil
}

func resolveBoard(cfg config.Solenoid, deps board.Deps) (board.Board, error) {
	b, ok := deps[cfg.Board]
	if !ok || b == nil {
		return nil, fmt.Errorf("solenoid %q: board %q was not resolved as a dependency", cfg.Name, cfg.Board)
	}
	return b, nil
}
