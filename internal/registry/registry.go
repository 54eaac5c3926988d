// Package registry builds the configured boards and solenoid drivers and
// owns their shutdown order.
package registry

import (
	"fmt"
	"log"
	"sync"

	"solenoid-ac/internal/board"
	"solenoid-ac/internal/config"
	"solenoid-ac/internal/solenoid"
)

type Registry struct {
	boards   map[string]board.Board
	switches map[string]solenoid.Switch
	order    []string

	closeOnce sync.Once
}

// Build opens every configured board, then constructs every solenoid driver
// with its board dependencies resolved. On any failure everything opened so
// far is closed before returning.
func Build(cfg config.Config) (*Registry, error) {
	r := &Registry{
		boards:   make(map[string]board.Board, len(cfg.Boards)),
		switches: make(map[string]solenoid.Switch, len(cfg.Solenoids)),
	}

	for _, bc := range cfg.Boards {
		b, err := board.Open(bc)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("board %q: %w", bc.Name, err)
		}
		r.boards[bc.Name] = b
	}

	deps := board.Deps(r.boards)
	for _, sc := range cfg.Solenoids {
		for _, dep := range sc.RequiredBoards() {
			if deps[dep] == nil {
				r.Close()
				return nil, fmt.Errorf("solenoid %q: required board %q not available", sc.Name, dep)
			}
		}
		sw, err := solenoid.New(sc, deps)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.switches[sc.Name] = sw
		r.order = append(r.order, sc.Name)
	}
	return r, nil
}

func (r *Registry) Get(name string) (solenoid.Switch, bool) {
	sw, ok := r.switches[name]
	return sw, ok
}

// List returns the drivers in configuration order.
func (r *Registry) List() []solenoid.Switch {
	out := make([]solenoid.Switch, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.switches[name])
	}
	return out
}

// Close shuts down drivers first (stopping any alternation loops and forcing
// pins safe), then the boards. It always completes; errors are logged.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	r.closeOnce.Do(func() {
		for _, name := range r.order {
			if err := r.switches[name].Close(); err != nil {
				log.Printf("close solenoid %q: %v", name, err)
			}
		}
		for name, b := range r.boards {
			if err := b.Close(); err != nil {
				log.Printf("close board %q: %v", name, err)
			}
		}
	})
}
