package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"solenoid-ac/internal/board"
)

// Solenoid driver models.
const (
	ModelStatic      = "static"
	ModelAlternating = "alternating"
)

// DefaultPWMFrequencyHz is applied to static solenoids that do not configure
// their own drive frequency.
const DefaultPWMFrequencyHz = 60

type Config struct {
	// Listen is the address of the JSON status/control API. Empty disables it.
	Listen string `yaml:"listen"`

	Boards    []board.Config `yaml:"boards"`
	Solenoids []Solenoid     `yaml:"solenoids"`
}

// Solenoid is the declarative configuration of one driver instance.
type Solenoid struct {
	Name  string `yaml:"name"`
	Model string `yaml:"model"`
	Board string `yaml:"board"`

	// Static model.
	ControlPin   string `yaml:"control_pin"`
	PWMPin       string `yaml:"pwm_pin"`
	PWMFrequency *int   `yaml:"pwm_frequency"`

	// Alternating model.
	Pin1 string `yaml:"pin1"`
	Pin2 string `yaml:"pin2"`
}

// RequiredBoards reports the board dependencies this solenoid needs resolved
// before it can be constructed.
func (s Solenoid) RequiredBoards() []string {
	if s.Board == "" {
		return nil
	}
	return []string{s.Board}
}

// Validate checks the per-instance attributes. It never touches hardware.
func (s Solenoid) Validate(prefix string) error {
	if s.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if s.Board == "" {
		return fmt.Errorf("%s.board is required", prefix)
	}
	switch s.Model {
	case ModelStatic:
		if s.ControlPin == "" {
			return fmt.Errorf("%s.control_pin is required", prefix)
		}
		if s.PWMPin == "" {
			return fmt.Errorf("%s.pwm_pin is required", prefix)
		}
		if s.PWMFrequency != nil && *s.PWMFrequency <= 0 {
			return fmt.Errorf("%s.pwm_frequency must be > 0", prefix)
		}
	case ModelAlternating:
		if s.Pin1 == "" {
			return fmt.Errorf("%s.pin1 is required", prefix)
		}
		if s.Pin2 == "" {
			return fmt.Errorf("%s.pin2 is required", prefix)
		}
	case "":
		return fmt.Errorf("%s.model is required", prefix)
	default:
		return fmt.Errorf("%s.model must be %q or %q", prefix, ModelStatic, ModelAlternating)
	}
	return nil
}

// FrequencyHz returns the configured PWM frequency with the default applied.
func (s Solenoid) FrequencyHz() int {
	if s.PWMFrequency == nil {
		return DefaultPWMFrequencyHz
	}
	return *s.PWMFrequency
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	boardNames := make(map[string]bool, len(cfg.Boards))
	for i, bc := range cfg.Boards {
		if bc.Name == "" {
			return Config{}, fmt.Errorf("boards[%d].name is required", i)
		}
		if boardNames[bc.Name] {
			return Config{}, fmt.Errorf("boards[%d].name %q is duplicated", i, bc.Name)
		}
		boardNames[bc.Name] = true
		if bc.Backend == "" {
			return Config{}, fmt.Errorf("boards[%d].backend is required", i)
		}
		if !board.KnownBackend(bc.Backend) {
			return Config{}, fmt.Errorf("boards[%d].backend %q is not a known backend", i, bc.Backend)
		}
	}

	solNames := make(map[string]bool, len(cfg.Solenoids))
	for i, s := range cfg.Solenoids {
		prefix := fmt.Sprintf("solenoids[%d]", i)
		if err := s.Validate(prefix); err != nil {
			return Config{}, err
		}
		if solNames[s.Name] {
			return Config{}, fmt.Errorf("%s.name %q is duplicated", prefix, s.Name)
		}
		solNames[s.Name] = true
		for _, dep := range s.RequiredBoards() {
			if !boardNames[dep] {
				return Config{}, fmt.Errorf("%s.board %q is not a configured board", prefix, dep)
			}
		}
	}

	return cfg, nil
}
