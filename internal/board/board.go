package board

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// GPIOPin is a single digital/PWM-capable output pin, addressed by name.
//
// Duty cycle is a fraction in [0, 1]. Backends that cannot do real PWM map
// duty > 0 to high and duty == 0 to low.
type GPIOPin interface {
	Set(ctx context.Context, high bool) error
	SetPWM(ctx context.Context, dutyCyclePct float64) error
	SetPWMFreq(ctx context.Context, freqHz uint) error
}

// Board hands out named pin handles. Implementations own the underlying
// chip/mapping and release it on Close.
type Board interface {
	GPIOPinByName(name string) (GPIOPin, error)
	Close() error
}

// Deps maps a board name to its resolved handle. Driver constructors look
// their declared board dependency up here.
type Deps map[string]Board

const (
	BackendGPIOCdev = "gpiocdev"
	BackendRPIO     = "rpio"
	BackendSysfs    = "sysfs"
	BackendPeriph   = "periph"
	BackendFake     = "fake"
)

// Config describes one board in the daemon configuration.
type Config struct {
	Name    string `yaml:"name"`
	Backend string `yaml:"backend"`
	// Chip is backend specific: a /dev/gpiochipN path for gpiocdev, a
	// /sys/class/pwm/pwmchipN path for sysfs. Optional; backends probe when
	// empty.
	Chip string `yaml:"chip"`
}

// KnownBackend reports whether name is a backend this build recognizes.
// Platform support is checked later, at Open time.
func KnownBackend(name string) bool {
	switch name {
	case BackendGPIOCdev, BackendRPIO, BackendSysfs, BackendPeriph, BackendFake:
		return true
	}
	return false
}

// Open constructs the backend named by cfg.Backend.
func Open(cfg Config) (Board, error) {
	switch cfg.Backend {
	case BackendGPIOCdev:
		return openGPIOCdevFn(cfg.Chip)
	case BackendRPIO:
		return openRPIOFn()
	case BackendSysfs:
		return openSysfsFn(cfg.Chip)
	case BackendPeriph:
		return openPeriphFn()
	case BackendFake:
		return NewFake(), nil
	}
	return nil, fmt.Errorf("board: unknown backend %q", cfg.Backend)
}

// parseBCM extracts the BCM pin number from a name like "GPIO18" or "18".
func parseBCM(name string) (int, error) {
	s := strings.TrimSpace(name)
	s = strings.TrimPrefix(strings.ToUpper(s), "GPIO")
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("board: invalid pin name %q", name)
	}
	return n, nil
}

// lineName normalizes a pin name to the "GPIOn" form the kernel uses for
// character-device line names on the Pi.
func lineName(name string) (string, error) {
	n, err := parseBCM(name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("GPIO%d", n), nil
}
