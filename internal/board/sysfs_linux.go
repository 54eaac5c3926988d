//go:build linux

package board

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// sysfsBoard exposes kernel PWM channels under /sys/class/pwm as pins. Pin
// names are channel numbers ("0", "1"). On a Pi this requires a pwm overlay
// (e.g. dtoverlay=pwm-2chan) so the header pins are routed to the channels.
//
// Digital Set maps to duty 1.0/0.0; the channel keeps whatever frequency was
// last configured (default 60 Hz).

var sysfsPWMBase = "/sys/class/pwm"

const sysfsDefaultFreqHz = 60

func openSysfs(chipPath string) (Board, error) {
	if chipPath == "" {
		var err error
		chipPath, err = findPWMChip()
		if err != nil {
			return nil, err
		}
	}
	if _, err := os.Stat(chipPath); err != nil {
		return nil, fmt.Errorf("board: pwm chip %s: %w", chipPath, err)
	}
	return &sysfsBoard{chipPath: chipPath, chans: make(map[int]*sysfsPWMPin)}, nil
}

var openSysfsFn = openSysfs

func findPWMChip() (string, error) {
	entries, err := os.ReadDir(sysfsPWMBase)
	if err != nil {
		return "", fmt.Errorf("board: read %s: %w", sysfsPWMBase, err)
	}
	// Prefer pwmchip0 (common on Pi); fall back to any chip with channels.
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "pwmchip") {
			seen[e.Name()] = true
		}
	}
	var names []string
	for _, preferred := range []string{"pwmchip0", "pwmchip1"} {
		if seen[preferred] {
			names = append(names, preferred)
			delete(seen, preferred)
		}
	}
	for name := range seen {
		names = append(names, name)
	}
	for _, name := range names {
		chip := filepath.Join(sysfsPWMBase, name)
		if n, err := readSysfsInt(filepath.Join(chip, "npwm")); err == nil && n > 0 {
			return chip, nil
		}
	}
	return "", fmt.Errorf("board: no usable pwm chip under %s", sysfsPWMBase)
}

type sysfsBoard struct {
	chipPath string

	mu     sync.Mutex
	chans  map[int]*sysfsPWMPin
	closed bool
}

func (b *sysfsBoard) GPIOPinByName(name string) (GPIOPin, error) {
	ch, err := strconv.Atoi(strings.TrimSpace(name))
	if err != nil || ch < 0 {
		return nil, fmt.Errorf("board: sysfs pwm pin name must be a channel number, got %q", name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("board: sysfs board closed")
	}
	if p, ok := b.chans[ch]; ok {
		return p, nil
	}
	p := &sysfsPWMPin{
		chipPath: b.chipPath,
		pwmPath:  filepath.Join(b.chipPath, fmt.Sprintf("pwm%d", ch)),
		channel:  ch,
	}
	if err := p.ensureExported(); err != nil {
		return nil, err
	}
	b.chans[ch] = p
	return p, nil
}

func (b *sysfsBoard) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, p := range b.chans {
		_ = p.disable()
	}
	return nil
}

type sysfsPWMPin struct {
	chipPath string
	pwmPath  string
	channel  int

	mu       sync.Mutex
	periodNS uint64
	enabled  bool
}

func (p *sysfsPWMPin) ensureExported() error {
	if _, err := os.Stat(p.pwmPath); err == nil {
		return nil
	}
	exportPath := filepath.Join(p.chipPath, "export")
	if err := writeSysfs(exportPath, strconv.Itoa(p.channel)); err != nil {
		// Already exported by someone else is fine.
		if _, statErr := os.Stat(p.pwmPath); statErr == nil {
			return nil
		}
		return fmt.Errorf("board: export pwm%d: %w", p.channel, err)
	}
	// Wait briefly for the sysfs node to appear; udev fixes permissions
	// asynchronously after export.
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(p.pwmPath); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(p.pwmPath); err != nil {
		return fmt.Errorf("board: pwm%d not created after export: %w", p.channel, err)
	}
	return nil
}

func (p *sysfsPWMPin) Set(ctx context.Context, high bool) error {
	if high {
		return p.SetPWM(ctx, 1.0)
	}
	return p.SetPWM(ctx, 0.0)
}

func (p *sysfsPWMPin) SetPWM(ctx context.Context, dutyCyclePct float64) error {
	if dutyCyclePct < 0 || dutyCyclePct > 1 {
		return fmt.Errorf("board: duty cycle %v out of [0,1]", dutyCyclePct)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.periodNS == 0 {
		if err := p.setFreqLocked(sysfsDefaultFreqHz); err != nil {
			return err
		}
	}
	duty := uint64(math.Round(float64(p.periodNS) * dutyCyclePct))
	if duty > p.periodNS {
		duty = p.periodNS
	}
	if err := p.writeUint("duty_cycle", duty); err != nil {
		return err
	}
	if !p.enabled {
		if err := p.writeBool("enable", true); err != nil {
			return err
		}
		p.enabled = true
	}
	return nil
}

func (p *sysfsPWMPin) SetPWMFreq(ctx context.Context, freqHz uint) error {
	if freqHz == 0 {
		return fmt.Errorf("board: zero pwm frequency")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setFreqLocked(freqHz)
}

func (p *sysfsPWMPin) setFreqLocked(freqHz uint) error {
	periodNS := uint64(1_000_000_000 / uint64(freqHz))
	if periodNS == 0 {
		periodNS = 1
	}
	// Disable before changing the period (common sysfs requirement). The
	// channel is re-enabled by the next duty write.
	_ = p.writeBool("enable", false)
	p.enabled = false
	if err := p.writeUint("period", periodNS); err != nil {
		return err
	}
	p.periodNS = periodNS
	return nil
}

func (p *sysfsPWMPin) disable() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.writeUint("duty_cycle", 0)
	err := p.writeBool("enable", false)
	p.enabled = false
	return err
}

func (p *sysfsPWMPin) writeUint(name string, v uint64) error {
	return writeSysfs(filepath.Join(p.pwmPath, name), strconv.FormatUint(v, 10))
}

func (p *sysfsPWMPin) writeBool(name string, v bool) error {
	val := "0"
	if v {
		val = "1"
	}
	return writeSysfs(filepath.Join(p.pwmPath, name), val)
}

// writeSysfs writes an attribute value with O_WRONLY only: some sysfs
// attributes reject truncation flags even when mode bits allow writes.
// Immediately after export there is a short window where open() can fail
// with EACCES/ENOENT while udev catches up, so retry briefly.
func writeSysfs(path, value string) error {
	deadline := time.Now().Add(2 * time.Second)
	for {
		fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
		if err != nil {
			if time.Now().Before(deadline) && isRetryableSysfsErr(err) {
				time.Sleep(25 * time.Millisecond)
				continue
			}
			return &os.PathError{Op: "open", Path: path, Err: err}
		}
		_, werr := unix.Write(fd, []byte(value))
		cerr := unix.Close(fd)
		if werr == nil && cerr == nil {
			return nil
		}
		last := werr
		if last == nil {
			last = cerr
		}
		if time.Now().Before(deadline) && isRetryableSysfsErr(last) {
			time.Sleep(25 * time.Millisecond)
			continue
		}
		return &os.PathError{Op: "write", Path: path, Err: last}
	}
}

func isRetryableSysfsErr(err error) bool {
	return errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) || errors.Is(err, unix.ENOENT)
}

func readSysfsInt(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, fmt.Errorf("board: empty sysfs attribute %s", path)
	}
	return strconv.Atoi(s)
}
