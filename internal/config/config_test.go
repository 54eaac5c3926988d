package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

const validStatic = `
boards:
  - name: local
    backend: fake
solenoids:
  - name: valve
    model: static
    board: local
    control_pin: GPIO17
    pwm_pin: GPIO18
`

const validAlternating = `
boards:
  - name: local
    backend: fake
solenoids:
  - name: pump
    model: alternating
    board: local
    pin1: GPIO23
    pin2: GPIO24
`

func TestLoad_ValidStatic(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, validStatic))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.Solenoids) != 1 {
		t.Fatalf("solenoids=%d want 1", len(cfg.Solenoids))
	}
	s := cfg.Solenoids[0]
	if s.FrequencyHz() != DefaultPWMFrequencyHz {
		t.Fatalf("frequency=%d want default %d", s.FrequencyHz(), DefaultPWMFrequencyHz)
	}
	if got := s.RequiredBoards(); len(got) != 1 || got[0] != "local" {
		t.Fatalf("RequiredBoards()=%v want [local]", got)
	}
}

func TestLoad_ValidAlternating(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, validAlternating))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Solenoids[0].Model != ModelAlternating {
		t.Fatalf("model=%q want alternating", cfg.Solenoids[0].Model)
	}
}

func TestLoad_ExplicitFrequencyKept(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, `
boards:
  - name: local
    backend: fake
solenoids:
  - name: valve
    model: static
    board: local
    control_pin: GPIO17
    pwm_pin: GPIO18
    pwm_frequency: 50
`))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := cfg.Solenoids[0].FrequencyHz(); got != 50 {
		t.Fatalf("frequency=%d want 50", got)
	}
}

func TestLoad_Rejections(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "MissingBoardAttr",
			yaml: "boards:\n  - name: local\n    backend: fake\nsolenoids:\n  - name: valve\n    model: static\n    control_pin: GPIO17\n    pwm_pin: GPIO18\n",
			want: "solenoids[0].board is required",
		},
		{
			name: "MissingControlPin",
			yaml: "boards:\n  - name: local\n    backend: fake\nsolenoids:\n  - name: valve\n    model: static\n    board: local\n    pwm_pin: GPIO18\n",
			want: "solenoids[0].control_pin is required",
		},
		{
			name: "MissingPWMPin",
			yaml: "boards:\n  - name: local\n    backend: fake\nsolenoids:\n  - name: valve\n    model: static\n    board: local\n    control_pin: GPIO17\n",
			want: "solenoids[0].pwm_pin is required",
		},
		{
			name: "ZeroFrequency",
			yaml: "boards:\n  - name: local\n    backend: fake\nsolenoids:\n  - name: valve\n    model: static\n    board: local\n    control_pin: GPIO17\n    pwm_pin: GPIO18\n    pwm_frequency: 0\n",
			want: "solenoids[0].pwm_frequency must be > 0",
		},
		{
			name: "NegativeFrequency",
			yaml: "boards:\n  - name: local\n    backend: fake\nsolenoids:\n  - name: valve\n    model: static\n    board: local\n    control_pin: GPIO17\n    pwm_pin: GPIO18\n    pwm_frequency: -5\n",
			want: "solenoids[0].pwm_frequency must be > 0",
		},
		{
			name: "MissingPin1",
			yaml: "boards:\n  - name: local\n    backend: fake\nsolenoids:\n  - name: pump\n    model: alternating\n    board: local\n    pin2: GPIO24\n",
			want: "solenoids[0].pin1 is required",
		},
		{
			name: "MissingPin2",
			yaml: "boards:\n  - name: local\n    backend: fake\nsolenoids:\n  - name: pump\n    model: alternating\n    board: local\n    pin1: GPIO23\n",
			want: "solenoids[0].pin2 is required",
		},
		{
			name: "MissingModel",
			yaml: "boards:\n  - name: local\n    backend: fake\nsolenoids:\n  - name: valve\n    board: local\n",
			want: "solenoids[0].model is required",
		},
		{
			name: "UnknownModel",
			yaml: "boards:\n  - name: local\n    backend: fake\nsolenoids:\n  - name: valve\n    model: toggle\n    board: local\n",
			want: `solenoids[0].model must be "static" or "alternating"`,
		},
		{
			name: "UnresolvedBoardDependency",
			yaml: "boards:\n  - name: local\n    backend: fake\nsolenoids:\n  - name: valve\n    model: static\n    board: other\n    control_pin: GPIO17\n    pwm_pin: GPIO18\n",
			want: `solenoids[0].board "other" is not a configured board`,
		},
		{
			name: "DuplicateSolenoidName",
			yaml: validStatic + "  - name: valve\n    model: static\n    board: local\n    control_pin: GPIO5\n    pwm_pin: GPIO6\n",
			want: `solenoids[1].name "valve" is duplicated`,
		},
		{
			name: "DuplicateBoardName",
			yaml: "boards:\n  - name: local\n    backend: fake\n  - name: local\n    backend: fake\n",
			want: `boards[1].name "local" is duplicated`,
		},
		{
			name: "UnknownBackend",
			yaml: "boards:\n  - name: local\n    backend: bogus\n",
			want: `boards[0].backend "bogus" is not a known backend`,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, c.yaml))
			requireErrEq(t, err, c.want)
		})
	}
}
