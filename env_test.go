package persist

import (
	"reflect"
	"testing"
	"time"
)

type envInner struct {
	Str  string        `env:"STR"`
	Skip string        `env:"-"` // must be ignored even if the variable exists
	Dur  time.Duration `env:"DUR"`
	B    bool          `env:"BOOL"`
	I    int           `env:"INT"`
	U    uint          `env:"U"`
	NegU uint          `env:"NEG_U"` // negative input must be ignored for uint
}

type envCfg struct {
	// No tag: falls back to SCREAMING_SNAKE
	S string

	// Boundary logic for toScreamingSnake (lower->upper, no letter/digit split)
	ApiKey2FA string

	Inner envInner `env:"INNER"`

	// Pointer-to-struct field: allocated on demand
	PtrInner *envInner `env:"PINNER"`

	// Pointer scalars: allocated on demand
	PtrStr *string        `env:"PSTR"`
	PtrInt *int           `env:"PINT"`
	PtrDur *time.Duration `env:"PDUR"`

	unexported string `env:"HIDDEN"`
}

func TestApplyEnv(t *testing.T) {
	const prefix = "APP"

	t.Setenv(prefix+"_S", "top")
	t.Setenv(prefix+"_API_KEY2FA", "secret")
	t.Setenv(prefix+"_INNER_STR", "nested")
	t.Setenv(prefix+"_INNER_SKIP", "must-not-apply")
	t.Setenv(prefix+"_INNER_DUR", "1500ms")
	t.Setenv(prefix+"_INNER_BOOL", "true")
	t.Setenv(prefix+"_INNER_INT", "-3")
	t.Setenv(prefix+"_INNER_U", "7")
	t.Setenv(prefix+"_INNER_NEG_U", "-1")
	t.Setenv(prefix+"_PINNER_STR", "ptr-nested")
	t.Setenv(prefix+"_PSTR", "ptr-str")
	t.Setenv(prefix+"_PINT", "11")
	t.Setenv(prefix+"_PDUR", "2s")
	t.Setenv(prefix+"_HIDDEN", "must-not-apply")

	var cfg envCfg
	applyEnv(reflect.ValueOf(&cfg).Elem(), prefix, nil)

	if cfg.S != "top" {
		t.Fatalf("S = %q, want %q", cfg.S, "top")
	}
	if cfg.ApiKey2FA != "secret" {
		t.Fatalf("ApiKey2FA = %q, want %q", cfg.ApiKey2FA, "secret")
	}
	if cfg.Inner.Str != "nested" {
		t.Fatalf("Inner.Str = %q, want %q", cfg.Inner.Str, "nested")
	}
	if cfg.Inner.Skip != "" {
		t.Fatalf("Inner.Skip must stay empty for env:\"-\", got %q", cfg.Inner.Skip)
	}
	if cfg.Inner.Dur != 1500*time.Millisecond {
		t.Fatalf("Inner.Dur = %v, want 1.5s", cfg.Inner.Dur)
	}
	if !cfg.Inner.B || cfg.Inner.I != -3 || cfg.Inner.U != 7 {
		t.Fatalf("Inner scalars mismatch: %+v", cfg.Inner)
	}
	if cfg.Inner.NegU != 0 {
		t.Fatalf("Inner.NegU must ignore negative input, got %d", cfg.Inner.NegU)
	}
	if cfg.PtrInner == nil || cfg.PtrInner.Str != "ptr-nested" {
		t.Fatalf("PtrInner not allocated/populated: %+v", cfg.PtrInner)
	}
	if cfg.PtrStr == nil || *cfg.PtrStr != "ptr-str" {
		t.Fatalf("PtrStr mismatch: %v", cfg.PtrStr)
	}
	if cfg.PtrInt == nil || *cfg.PtrInt != 11 {
		t.Fatalf("PtrInt mismatch: %v", cfg.PtrInt)
	}
	if cfg.PtrDur == nil || *cfg.PtrDur != 2*time.Second {
		t.Fatalf("PtrDur mismatch: %v", cfg.PtrDur)
	}
	if cfg.unexported != "" {
		t.Fatalf("unexported field must not be set")
	}
}

func TestApplyEnvUnsetAndInvalid(t *testing.T) {
	const prefix = "APP2"

	// Invalid parses leave existing values untouched; pointer scalars stay nil.
	t.Setenv(prefix+"_INNER_INT", "not-a-number")
	t.Setenv(prefix+"_INNER_BOOL", "maybe")
	t.Setenv(prefix+"_PINT", "NaN")

	cfg := envCfg{Inner: envInner{I: 5, B: true}}
	applyEnv(reflect.ValueOf(&cfg).Elem(), prefix, nil)

	if cfg.Inner.I != 5 {
		t.Fatalf("Inner.I changed on invalid input: %d", cfg.Inner.I)
	}
	if !cfg.Inner.B {
		t.Fatalf("Inner.B changed on invalid input")
	}
	if cfg.PtrInt != nil {
		t.Fatalf("PtrInt must stay nil on invalid input, got %v", cfg.PtrInt)
	}
	// No PINNER_* variables set: pointer struct must not be allocated.
	if cfg.PtrInner != nil {
		t.Fatalf("PtrInner must stay nil without relevant variables")
	}
}

func TestToScreamingSnake(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Name", "NAME"},
		{"LaunchCount", "LAUNCH_COUNT"},
		{"ApiKey2FA", "API_KEY2FA"},
		{"already", "ALREADY"},
	}
	for _, tt := range tests {
		if got := toScreamingSnake(tt.in); got != tt.want {
			t.Fatalf("toScreamingSnake(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
