package retry

import (
	"testing"
	"time"
)

// TestDefaultPolicy verifies the baseline default values.
func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.Mode != ModeExponential {
		t.Fatalf("expected exponential default mode got %s", p.Mode)
	}
	if p.Initial != 250*time.Millisecond {
		t.Fatalf("expected initial 250ms got %v", p.Initial)
	}
	if p.Max != 2*time.Second {
		t.Fatalf("expected max 2s got %v", p.Max)
	}
	if p.MaxRetries != 2 {
		t.Fatalf("expected max retries 2 got %d", p.MaxRetries)
	}
	if NoRetry().MaxRetries != 0 {
		t.Fatalf("NoRetry must not retry")
	}
}

// TestNewPolicyOverrides checks override precedence and clamping when initial > max.
func TestNewPolicyOverrides(t *testing.T) {
	p := NewPolicy(ModeFixed, 5*time.Second, 2*time.Second, 5)
	if p.Initial != 2*time.Second {
		t.Fatalf("expected clamped initial 2s got %v", p.Initial)
	}
	if p.Mode != ModeFixed || p.MaxRetries != 5 {
		t.Fatalf("unexpected policy %+v", p)
	}
	if NewPolicy("", 0, 0, -1).MaxRetries != 2 {
		t.Fatalf("negative retries should keep the default")
	}
}

// TestDelayModes ensures fixed, linear, exponential behave and respect cap.
func TestDelayModes(t *testing.T) {
	fixed := NewPolicy(ModeFixed, 100*time.Millisecond, 500*time.Millisecond, 3)
	for i := 1; i <= 3; i++ {
		if d := fixed.Delay(i); d != 100*time.Millisecond {
			t.Fatalf("fixed attempt %d expected 100ms got %v", i, d)
		}
	}

	linear := NewPolicy(ModeLinear, 100*time.Millisecond, 250*time.Millisecond, 5)
	cases := []struct {
		attempt int
		want    time.Duration
	}{{1, 100 * time.Millisecond}, {2, 200 * time.Millisecond}, {3, 250 * time.Millisecond}, {4, 250 * time.Millisecond}}
	for _, c := range cases {
		if got := linear.Delay(c.attempt); got != c.want {
			t.Fatalf("linear attempt %d expected %v got %v", c.attempt, c.want, got)
		}
	}

	exp := NewPolicy(ModeExponential, 50*time.Millisecond, 160*time.Millisecond, 5)
	expCases := []struct {
		attempt int
		want    time.Duration
	}{{1, 50 * time.Millisecond}, {2, 100 * time.Millisecond}, {3, 160 * time.Millisecond}, {64, 160 * time.Millisecond}}
	for _, c := range expCases {
		if got := exp.Delay(c.attempt); got != c.want {
			t.Fatalf("exp attempt %d expected %v got %v", c.attempt, c.want, got)
		}
	}
}

// TestDelayEdgeCases ensures non-positive attempts yield zero.
func TestDelayEdgeCases(t *testing.T) {
	p := NewPolicy(ModeLinear, 10*time.Millisecond, 20*time.Millisecond, 1)
	if d := p.Delay(0); d != 0 {
		t.Fatalf("attempt 0 expected 0 got %v", d)
	}
	if d := p.Delay(-1); d != 0 {
		t.Fatalf("attempt -1 expected 0 got %v", d)
	}
}

// TestValidate covers validation error paths.
func TestValidate(t *testing.T) {
	if err := (Policy{Mode: ModeLinear, Initial: 0, Max: time.Second}).Validate(); err == nil {
		t.Fatalf("expected error for zero initial")
	}
	if err := (Policy{Mode: ModeLinear, Initial: time.Second, Max: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero max")
	}
	if err := (Policy{Mode: ModeLinear, Initial: time.Second, Max: time.Second, MaxRetries: -1}).Validate(); err == nil {
		t.Fatalf("expected error for negative retries")
	}
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestNormalizeMode(t *testing.T) {
	if NormalizeMode(" Exponential ") != ModeExponential {
		t.Fatal("expected case-insensitive match")
	}
	if NormalizeMode("weird") != "" {
		t.Fatal("unknown mode should normalize to empty")
	}
	if p := NewPolicy("weird", 0, 0, 1); p.Mode != ModeExponential {
		t.Fatalf("unknown mode should fall back to default got %s", p.Mode)
	}
}
