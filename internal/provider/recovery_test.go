package provider

import (
	"testing"
	"time"
)

func TestRecoverySweeper_Sweep(t *testing.T) {
	r := NewRegistry([]Config{
		{ID: "a", Priority: 1, Enabled: true},
		{ID: "b", Priority: 2, Enabled: true},
	})
	s := NewRecoverySweeper(r, time.Millisecond)

	// Nothing to recover on a healthy registry.
	if got := s.Sweep(); got != 0 {
		t.Errorf("Sweep on healthy registry = %d, want 0", got)
	}

	for i := 0; i < 3; i++ {
		r.RecordOutcome("a", false, time.Millisecond, "boom")
	}
	if len(r.Available()) != 1 {
		t.Fatal("provider a should be unavailable")
	}

	time.Sleep(5 * time.Millisecond)

	if got := s.Sweep(); got != 1 {
		t.Errorf("Sweep = %d recovered, want 1", got)
	}
	if len(r.Available()) != 2 {
		t.Error("provider a not available after sweep")
	}
}

func TestRecoverySweeper_RespectsCooldown(t *testing.T) {
	r := NewRegistry([]Config{{ID: "a", Priority: 1, Enabled: true}})
	s := NewRecoverySweeper(r, time.Hour)

	for i := 0; i < 3; i++ {
		r.RecordOutcome("a", false, time.Millisecond, "boom")
	}

	if got := s.Sweep(); got != 0 {
		t.Errorf("Sweep recovered %d providers inside cooldown, want 0", got)
	}
	if len(r.Available()) != 0 {
		t.Error("provider recovered before cooldown elapsed")
	}
}

func TestRecoverySweeper_DefaultCooldown(t *testing.T) {
	s := NewRecoverySweeper(NewRegistry(nil), 0)
	if s.cooldown != DefaultRecoveryCooldown {
		t.Errorf("cooldown = %v, want %v", s.cooldown, DefaultRecoveryCooldown)
	}
}

func TestRecoverySweeper_StartStop(t *testing.T) {
	s := NewRecoverySweeper(NewRegistry(nil), time.Second)

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Second Start is a no-op.
	if err := s.Start(); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}

	s.Stop()
	s.Stop() // must be safe to repeat
}
