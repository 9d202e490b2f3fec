package procwatch

import "testing"

func TestProbeNeverPanics(t *testing.T) {
	// Environment-dependent: just verify the probe runs and returns a
	// usable (possibly empty) map.
	byDir := Probe()
	for dir, a := range byDir {
		if dir == "" {
			t.Error("empty working directory key")
		}
		if a.PID <= 0 {
			t.Errorf("invalid pid %d for %s", a.PID, dir)
		}
	}
}
