package shutdown

import (
	"sync"
	"testing"
)

func TestSignalCounter_ForcesAtThreshold(t *testing.T) {
	forced := 0
	c := NewSignalCounter(2, func() { forced++ })

	if got := c.Increment(); got != 1 || forced != 0 {
		t.Fatalf("first Increment() = %d forced %d, want 1 and 0", got, forced)
	}
	c.Increment()
	c.Increment()
	if forced != 2 {
		t.Errorf("forced = %d, want 2 (once per signal at or past the threshold)", forced)
	}
	if c.Count() != 3 {
		t.Errorf("Count() = %d, want 3", c.Count())
	}
}

func TestSignalCounter_NeverForces(t *testing.T) {
	tests := []struct {
		name       string
		forceAfter int
		onForce    func()
	}{
		{"nil callback", 1, nil},
		{"zero threshold", 0, func() { t.Error("forced with zero threshold") }},
		{"negative threshold", -1, func() { t.Error("forced with negative threshold") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewSignalCounter(tt.forceAfter, tt.onForce)
			c.Increment()
			c.Increment()
		})
	}
}

func TestSignalCounter_Concurrent(t *testing.T) {
	c := NewSignalCounter(0, nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Increment()
		}()
	}
	wg.Wait()
	if c.Count() != 50 {
		t.Errorf("Count() = %d, want 50", c.Count())
	}
}
