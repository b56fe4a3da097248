package shutdown

import "sync"

// SignalCounter counts shutdown signals. The first one starts a graceful
// shutdown; reaching forceAfter calls onForce, normally os.Exit.
type SignalCounter struct {
	mu         sync.Mutex
	count      int
	forceAfter int
	onForce    func()
}

// NewSignalCounter returns a counter that calls onForce once count reaches
// forceAfter. A forceAfter below 1 never forces.
func NewSignalCounter(forceAfter int, onForce func()) *SignalCounter {
	return &SignalCounter{
		forceAfter: forceAfter,
		onForce:    onForce,
	}
}

// Increment records one signal and returns the new count. onForce runs with
// the lock held.
func (s *SignalCounter) Increment() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if s.forceAfter > 0 && s.count >= s.forceAfter && s.onForce != nil {
		s.onForce()
	}
	return s.count
}

func (s *SignalCounter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
