package metrics

import (
	"sync"
	"time"

	"caricature_studio/imagegen"
)

// degradedWindow is how many recent generations decide the health status.
const degradedWindow = 10

// Store keeps the most recent generations in a ring buffer and aggregates
// per-provider statistics. It implements imagegen.Observer.
//
// Usage:
//
//	store := NewStore(DefaultStoreConfig(), time.Now())
//	orch := imagegen.NewOrchestrator(imagegen.OrchestratorOptions{Observer: store})
//	status := store.GetSystemStatus()
type Store struct {
	mu sync.RWMutex

	history []GenerationRecord
	cap     int
	head    int
	size    int

	total      int64
	success    int64
	failed     int64
	byProvider map[string]*providerStats

	startTime time.Time
	version   string
	now       func() time.Time
}

type providerStats struct {
	count         int64
	successCount  int64
	fallbacks     int64
	totalDuration time.Duration
	failureKinds  map[string]int64
}

// StoreConfig configures the Store.
type StoreConfig struct {
	// HistoryCapacity is the number of recent generations retained.
	HistoryCapacity int
	Version         string
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		HistoryCapacity: 100,
		Version:         "0.0.0",
	}
}

// NewStore creates a Store. startTime is used to compute uptime.
func NewStore(config StoreConfig, startTime time.Time) *Store {
	capacity := config.HistoryCapacity
	if capacity < 1 {
		capacity = 100
	}
	return &Store{
		history:    make([]GenerationRecord, capacity),
		cap:        capacity,
		byProvider: make(map[string]*providerStats),
		startTime:  startTime,
		version:    config.Version,
		now:        time.Now,
	}
}

// ObserveGeneration records an orchestrated generation. An empty kind means
// it succeeded.
func (s *Store) ObserveGeneration(provider imagegen.ProviderKind, kind imagegen.ErrorKind, usedFallback bool, elapsed time.Duration) {
	record := GenerationRecord{
		Provider:     string(provider),
		Outcome:      OutcomeSuccess,
		ErrorKind:    string(kind),
		UsedFallback: usedFallback,
		Duration:     elapsed,
		FinishedAt:   s.now(),
	}
	if kind != "" {
		record.Outcome = OutcomeFailed
	}
	s.Record(record)
}

// Record adds a generation to the ring buffer and the aggregates.
func (s *Store) Record(record GenerationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[s.head] = record
	s.head = (s.head + 1) % s.cap
	if s.size < s.cap {
		s.size++
	}

	s.total++
	stats, ok := s.byProvider[record.Provider]
	if !ok {
		stats = &providerStats{failureKinds: make(map[string]int64)}
		s.byProvider[record.Provider] = stats
	}
	stats.count++
	stats.totalDuration += record.Duration
	if record.UsedFallback {
		stats.fallbacks++
	}

	if record.Outcome == OutcomeSuccess {
		s.success++
		stats.successCount++
	} else {
		s.failed++
		stats.failureKinds[record.ErrorKind]++
	}
}

// GetStats returns the aggregated statistics.
func (s *Store) GetStats() GenerationStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := GenerationStats{
		Total:      s.total,
		Success:    s.success,
		Failed:     s.failed,
		ByProvider: make(map[string]*ProviderStats, len(s.byProvider)),
	}
	for provider, p := range s.byProvider {
		out := &ProviderStats{
			Count:     p.count,
			Fallbacks: p.fallbacks,
		}
		if p.count > 0 {
			out.SuccessRate = float64(p.successCount) / float64(p.count) * 100
			out.AvgDuration = p.totalDuration / time.Duration(p.count)
		}
		if len(p.failureKinds) > 0 {
			out.FailureKinds = make(map[string]int64, len(p.failureKinds))
			for kind, n := range p.failureKinds {
				out.FailureKinds[kind] = n
			}
		}
		stats.ByProvider[provider] = out
	}
	return stats
}

// GetRecent returns up to limit records, oldest first.
func (s *Store) GetRecent(limit int) []GenerationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recentLocked(limit)
}

func (s *Store) recentLocked(limit int) []GenerationRecord {
	if limit <= 0 || s.size == 0 {
		return []GenerationRecord{}
	}
	if limit > s.size {
		limit = s.size
	}
	result := make([]GenerationRecord, limit)
	for i := 0; i < limit; i++ {
		idx := (s.head - limit + i + s.cap) % s.cap
		result[i] = s.history[idx]
	}
	return result
}

// GetSystemStatus reports degraded when every one of the last few
// generations failed.
func (s *Store) GetSystemStatus() SystemStatus {
	s.mu.RLock()
	recent := s.recentLocked(degradedWindow)
	uptime := s.now().Sub(s.startTime)
	version := s.version
	s.mu.RUnlock()

	status := StatusHealthy
	if len(recent) == degradedWindow {
		status = StatusDegraded
		for _, r := range recent {
			if r.Outcome == OutcomeSuccess {
				status = StatusHealthy
				break
			}
		}
	}

	return SystemStatus{
		Status:      status,
		Version:     version,
		Uptime:      uptime,
		Generations: s.GetStats(),
	}
}
