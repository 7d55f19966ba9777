package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/blackhole-labs/burn-engine/internal/app/domain/burn"
	"github.com/blackhole-labs/burn-engine/internal/app/domain/reputation"
	"github.com/blackhole-labs/burn-engine/internal/app/storage"
)

// Store is the in-memory implementation of the storage interfaces. It is
// safe for concurrent use and is the engine's only store: history is
// session-scoped by design, so nothing outlives the process.
type Store struct {
	mu        sync.RWMutex
	histories map[string][]burn.Record
	standings map[string]reputation.Standing
	burners   map[string]struct{}
	burnCount int
	burnTotal float64
}

var _ storage.HistoryStore = (*Store)(nil)
var _ storage.LeaderboardStore = (*Store)(nil)
var _ storage.StatsStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		histories: make(map[string][]burn.Record),
		standings: make(map[string]reputation.Standing),
		burners:   make(map[string]struct{}),
	}
}

// HistoryStore implementation -------------------------------------------------

func (s *Store) AppendBurn(_ context.Context, sessionID string, rec burn.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append([]burn.Record{rec}, s.histories[sessionID]...)
	if len(history) > burn.HistoryCapacity {
		history = history[:burn.HistoryCapacity]
	}
	s.histories[sessionID] = history
	return nil
}

func (s *Store) ListBurns(_ context.Context, sessionID string) ([]burn.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]burn.Record(nil), s.histories[sessionID]...), nil
}

// LeaderboardStore implementation ---------------------------------------------

func (s *Store) GetStanding(_ context.Context, address string) (reputation.Standing, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.standings[strings.ToLower(address)]
	return st, ok, nil
}

func (s *Store) UpsertStanding(_ context.Context, st reputation.Standing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.standings[strings.ToLower(st.Address)] = st
	return nil
}

func (s *Store) ListStandings(_ context.Context, limit int) ([]reputation.Standing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]reputation.Standing, 0, len(s.standings))
	for _, st := range s.standings {
		result = append(result, st)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Score > result[j].Score })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// StatsStore implementation ---------------------------------------------------

func (s *Store) RecordBurn(_ context.Context, burner string, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.burners[strings.ToLower(burner)] = struct{}{}
	s.burnCount++
	s.burnTotal += amount
	return nil
}

func (s *Store) GlobalStats(_ context.Context) (reputation.GlobalStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return reputation.GlobalStats{
		TotalBurners:      len(s.burners),
		TotalBurns:        s.burnCount,
		TotalTokensBurned: s.burnTotal,
	}, nil
}
