package storage

import (
	"context"

	"github.com/blackhole-labs/burn-engine/internal/app/domain/burn"
	"github.com/blackhole-labs/burn-engine/internal/app/domain/reputation"
)

// HistoryStore keeps the capacity-bounded, newest-first burn log per
// session. Records are appended whole on confirmation and never updated;
// the only removal is oldest-first eviction past burn.HistoryCapacity.
type HistoryStore interface {
	AppendBurn(ctx context.Context, sessionID string, rec burn.Record) error
	ListBurns(ctx context.Context, sessionID string) ([]burn.Record, error)
}

// LeaderboardStore aggregates standings across burner addresses.
type LeaderboardStore interface {
	GetStanding(ctx context.Context, address string) (reputation.Standing, bool, error)
	UpsertStanding(ctx context.Context, st reputation.Standing) error
	ListStandings(ctx context.Context, limit int) ([]reputation.Standing, error)
}

// StatsStore tracks engine-wide burn counters.
type StatsStore interface {
	RecordBurn(ctx context.Context, burner string, amount float64) error
	GlobalStats(ctx context.Context) (reputation.GlobalStats, error)
}
