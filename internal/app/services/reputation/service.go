// Package reputation derives scores, tiers, achievements and analytics from
// burn history. Every function is pure over the passed-in history; nothing
// is cached or stored.
package reputation

import (
	"math"
	"sort"
	"time"

	"github.com/blackhole-labs/burn-engine/internal/app/domain/burn"
	"github.com/blackhole-labs/burn-engine/internal/app/domain/reputation"
	"github.com/blackhole-labs/burn-engine/pkg/logger"
)

// Calculator computes derived reputation views.
type Calculator struct {
	log *logger.Logger
	now func() time.Time
}

// New constructs a calculator.
func New(log *logger.Logger) *Calculator {
	if log == nil {
		log = logger.NewDefault("reputation")
	}
	return &Calculator{log: log, now: time.Now}
}

// Score sums floor(amount*100) per record. Truncation happens per record
// before the integer sum; computing floor on the aggregate would round
// differently once fractional parts accumulate.
func (c *Calculator) Score(history []burn.Record) int64 {
	var score int64
	for _, rec := range history {
		score += PointsFor(rec.Amount)
	}
	return score
}

// PointsFor returns the score contribution of a single burned amount.
func PointsFor(amount float64) int64 {
	return int64(math.Floor(amount * 100))
}

// TotalBurned sums raw amounts across all records. The sum is deliberately
// token-agnostic regardless of differing token decimals.
func (c *Calculator) TotalBurned(history []burn.Record) float64 {
	var total float64
	for _, rec := range history {
		total += rec.Amount
	}
	return total
}

// TierFor scans the ladder in ascending order and returns the first tier
// containing score. The ladder is exhaustive, so a match always exists for
// non-negative scores; negative input maps to the bottom tier.
func (c *Calculator) TierFor(score int64) reputation.Tier {
	for _, tier := range reputation.Ladder {
		if tier.Contains(score) {
			return tier
		}
	}
	return reputation.Ladder[0]
}

// NextTier returns the tier above score, or false from the top tier.
func (c *Calculator) NextTier(score int64) (reputation.Tier, bool) {
	for _, tier := range reputation.Ladder {
		if tier.Min > score {
			return tier, true
		}
	}
	return reputation.Tier{}, false
}

// ProgressToNext reports percentage progress from the current tier floor to
// the next tier floor, clamped to [0,100]. The top tier reports 100.
func (c *Calculator) ProgressToNext(score int64) float64 {
	current := c.TierFor(score)
	next, ok := c.NextTier(score)
	if !ok {
		return 100
	}
	progress := float64(score-current.Min) / float64(next.Min-current.Min) * 100
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

// Achievements evaluates the catalog against the history's aggregates. Each
// predicate is independent; unlock state is derived, never persisted.
func (c *Calculator) Achievements(history []burn.Record) []reputation.AchievementState {
	burnCount := len(history)
	totalBurned := c.TotalBurned(history)
	score := c.Score(history)

	states := make([]reputation.AchievementState, 0, len(reputation.Catalog))
	for _, a := range reputation.Catalog {
		states = append(states, reputation.AchievementState{
			Achievement: a,
			Unlocked:    a.Unlocked(burnCount, totalBurned, score),
		})
	}
	return states
}

// TokenBreakdown groups burned amounts by token symbol, largest first.
// Ordering of equal totals is unspecified.
func (c *Calculator) TokenBreakdown(history []burn.Record) []reputation.TokenTotal {
	totals := make(map[string]float64)
	for _, rec := range history {
		totals[rec.Token] += rec.Amount
	}

	breakdown := make([]reputation.TokenTotal, 0, len(totals))
	for token, amount := range totals {
		breakdown = append(breakdown, reputation.TokenTotal{Token: token, Amount: amount})
	}
	sort.Slice(breakdown, func(i, j int) bool { return breakdown[i].Amount > breakdown[j].Amount })
	return breakdown
}

// Snapshot recomputes the full derived view from history.
func (c *Calculator) Snapshot(history []burn.Record) reputation.Snapshot {
	score := c.Score(history)
	total := c.TotalBurned(history)
	count := len(history)

	snap := reputation.Snapshot{
		Score:       score,
		TotalBurned: total,
		BurnCount:   count,
		Tier:        c.TierFor(score),
		Progress:    c.ProgressToNext(score),
		TokenTypes:  len(c.TokenBreakdown(history)),
	}

	if count > 0 {
		snap.AvgPointsPerBurn = int64(math.Round(float64(score) / float64(count)))
		snap.AvgTokensPerBurn = total / float64(count)

		oldest := history[0].Timestamp
		for _, rec := range history {
			if rec.Timestamp.Before(oldest) {
				oldest = rec.Timestamp
			}
		}
		snap.DaysActive = int(math.Round(c.now().Sub(oldest).Hours() / 24))
	}
	return snap
}
