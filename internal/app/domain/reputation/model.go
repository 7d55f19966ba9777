// Package reputation defines the derived scoring model: tiers, achievements
// and the per-session snapshot computed from burn history.
package reputation

// Tier is a named score bracket. Min and Max are inclusive; the ladder is
// contiguous from zero and terminates in an unbounded top tier (Max < 0).
type Tier struct {
	Name string `json:"name"`
	Min  int64  `json:"min"`
	Max  int64  `json:"max"` // negative means unbounded
}

// Contains reports whether score falls inside the tier's bracket.
func (t Tier) Contains(score int64) bool {
	if score < t.Min {
		return false
	}
	return t.Max < 0 || score <= t.Max
}

// Ladder is the tier ladder in ascending score order.
var Ladder = []Tier{
	{Name: "Unranked", Min: 0, Max: 0},
	{Name: "Novice Burner", Min: 1, Max: 999},
	{Name: "Veteran Burner", Min: 1000, Max: 4999},
	{Name: "Elite Burner", Min: 5000, Max: 19999},
	{Name: "Legendary Burner", Min: 20000, Max: 99999},
	{Name: "Void Master", Min: 100000, Max: -1},
}

// AchievementKind selects which aggregate an achievement threshold is
// compared against.
type AchievementKind string

const (
	KindBurnCount   AchievementKind = "burns"
	KindTotalAmount AchievementKind = "amount"
	KindScore       AchievementKind = "reputation"
)

// Achievement is a threshold predicate over the derived aggregates. Unlock
// state is re-derived on every read; achievements are never consumed.
type Achievement struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Kind        AchievementKind `json:"kind"`
	Threshold   float64         `json:"threshold"`
}

// Unlocked evaluates the achievement against the given aggregates.
func (a Achievement) Unlocked(burnCount int, totalBurned float64, score int64) bool {
	switch a.Kind {
	case KindBurnCount:
		return float64(burnCount) >= a.Threshold
	case KindTotalAmount:
		return totalBurned >= a.Threshold
	case KindScore:
		return float64(score) >= a.Threshold
	default:
		return false
	}
}

// Catalog is the fixed achievement set.
var Catalog = []Achievement{
	{ID: "first_burn", Name: "First Sacrifice", Description: "Complete your first token burn", Kind: KindBurnCount, Threshold: 1},
	{ID: "serial_burner", Name: "Serial Burner", Description: "Complete 10 token burns", Kind: KindBurnCount, Threshold: 10},
	{ID: "whale_burner", Name: "Whale Burner", Description: "Burn over 100 tokens total", Kind: KindTotalAmount, Threshold: 100},
	{ID: "reputation_master", Name: "Reputation Master", Description: "Reach 10,000 reputation points", Kind: KindScore, Threshold: 10000},
}

// AchievementState pairs an achievement with its derived unlock flag.
type AchievementState struct {
	Achievement
	Unlocked bool `json:"unlocked"`
}

// TokenTotal is one entry of the per-token breakdown.
type TokenTotal struct {
	Token  string  `json:"token"`
	Amount float64 `json:"amount"`
}

// Snapshot is the full derived reputation view. It has no lifecycle of its
// own; every read recomputes it from history.
type Snapshot struct {
	Score       int64   `json:"score"`
	TotalBurned float64 `json:"totalBurned"`
	BurnCount   int     `json:"burnCount"`
	Tier        Tier    `json:"tier"`
	Progress    float64 `json:"progressToNextTier"`

	AvgPointsPerBurn int64   `json:"avgPointsPerBurn"`
	AvgTokensPerBurn float64 `json:"avgTokensPerBurn"`
	DaysActive       int     `json:"daysActive"`
	TokenTypes       int     `json:"tokenTypes"`
}

// Standing is one leaderboard row, aggregated across sessions of a burner.
type Standing struct {
	Address     string  `json:"address"`
	Score       int64   `json:"reputation"`
	Burns       int     `json:"burns"`
	TotalBurned float64 `json:"totalBurned"`
	Tier        string  `json:"rank"`
}

// GlobalStats tracks engine-wide burning activity.
type GlobalStats struct {
	TotalBurners      int     `json:"totalBurners"`
	TotalBurns        int     `json:"totalBurns"`
	TotalTokensBurned float64 `json:"totalTokensBurned"`
}
