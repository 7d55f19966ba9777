package reputation

import (
	"math"
	"testing"
	"time"

	"github.com/blackhole-labs/burn-engine/internal/app/domain/burn"
	"github.com/blackhole-labs/burn-engine/internal/app/domain/reputation"
)

func record(amount float64, token string) burn.Record {
	return burn.Record{TxRef: "0xref", Amount: amount, Token: token, Timestamp: time.Now().UTC()}
}

func TestScore_PerRecordTruncation(t *testing.T) {
	calc := New(nil)

	// floor(0.5) + floor(0.5) = 0, while flooring the aggregate gives 1
	history := []burn.Record{record(0.005, "DEMO"), record(0.005, "DEMO")}
	if got := calc.Score(history); got != 0 {
		t.Fatalf("score %d, want 0 (per-record truncation)", got)
	}

	history = []burn.Record{record(10.5, "DEMO")}
	if got := calc.Score(history); got != 1050 {
		t.Fatalf("score %d, want 1050", got)
	}
}

func TestScore_MatchesSumOfPoints(t *testing.T) {
	calc := New(nil)
	history := []burn.Record{record(1.239, "DEMO"), record(7, "USDT"), record(0.42, "USDC")}

	var want int64
	for _, rec := range history {
		want += int64(math.Floor(rec.Amount * 100))
	}
	if got := calc.Score(history); got != want {
		t.Fatalf("score %d, want %d", got, want)
	}
	// call order must not matter
	_ = calc.TotalBurned(history)
	_ = calc.TierFor(calc.Score(history))
	if got := calc.Score(history); got != want {
		t.Fatalf("score changed after other reads: %d", got)
	}
}

func TestTierLadder_TotalAndContiguous(t *testing.T) {
	calc := New(nil)

	for score := int64(0); score <= 120000; score++ {
		matches := 0
		for _, tier := range reputation.Ladder {
			if tier.Contains(score) {
				matches++
			}
		}
		if matches != 1 {
			t.Fatalf("score %d matched %d tiers", score, matches)
		}
	}

	for i := 0; i < len(reputation.Ladder)-1; i++ {
		if reputation.Ladder[i].Max+1 != reputation.Ladder[i+1].Min {
			t.Fatalf("ladder gap between %s and %s", reputation.Ladder[i].Name, reputation.Ladder[i+1].Name)
		}
	}
	if top := reputation.Ladder[len(reputation.Ladder)-1]; top.Max >= 0 {
		t.Fatalf("top tier must be unbounded")
	}

	if calc.TierFor(0).Name != "Unranked" {
		t.Fatalf("score 0 tier: %s", calc.TierFor(0).Name)
	}
	if calc.TierFor(1050).Name != "Veteran Burner" {
		t.Fatalf("score 1050 tier: %s", calc.TierFor(1050).Name)
	}
	if calc.TierFor(250000).Name != "Void Master" {
		t.Fatalf("score 250000 tier: %s", calc.TierFor(250000).Name)
	}
}

func TestProgressToNext(t *testing.T) {
	calc := New(nil)

	// Veteran spans [1000,4999]; next tier starts at 5000.
	progress := calc.ProgressToNext(3000)
	want := float64(3000-1000) / float64(5000-1000) * 100
	if math.Abs(progress-want) > 1e-9 {
		t.Fatalf("progress %v, want %v", progress, want)
	}

	if calc.ProgressToNext(500000) != 100 {
		t.Fatalf("top tier progress must be 100")
	}
}

func TestAchievements_Thresholds(t *testing.T) {
	calc := New(nil)

	history := make([]burn.Record, 0, 10)
	for i := 0; i < 10; i++ {
		history = append(history, record(1, "DEMO"))
	}

	unlocked := make(map[string]bool)
	for _, st := range calc.Achievements(history) {
		unlocked[st.ID] = st.Unlocked
	}

	if !unlocked["first_burn"] {
		t.Fatalf("first_burn should unlock at 1 burn")
	}
	if !unlocked["serial_burner"] {
		t.Fatalf("serial_burner should unlock at 10 burns")
	}
	if unlocked["whale_burner"] {
		t.Fatalf("whale_burner should stay locked below 100 total")
	}
	if unlocked["reputation_master"] {
		t.Fatalf("reputation_master should stay locked below 10000 points")
	}
}

func TestTokenBreakdown_SortedDescending(t *testing.T) {
	calc := New(nil)
	history := []burn.Record{
		record(1, "DEMO"), record(4, "USDT"), record(2, "DEMO"),
	}

	breakdown := calc.TokenBreakdown(history)
	if len(breakdown) != 2 {
		t.Fatalf("breakdown size %d, want 2", len(breakdown))
	}
	if breakdown[0].Token != "USDT" || breakdown[1].Token != "DEMO" {
		t.Fatalf("breakdown not sorted by amount: %+v", breakdown)
	}
	if math.Abs(breakdown[1].Amount-3) > 1e-9 {
		t.Fatalf("DEMO total %v, want 3", breakdown[1].Amount)
	}
}

func TestSnapshot(t *testing.T) {
	calc := New(nil)
	calc.now = func() time.Time { return time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC) }

	old := burn.Record{TxRef: "0xold", Amount: 10.5, Token: "DEMO",
		Timestamp: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)}
	recent := burn.Record{TxRef: "0xnew", Amount: 2, Token: "USDT",
		Timestamp: time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)}

	snap := calc.Snapshot([]burn.Record{recent, old})
	if snap.Score != 1250 {
		t.Fatalf("score %d, want 1250", snap.Score)
	}
	if snap.BurnCount != 2 || math.Abs(snap.TotalBurned-12.5) > 1e-9 {
		t.Fatalf("aggregates wrong: %+v", snap)
	}
	if snap.Tier.Name != "Veteran Burner" {
		t.Fatalf("tier %s", snap.Tier.Name)
	}
	if snap.DaysActive != 10 {
		t.Fatalf("days active %d, want 10", snap.DaysActive)
	}
	if snap.TokenTypes != 2 {
		t.Fatalf("token types %d, want 2", snap.TokenTypes)
	}
	if snap.AvgPointsPerBurn != 625 {
		t.Fatalf("avg points %d, want 625", snap.AvgPointsPerBurn)
	}
}
