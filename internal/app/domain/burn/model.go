// Package burn defines the core records produced by the burn engine.
package burn

import "time"

// Token describes a burnable token known to the engine. Address is the
// ledger contract reference, Decimals its display precision.
type Token struct {
	Symbol   string `yaml:"symbol" json:"symbol"`
	Name     string `yaml:"name" json:"name"`
	Address  string `yaml:"address" json:"address"`
	Decimals int    `yaml:"decimals" json:"decimals"`
}

// Record is one confirmed burn. Records are created only on ledger
// confirmation and are never mutated afterwards.
type Record struct {
	TxRef     string    `json:"txRef"`
	Amount    float64   `json:"amount"`
	Token     string    `json:"token"`
	Timestamp time.Time `json:"timestamp"`
}

// Step identifies the controller's position in the burn flow.
type Step string

const (
	StepSelect  Step = "select"
	StepApprove Step = "approve"
	StepBurn    Step = "burn"
	StepSuccess Step = "success"
)

// CompletionEvent is emitted exactly once per successful burn. Amount is
// carried as a decimal string so consumers keep the user-entered precision.
type CompletionEvent struct {
	TxRef  string `json:"txRef"`
	Amount string `json:"amount"`
	Token  string `json:"token"`
}

// HistoryCapacity bounds per-session burn history. Appending past the bound
// evicts the oldest record.
const HistoryCapacity = 10

// SinkAddress is the fixed unspendable destination burned tokens are sent to.
const SinkAddress = "0x000000000000000000000000000000000000dEaD"
