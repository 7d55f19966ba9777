// Package ledger declares the contract the engine consumes from the external
// ledger gateway. Balance and allowance reads are synchronous; submissions
// return a transaction reference whose outcome arrives later as a Receipt.
package ledger

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by LookupTransaction for unknown references. It is
// distinct from the malformed-reference validation error, which is raised by
// callers before any lookup is attempted.
var ErrNotFound = errors.New("transaction not found")

// Receipt is the confirmation outcome for a submitted transaction.
type Receipt struct {
	Ref     string
	Success bool
	Reason  string
}

// TxRecord is the ledger's view of a settled transaction, used for
// independent proof verification.
type TxRecord struct {
	Ref         string
	BlockNumber uint64
	From        string
	To          string
	Amount      string
	Token       string
	Timestamp   time.Time
}

// Gateway is the external system of record for balances, allowances and
// transaction execution. Implementations must be safe for concurrent use.
type Gateway interface {
	// Balance returns the account's balance of the given token.
	Balance(ctx context.Context, account, token string) (float64, error)

	// Allowance returns how much the spender may move on the account's behalf.
	Allowance(ctx context.Context, account, spender, token string) (float64, error)

	// SubmitApprove submits an approval for exactly amount and returns the
	// pending transaction reference.
	SubmitApprove(ctx context.Context, token, spender string, amount float64) (string, error)

	// SubmitTransfer submits a transfer of amount to destination and returns
	// the pending transaction reference.
	SubmitTransfer(ctx context.Context, token, destination string, amount float64) (string, error)

	// WaitForReceipt blocks until the referenced transaction is confirmed or
	// rejected, or the context ends.
	WaitForReceipt(ctx context.Context, ref string) (Receipt, error)

	// LookupTransaction resolves a settled transaction by reference. Unknown
	// references yield ErrNotFound.
	LookupTransaction(ctx context.Context, ref string) (TxRecord, error)
}
