// Package burner drives burn transactions through the approve/burn state
// machine against the ledger gateway. Each burn belongs to a session; the
// session owns token/amount selection and the single in-flight submission.
package burner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blackhole-labs/burn-engine/internal/app/domain/burn"
	"github.com/blackhole-labs/burn-engine/internal/app/domain/reputation"
	"github.com/blackhole-labs/burn-engine/internal/app/ledger"
	"github.com/blackhole-labs/burn-engine/internal/app/metrics"
	reputationsvc "github.com/blackhole-labs/burn-engine/internal/app/services/reputation"
	"github.com/blackhole-labs/burn-engine/internal/app/storage"
	"github.com/blackhole-labs/burn-engine/pkg/logger"
)

// Epsilon bounds float comparisons on balances and allowances.
const Epsilon = 1e-9

var (
	ErrUnknownSession      = errors.New("session not found")
	ErrUnknownToken        = errors.New("token not supported")
	ErrNoTokenSelected     = errors.New("no token selected")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("amount exceeds balance")
	ErrBurnInFlight        = errors.New("a submission is already awaiting confirmation")
	ErrApprovalRequired    = errors.New("allowance insufficient, approval required")
	ErrApprovalNotNeeded   = errors.New("allowance already sufficient")
	ErrResetUnavailable    = errors.New("reset is only available after a successful burn")
	ErrNothingInFlight     = errors.New("no submission to abandon")
)

type inFlightKind int

const (
	kindNone inFlightKind = iota
	kindApprove
	kindBurn
)

// Session holds one burner's selection and flow position. All mutation goes
// through Service methods under the session mutex.
type Session struct {
	ID      string
	Account string

	mu       sync.Mutex
	step     burn.Step
	token    burn.Token
	hasToken bool
	amount   float64
	inFlight string
	kind     inFlightKind
	lastErr  string
}

// View is the read-only session snapshot returned to callers.
type View struct {
	ID              string     `json:"id"`
	Account         string     `json:"account"`
	Step            burn.Step  `json:"step"`
	Token           burn.Token `json:"token"`
	Amount          float64    `json:"amount"`
	InFlight        string     `json:"inFlightRef,omitempty"`
	LastError       string     `json:"lastError,omitempty"`
	EstimatedPoints int64      `json:"estimatedPoints"`
}

// CompletionListener receives one event per successful burn.
type CompletionListener func(burn.CompletionEvent)

// Service is the burn transaction controller.
type Service struct {
	gateway     ledger.Gateway
	history     storage.HistoryStore
	leaderboard storage.LeaderboardStore
	stats       storage.StatsStore
	calc        *reputationsvc.Calculator
	log         *logger.Logger

	spender string
	tokens  map[string]burn.Token

	mu       sync.RWMutex
	sessions map[string]*Session

	onComplete CompletionListener

	baseCtx context.Context
	cancel  context.CancelFunc
	pumps   sync.WaitGroup
}

// New constructs the controller. spender is the engine's well-known spender
// address that approvals are granted to.
func New(gateway ledger.Gateway, history storage.HistoryStore, leaderboard storage.LeaderboardStore, stats storage.StatsStore, spender string, tokens []burn.Token, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("burner")
	}
	registry := make(map[string]burn.Token, len(tokens))
	for _, tok := range tokens {
		registry[strings.ToUpper(tok.Symbol)] = tok
	}
	return &Service{
		gateway:     gateway,
		history:     history,
		leaderboard: leaderboard,
		stats:       stats,
		calc:        reputationsvc.New(log),
		log:         log,
		spender:     spender,
		tokens:      registry,
		sessions:    make(map[string]*Session),
		baseCtx:     context.Background(),
	}
}

// WithCompletionListener registers the completion event consumer. Call
// before Start.
func (s *Service) WithCompletionListener(fn CompletionListener) {
	s.onComplete = fn
}

// Name implements system.Service.
func (s *Service) Name() string { return "burner" }

// Start prepares the confirmation pump context.
func (s *Service) Start(ctx context.Context) error {
	s.baseCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	return nil
}

// Stop cancels outstanding confirmation waits and drains the pumps.
func (s *Service) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	done := make(chan struct{})
	go func() {
		s.pumps.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tokens lists the supported token registry, sorted by symbol.
func (s *Service) Tokens() []burn.Token {
	result := make([]burn.Token, 0, len(s.tokens))
	for _, tok := range s.tokens {
		result = append(result, tok)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Symbol < result[j].Symbol })
	return result
}

// CreateSession opens a session for the given burner account.
func (s *Service) CreateSession(_ context.Context, account string) (View, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return View{}, fmt.Errorf("account is required")
	}

	sess := &Session{
		ID:      uuid.New().String(),
		Account: account,
		step:    burn.StepSelect,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.log.WithField("session_id", sess.ID).WithField("account", account).Info("session created")
	return s.view(sess), nil
}

// GetSession returns the current session snapshot.
func (s *Service) GetSession(_ context.Context, sessionID string) (View, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return View{}, err
	}
	return s.view(sess), nil
}

// SelectToken picks the token to burn. Selection is rejected while a
// submission is in flight.
func (s *Service) SelectToken(_ context.Context, sessionID, symbol string) (View, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return View{}, err
	}

	tok, ok := s.tokens[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return View{}, fmt.Errorf("%w: %s", ErrUnknownToken, symbol)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.inFlight != "" {
		return View{}, ErrBurnInFlight
	}
	sess.token = tok
	sess.hasToken = true
	return s.viewLocked(sess), nil
}

// SetAmount sets the burn amount. Balance is checked at submission time.
func (s *Service) SetAmount(_ context.Context, sessionID string, amount float64) (View, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return View{}, err
	}
	if amount <= 0 {
		return View{}, ErrInvalidAmount
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.inFlight != "" {
		return View{}, ErrBurnInFlight
	}
	sess.amount = amount
	return s.viewLocked(sess), nil
}

// NeedsApproval reports whether the current selection requires an approval
// before the burn can be submitted.
func (s *Service) NeedsApproval(ctx context.Context, sessionID string) (bool, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return false, err
	}

	sess.mu.Lock()
	token, hasToken, amount := sess.token, sess.hasToken, sess.amount
	sess.mu.Unlock()

	if !hasToken {
		return false, ErrNoTokenSelected
	}
	if amount <= 0 {
		return false, ErrInvalidAmount
	}

	allowance, err := s.gateway.Allowance(ctx, sess.Account, s.spender, token.Address)
	if err != nil {
		return false, fmt.Errorf("read allowance: %w", err)
	}
	return allowance+Epsilon < amount, nil
}

// Approve submits an approval for exactly the selected amount and moves the
// session to the approve step. Rejected if the allowance already covers the
// amount, or while another submission is in flight.
func (s *Service) Approve(ctx context.Context, sessionID string) (View, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return View{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.inFlight != "" {
		return View{}, ErrBurnInFlight
	}
	token, amount, err := s.validateSelectionLocked(ctx, sess)
	if err != nil {
		return View{}, err
	}

	allowance, err := s.gateway.Allowance(ctx, sess.Account, s.spender, token.Address)
	if err != nil {
		return View{}, fmt.Errorf("read allowance: %w", err)
	}
	if allowance+Epsilon >= amount {
		return View{}, ErrApprovalNotNeeded
	}

	ref, err := s.gateway.SubmitApprove(ctx, token.Address, s.spender, amount)
	if err != nil {
		// submission never left the select step; selection is preserved
		sess.step = burn.StepSelect
		sess.lastErr = err.Error()
		return View{}, fmt.Errorf("submit approval: %w", err)
	}

	sess.step = burn.StepApprove
	sess.inFlight = ref
	sess.kind = kindApprove
	sess.lastErr = ""
	metrics.RecordSubmission("approve")
	s.log.WithField("session_id", sess.ID).WithField("tx_ref", ref).Info("approval submitted")

	s.awaitReceipt(sess.ID, ref)
	return s.viewLocked(sess), nil
}

// Burn submits the transfer to the burn sink. It is blocked while the
// allowance does not cover the amount; approval must confirm first.
func (s *Service) Burn(ctx context.Context, sessionID string) (View, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return View{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.inFlight != "" {
		return View{}, ErrBurnInFlight
	}
	token, amount, err := s.validateSelectionLocked(ctx, sess)
	if err != nil {
		return View{}, err
	}

	allowance, err := s.gateway.Allowance(ctx, sess.Account, s.spender, token.Address)
	if err != nil {
		return View{}, fmt.Errorf("read allowance: %w", err)
	}
	if allowance+Epsilon < amount {
		return View{}, ErrApprovalRequired
	}

	ref, err := s.gateway.SubmitTransfer(ctx, token.Address, burn.SinkAddress, amount)
	if err != nil {
		// revert one step only: selection survives for retry
		sess.step = burn.StepApprove
		sess.lastErr = err.Error()
		return View{}, fmt.Errorf("submit burn: %w", err)
	}

	sess.step = burn.StepBurn
	sess.inFlight = ref
	sess.kind = kindBurn
	sess.lastErr = ""
	metrics.RecordSubmission("burn")
	s.log.WithField("session_id", sess.ID).WithField("tx_ref", ref).
		WithField("token", token.Symbol).WithField("amount", amount).Info("burn submitted")

	s.awaitReceipt(sess.ID, ref)
	return s.viewLocked(sess), nil
}

// Confirm applies a confirmation receipt. Receipts whose reference does not
// match the session's in-flight submission are ignored, so late or duplicate
// deliveries for abandoned attempts are no-ops.
func (s *Service) Confirm(ctx context.Context, sessionID string, receipt ledger.Receipt) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.inFlight == "" || receipt.Ref != sess.inFlight {
		s.log.WithField("session_id", sess.ID).WithField("tx_ref", receipt.Ref).
			Debug("ignoring stale confirmation")
		return nil
	}

	switch sess.kind {
	case kindApprove:
		sess.inFlight = ""
		sess.kind = kindNone
		if !receipt.Success {
			sess.step = burn.StepSelect
			sess.lastErr = failureReason(receipt)
			metrics.RecordOutcome("approve", "rejected")
			s.log.WithField("session_id", sess.ID).WithField("tx_ref", receipt.Ref).
				Warn("approval rejected")
			return nil
		}
		// stay on the approve step; the next Burn call re-reads the allowance
		sess.lastErr = ""
		metrics.RecordOutcome("approve", "confirmed")
		s.log.WithField("session_id", sess.ID).WithField("tx_ref", receipt.Ref).Info("approval confirmed")
		return nil

	case kindBurn:
		if !receipt.Success {
			sess.inFlight = ""
			sess.kind = kindNone
			sess.step = burn.StepApprove
			sess.lastErr = failureReason(receipt)
			metrics.RecordOutcome("burn", "rejected")
			s.log.WithField("session_id", sess.ID).WithField("tx_ref", receipt.Ref).
				Warn("burn rejected")
			return nil
		}
		// keep the in-flight ref until the record lands, so a store failure
		// leaves the receipt re-applicable
		if err := s.completeBurnLocked(ctx, sess, receipt); err != nil {
			sess.lastErr = err.Error()
			return err
		}
		sess.inFlight = ""
		sess.kind = kindNone
		return nil
	}
	return nil
}

// Abandon drops the in-flight submission and reverts one step. The ledger
// transaction may still land; its receipt will be ignored.
func (s *Service) Abandon(_ context.Context, sessionID string) (View, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return View{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.inFlight == "" {
		return View{}, ErrNothingInFlight
	}
	if sess.kind == kindApprove {
		sess.step = burn.StepSelect
	} else {
		sess.step = burn.StepApprove
	}
	s.log.WithField("session_id", sess.ID).WithField("tx_ref", sess.inFlight).Info("submission abandoned")
	sess.inFlight = ""
	sess.kind = kindNone
	return s.viewLocked(sess), nil
}

// Reset clears the selection after a successful burn. This is the only
// transition that clears token and amount.
func (s *Service) Reset(_ context.Context, sessionID string) (View, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return View{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.step != burn.StepSuccess {
		return View{}, ErrResetUnavailable
	}
	sess.step = burn.StepSelect
	sess.token = burn.Token{}
	sess.hasToken = false
	sess.amount = 0
	sess.lastErr = ""
	return s.viewLocked(sess), nil
}

// History returns the session's burn history, newest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]burn.Record, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.history.ListBurns(ctx, sess.ID)
}

// Leaderboard returns the top standings across all burner addresses.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]reputation.Standing, error) {
	return s.leaderboard.ListStandings(ctx, limit)
}

// GlobalStats returns the engine-wide burn counters.
func (s *Service) GlobalStats(ctx context.Context) (reputation.GlobalStats, error) {
	return s.stats.GlobalStats(ctx)
}

// EstimatePoints previews the reputation gained by burning amount.
func (s *Service) EstimatePoints(amount float64) int64 {
	if amount <= 0 {
		return 0
	}
	return reputationsvc.PointsFor(amount)
}

// internal ---------------------------------------------------------------------

func (s *Service) session(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return sess, nil
}

// validateSelectionLocked checks the preconditions to leave the select step.
// Validation failures never reach the gateway except for the balance read.
func (s *Service) validateSelectionLocked(ctx context.Context, sess *Session) (burn.Token, float64, error) {
	if !sess.hasToken {
		return burn.Token{}, 0, ErrNoTokenSelected
	}
	if sess.amount <= 0 {
		return burn.Token{}, 0, ErrInvalidAmount
	}
	if sess.step == burn.StepSuccess {
		return burn.Token{}, 0, ErrResetUnavailable
	}

	balance, err := s.gateway.Balance(ctx, sess.Account, sess.token.Address)
	if err != nil {
		return burn.Token{}, 0, fmt.Errorf("read balance: %w", err)
	}
	if sess.amount > balance+Epsilon {
		return burn.Token{}, 0, ErrInsufficientBalance
	}
	return sess.token, sess.amount, nil
}

// completeBurnLocked appends the record, updates aggregates and emits the
// completion event. Runs with the session lock held; Confirm clears the
// in-flight ref only after this returns nil, so the event fires exactly once
// per confirmed burn.
func (s *Service) completeBurnLocked(ctx context.Context, sess *Session, receipt ledger.Receipt) error {
	rec := burn.Record{
		TxRef:     receipt.Ref,
		Amount:    sess.amount,
		Token:     sess.token.Symbol,
		Timestamp: time.Now().UTC(),
	}
	if err := s.history.AppendBurn(ctx, sess.ID, rec); err != nil {
		return fmt.Errorf("append burn record: %w", err)
	}

	sess.step = burn.StepSuccess
	sess.lastErr = ""
	metrics.RecordOutcome("burn", "confirmed")

	if s.stats != nil {
		if err := s.stats.RecordBurn(ctx, sess.Account, rec.Amount); err != nil {
			s.log.WithError(err).Warn("record global stats")
		}
	}
	if s.leaderboard != nil {
		s.updateStanding(ctx, sess.Account, rec.Amount)
	}

	if s.onComplete != nil {
		s.onComplete(burn.CompletionEvent{
			TxRef:  rec.TxRef,
			Amount: strconv.FormatFloat(rec.Amount, 'f', -1, 64),
			Token:  rec.Token,
		})
	}

	s.log.WithField("session_id", sess.ID).WithField("tx_ref", rec.TxRef).
		WithField("token", rec.Token).WithField("amount", rec.Amount).Info("burn confirmed")
	return nil
}

func (s *Service) updateStanding(ctx context.Context, account string, amount float64) {
	st, ok, err := s.leaderboard.GetStanding(ctx, account)
	if err != nil {
		s.log.WithError(err).Warn("read standing")
		return
	}
	if !ok {
		st = reputation.Standing{Address: account}
	}
	st.Burns++
	st.TotalBurned += amount
	st.Score += reputationsvc.PointsFor(amount)
	st.Tier = s.calc.TierFor(st.Score).Name

	if err := s.leaderboard.UpsertStanding(ctx, st); err != nil {
		s.log.WithError(err).Warn("update standing")
	}
}

// awaitReceipt pumps the confirmation for one submission. Runs detached from
// the submitting request; the receipt is applied through Confirm so the
// reference-identity guard stays the single filter for staleness.
func (s *Service) awaitReceipt(sessionID, ref string) {
	s.pumps.Add(1)
	go func() {
		defer s.pumps.Done()

		receipt, err := s.gateway.WaitForReceipt(s.baseCtx, ref)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			// transport failure is retryable, never a silent advance
			receipt = ledger.Receipt{Ref: ref, Success: false, Reason: err.Error()}
		}
		if err := s.Confirm(s.baseCtx, sessionID, receipt); err != nil {
			s.log.WithError(err).WithField("tx_ref", ref).Error("apply confirmation")
		}
	}()
}

func (s *Service) view(sess *Session) View {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.viewLocked(sess)
}

func (s *Service) viewLocked(sess *Session) View {
	return View{
		ID:              sess.ID,
		Account:         sess.Account,
		Step:            sess.step,
		Token:           sess.token,
		Amount:          sess.amount,
		InFlight:        sess.inFlight,
		LastError:       sess.lastErr,
		EstimatedPoints: s.EstimatePoints(sess.amount),
	}
}

func failureReason(receipt ledger.Receipt) string {
	if receipt.Reason != "" {
		return receipt.Reason
	}
	return "transaction rejected"
}
