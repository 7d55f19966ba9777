package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	app "github.com/blackhole-labs/burn-engine/internal/app"
	"github.com/blackhole-labs/burn-engine/internal/app/domain/burn"
	"github.com/blackhole-labs/burn-engine/internal/app/ledger"
	burnersvc "github.com/blackhole-labs/burn-engine/internal/app/services/burner"
)

const knownRef = "0x4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"

type fakeGateway struct {
	mu         sync.Mutex
	balances   map[string]float64
	allowances map[string]float64
	txs        map[string]ledger.TxRecord
	nextRef    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		balances:   make(map[string]float64),
		allowances: make(map[string]float64),
		txs:        make(map[string]ledger.TxRecord),
	}
}

func (f *fakeGateway) Balance(_ context.Context, _, token string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[token], nil
}

func (f *fakeGateway) Allowance(_ context.Context, _, _, token string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allowances[token], nil
}

func (f *fakeGateway) SubmitApprove(_ context.Context, _, _ string, _ float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextRef++
	return fmt.Sprintf("0xref%d", f.nextRef), nil
}

func (f *fakeGateway) SubmitTransfer(_ context.Context, _, _ string, _ float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextRef++
	return fmt.Sprintf("0xref%d", f.nextRef), nil
}

func (f *fakeGateway) WaitForReceipt(ctx context.Context, _ string) (ledger.Receipt, error) {
	<-ctx.Done()
	return ledger.Receipt{}, ctx.Err()
}

func (f *fakeGateway) LookupTransaction(_ context.Context, ref string) (ledger.TxRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.txs[ref]
	if !ok {
		return ledger.TxRecord{}, ledger.ErrNotFound
	}
	return tx, nil
}

func (f *fakeGateway) setBalance(token string, amount float64) {
	f.mu.Lock()
	f.balances[token] = amount
	f.mu.Unlock()
}
func (f *fakeGateway) setAllowance(token string, amount float64) {
	f.mu.Lock()
	f.allowances[token] = amount
	f.mu.Unlock()
}

var testTokens = []burn.Token{
	{Symbol: "DEMO", Name: "Demo Token", Address: "0xA0b86a33E6441b8435b662c8C0b0E8E6C5b8B8E8", Decimals: 18},
}

func newTestApp(t *testing.T) (*app.Application, *fakeGateway, http.Handler) {
	t.Helper()

	gw := newFakeGateway()
	application, err := app.New(gw, app.Stores{}, "0xspender", testTokens, nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = application.Stop(ctx)
	})

	return application, gw, NewHandler(application)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestBurnFlowOverHTTP(t *testing.T) {
	application, gw, h := newTestApp(t)
	gw.setBalance(testTokens[0].Address, 100)

	rec := do(t, h, http.MethodPost, "/sessions", map[string]string{"account": "0xAcct"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", rec.Code, rec.Body.String())
	}
	var view burnersvc.View
	decode(t, rec, &view)
	base := "/sessions/" + view.ID

	rec = do(t, h, http.MethodPost, base+"/token", map[string]string{"symbol": "DEMO"})
	if rec.Code != http.StatusOK {
		t.Fatalf("select token: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodPost, base+"/amount", map[string]float64{"amount": 10.5})
	if rec.Code != http.StatusOK {
		t.Fatalf("set amount: %d %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &view)
	if view.EstimatedPoints != 1050 {
		t.Fatalf("estimated points = %d", view.EstimatedPoints)
	}

	rec = do(t, h, http.MethodGet, base+"/approval", nil)
	var approval map[string]bool
	decode(t, rec, &approval)
	if !approval["needed"] {
		t.Fatal("expected approval to be needed")
	}

	// Burning before approval is a conflict.
	rec = do(t, h, http.MethodPost, base+"/burn", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("premature burn: %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, base+"/approve", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &view)
	if view.Step != burn.StepApprove || view.InFlight == "" {
		t.Fatalf("view after approve = %+v", view)
	}

	gw.setAllowance(testTokens[0].Address, 10.5)
	if err := application.Burner.Confirm(context.Background(), view.ID, ledger.Receipt{Ref: view.InFlight, Success: true}); err != nil {
		t.Fatalf("confirm approve: %v", err)
	}

	rec = do(t, h, http.MethodPost, base+"/burn", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("burn: %d %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &view)
	if view.Step != burn.StepBurn || view.InFlight == "" {
		t.Fatalf("view after burn = %+v", view)
	}
	burnRef := view.InFlight

	if err := application.Burner.Confirm(context.Background(), view.ID, ledger.Receipt{Ref: burnRef, Success: true}); err != nil {
		t.Fatalf("confirm burn: %v", err)
	}

	rec = do(t, h, http.MethodGet, base, nil)
	decode(t, rec, &view)
	if view.Step != burn.StepSuccess {
		t.Fatalf("final step = %s", view.Step)
	}

	rec = do(t, h, http.MethodGet, base+"/history", nil)
	var history []burn.Record
	decode(t, rec, &history)
	if len(history) != 1 || history[0].TxRef != burnRef {
		t.Fatalf("history = %+v", history)
	}

	rec = do(t, h, http.MethodGet, base+"/reputation", nil)
	var snapshot struct {
		Score int64 `json:"score"`
	}
	decode(t, rec, &snapshot)
	if snapshot.Score != 1050 {
		t.Fatalf("score = %d", snapshot.Score)
	}

	rec = do(t, h, http.MethodGet, base+"/proofs", nil)
	var proofs []struct {
		TxHash   string `json:"txHash"`
		Verified bool   `json:"verified"`
	}
	decode(t, rec, &proofs)
	if len(proofs) != 1 || !proofs[0].Verified || proofs[0].TxHash != burnRef {
		t.Fatalf("proofs = %+v", proofs)
	}

	rec = do(t, h, http.MethodGet, base+"/certificates/"+burnRef, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("certificate: %d %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "burn-certificate-") {
		t.Fatalf("content disposition = %q", cd)
	}
	var cert struct {
		Type string `json:"type"`
	}
	decode(t, rec, &cert)
	if cert.Type != "Burn Certificate" {
		t.Fatalf("certificate type = %q", cert.Type)
	}

	rec = do(t, h, http.MethodGet, "/leaderboard", nil)
	var standings []struct {
		Address string `json:"address"`
		Score   int64  `json:"reputation"`
	}
	decode(t, rec, &standings)
	if len(standings) != 1 || standings[0].Score != 1050 {
		t.Fatalf("standings = %+v", standings)
	}

	rec = do(t, h, http.MethodGet, "/stats", nil)
	var stats struct {
		TotalBurns int `json:"totalBurns"`
	}
	decode(t, rec, &stats)
	if stats.TotalBurns != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestVerifyEndpoint(t *testing.T) {
	_, gw, h := newTestApp(t)

	rec := do(t, h, http.MethodPost, "/verify", map[string]string{"reference": "0xnothex"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed reference: %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/verify", map[string]string{"reference": knownRef})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown reference: %d", rec.Code)
	}

	gw.txs[knownRef] = ledger.TxRecord{
		Ref:         knownRef,
		BlockNumber: 42,
		From:        "0xAcct",
		To:          burn.SinkAddress,
		Amount:      "10.5",
		Token:       "DEMO",
		Timestamp:   time.UnixMilli(1700000000000).UTC(),
	}
	rec = do(t, h, http.MethodPost, "/verify", map[string]string{"reference": knownRef})
	if rec.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", rec.Code, rec.Body.String())
	}
	var p struct {
		Verified    bool   `json:"verified"`
		BlockNumber uint64 `json:"blockNumber"`
	}
	decode(t, rec, &p)
	if !p.Verified || p.BlockNumber != 42 {
		t.Fatalf("proof = %+v", p)
	}
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	_, _, h := newTestApp(t)

	rec := do(t, h, http.MethodGet, "/sessions/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get: %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/sessions/nope/burn", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("burn: %d", rec.Code)
	}
}

func TestTokensEndpoint(t *testing.T) {
	_, _, h := newTestApp(t)

	rec := do(t, h, http.MethodGet, "/tokens", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("tokens: %d", rec.Code)
	}
	var tokens []burn.Token
	decode(t, rec, &tokens)
	if len(tokens) != 1 || tokens[0].Symbol != "DEMO" {
		t.Fatalf("tokens = %+v", tokens)
	}
}

func TestRateLimiterRejectsBursts(t *testing.T) {
	limiter := NewRateLimiter(1, 2, nil)
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := limiter.Handler(inner)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/tokens", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}
