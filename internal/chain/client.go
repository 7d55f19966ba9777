// Package chain implements the ledger gateway client over JSON-RPC. The
// gateway fronts the actual ledger and wallet; the engine never talks to the
// chain or signing infrastructure directly.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/blackhole-labs/burn-engine/internal/app/ledger"
)

// Client is the JSON-RPC ledger gateway client. It implements
// ledger.Gateway.
type Client struct {
	rpcURL       string
	httpClient   *http.Client
	pollInterval time.Duration
}

var _ ledger.Gateway = (*Client)(nil)

// Config holds client configuration.
type Config struct {
	RPCURL       string
	Timeout      time.Duration // per-request timeout, default 30s
	PollInterval time.Duration // receipt poll cadence, default 2s
}

// NewClient creates a gateway client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	poll := cfg.PollInterval
	if poll == 0 {
		poll = 2 * time.Second
	}

	return &Client{
		rpcURL:       cfg.RPCURL,
		httpClient:   &http.Client{Timeout: timeout},
		pollInterval: poll,
	}, nil
}

// Call makes a JSON-RPC call to the gateway.
func (c *Client) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	req := RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp RPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// Balance returns the account's token balance.
func (c *Client) Balance(ctx context.Context, account, token string) (float64, error) {
	result, err := c.Call(ctx, "burngw_balanceOf", []interface{}{account, token})
	if err != nil {
		return 0, err
	}
	return parseAmount(result)
}

// Allowance returns the spender's allowance on the account's tokens.
func (c *Client) Allowance(ctx context.Context, account, spender, token string) (float64, error) {
	result, err := c.Call(ctx, "burngw_allowance", []interface{}{account, spender, token})
	if err != nil {
		return 0, err
	}
	return parseAmount(result)
}

// SubmitApprove submits an approval and returns the pending reference.
func (c *Client) SubmitApprove(ctx context.Context, token, spender string, amount float64) (string, error) {
	result, err := c.Call(ctx, "burngw_approve", []interface{}{token, spender, formatAmount(amount)})
	if err != nil {
		return "", err
	}
	return parseRef(result)
}

// SubmitTransfer submits a transfer and returns the pending reference.
func (c *Client) SubmitTransfer(ctx context.Context, token, destination string, amount float64) (string, error) {
	result, err := c.Call(ctx, "burngw_transfer", []interface{}{token, destination, formatAmount(amount)})
	if err != nil {
		return "", err
	}
	return parseRef(result)
}

// WaitForReceipt polls the gateway until the transaction settles or the
// context ends.
func (c *Client) WaitForReceipt(ctx context.Context, ref string) (ledger.Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, settled, err := c.receipt(ctx, ref)
		if err != nil {
			return ledger.Receipt{}, err
		}
		if settled {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return ledger.Receipt{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) receipt(ctx context.Context, ref string) (ledger.Receipt, bool, error) {
	result, err := c.Call(ctx, "burngw_getReceipt", []interface{}{ref})
	if err != nil {
		return ledger.Receipt{}, false, err
	}

	status := gjson.GetBytes(result, "status").String()
	switch status {
	case "confirmed":
		return ledger.Receipt{Ref: ref, Success: true}, true, nil
	case "rejected", "reverted":
		return ledger.Receipt{
			Ref:    ref,
			Reason: gjson.GetBytes(result, "reason").String(),
		}, true, nil
	case "pending", "":
		return ledger.Receipt{}, false, nil
	default:
		return ledger.Receipt{}, false, fmt.Errorf("unknown receipt status %q", status)
	}
}

// LookupTransaction resolves a settled transaction by reference.
func (c *Client) LookupTransaction(ctx context.Context, ref string) (ledger.TxRecord, error) {
	result, err := c.Call(ctx, "burngw_getTransaction", []interface{}{ref})
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == codeNotFound {
			return ledger.TxRecord{}, ledger.ErrNotFound
		}
		return ledger.TxRecord{}, err
	}
	if len(result) == 0 || string(result) == "null" {
		return ledger.TxRecord{}, ledger.ErrNotFound
	}

	fields := gjson.ParseBytes(result)
	return ledger.TxRecord{
		Ref:         ref,
		BlockNumber: fields.Get("blockNumber").Uint(),
		From:        fields.Get("from").String(),
		To:          fields.Get("to").String(),
		Amount:      fields.Get("amount").String(),
		Token:       fields.Get("token").String(),
		Timestamp:   time.UnixMilli(fields.Get("timestamp").Int()).UTC(),
	}, nil
}

func parseAmount(result json.RawMessage) (float64, error) {
	var raw string
	if err := json.Unmarshal(result, &raw); err != nil {
		return 0, fmt.Errorf("unmarshal amount: %w", err)
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return amount, nil
}

func parseRef(result json.RawMessage) (string, error) {
	var ref string
	if err := json.Unmarshal(result, &ref); err != nil {
		return "", fmt.Errorf("unmarshal transaction ref: %w", err)
	}
	if ref == "" {
		return "", fmt.Errorf("gateway returned empty transaction ref")
	}
	return ref, nil
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
