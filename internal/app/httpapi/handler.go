package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	app "github.com/blackhole-labs/burn-engine/internal/app"
	"github.com/blackhole-labs/burn-engine/internal/app/ledger"
	"github.com/blackhole-labs/burn-engine/internal/app/metrics"
	burnersvc "github.com/blackhole-labs/burn-engine/internal/app/services/burner"
	proofsvc "github.com/blackhole-labs/burn-engine/internal/app/services/proof"
)

const defaultLeaderboardLimit = 50

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a mux exposing the core REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions", h.sessions)
	mux.HandleFunc("/sessions/", h.sessionResources)
	mux.HandleFunc("/verify", h.verify)
	mux.HandleFunc("/leaderboard", h.leaderboard)
	mux.HandleFunc("/stats", h.stats)
	mux.HandleFunc("/tokens", h.tokens)
	mux.HandleFunc("/healthz", h.healthz)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func (h *handler) sessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Account string `json:"account"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(payload.Account) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("account is required"))
		return
	}

	view, err := h.app.Burner.CreateSession(r.Context(), payload.Account)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *handler) sessionResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	sessionID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		view, err := h.app.Burner.GetSession(r.Context(), sessionID)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	resource := parts[1]
	switch resource {
	case "token":
		h.selectToken(w, r, sessionID)
	case "amount":
		h.setAmount(w, r, sessionID)
	case "approval":
		h.approval(w, r, sessionID)
	case "approve":
		h.transition(w, r, sessionID, h.app.Burner.Approve)
	case "burn":
		h.transition(w, r, sessionID, h.app.Burner.Burn)
	case "abandon":
		h.transition(w, r, sessionID, h.app.Burner.Abandon)
	case "reset":
		h.transition(w, r, sessionID, h.app.Burner.Reset)
	case "history":
		h.history(w, r, sessionID)
	case "reputation":
		h.reputation(w, r, sessionID)
	case "proofs":
		h.proofs(w, r, sessionID)
	case "certificates":
		h.certificate(w, r, sessionID, parts[2:])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) selectToken(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Symbol string `json:"symbol"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := h.app.Burner.SelectToken(r.Context(), sessionID, payload.Symbol)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handler) setAmount(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Amount float64 `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := h.app.Burner.SetAmount(r.Context(), sessionID, payload.Amount)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handler) approval(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	needed, err := h.app.Burner.NeedsApproval(r.Context(), sessionID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"needed": needed})
}

func (h *handler) transition(w http.ResponseWriter, r *http.Request, sessionID string, fn func(context.Context, string) (burnersvc.View, error)) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	view, err := fn(r.Context(), sessionID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handler) history(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	records, err := h.app.Burner.History(r.Context(), sessionID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *handler) reputation(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	records, err := h.app.Burner.History(r.Context(), sessionID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, h.app.Reputation.Snapshot(records))
}

func (h *handler) proofs(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	view, err := h.app.Burner.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	records, err := h.app.Burner.History(r.Context(), sessionID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, h.app.Proofs.ProofsFor(r.Context(), view.Account, records))
}

func (h *handler) certificate(w http.ResponseWriter, r *http.Request, sessionID string, rest []string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if len(rest) != 1 || rest[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	ref := rest[0]

	view, err := h.app.Burner.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	records, err := h.app.Burner.History(r.Context(), sessionID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	for _, p := range h.app.Proofs.ProofsFor(r.Context(), view.Account, records) {
		if p.TxRef != ref {
			continue
		}
		cert := h.app.Proofs.ExportCertificate(p)
		data, err := proofsvc.MarshalCertificate(cert)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", proofsvc.CertificateFilename(p)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}
	writeError(w, http.StatusNotFound, fmt.Errorf("no burn with reference %s in this session", ref))
}

func (h *handler) verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Reference string `json:"reference"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := h.app.Proofs.Verify(r.Context(), payload.Reference)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}
	standings, err := h.app.Burner.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	stats, err := h.app.Burner.GlobalStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handler) tokens(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.app.Burner.Tokens())
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, burnersvc.ErrUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, burnersvc.ErrBurnInFlight):
		return http.StatusConflict
	case errors.Is(err, burnersvc.ErrApprovalRequired),
		errors.Is(err, burnersvc.ErrApprovalNotNeeded),
		errors.Is(err, burnersvc.ErrResetUnavailable),
		errors.Is(err, burnersvc.ErrNothingInFlight):
		return http.StatusConflict
	case errors.Is(err, proofsvc.ErrInvalidReference):
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
