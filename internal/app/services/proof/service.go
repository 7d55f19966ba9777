// Package proof derives verifiable fingerprints for confirmed burns and
// validates externally supplied transaction references.
package proof

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/blackhole-labs/burn-engine/internal/app/domain/burn"
	"github.com/blackhole-labs/burn-engine/internal/app/domain/proof"
	"github.com/blackhole-labs/burn-engine/internal/app/ledger"
	"github.com/blackhole-labs/burn-engine/internal/app/metrics"
	reputationsvc "github.com/blackhole-labs/burn-engine/internal/app/services/reputation"
	"github.com/blackhole-labs/burn-engine/pkg/logger"
)

// ErrInvalidReference rejects malformed transaction references before any
// ledger lookup. Unknown-but-well-formed references yield ledger.ErrNotFound.
var ErrInvalidReference = errors.New("invalid transaction reference format")

// referencePattern is the ledger's canonical reference shape: 0x followed by
// 64 hex digits.
var referencePattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// Service generates and verifies burn proofs.
type Service struct {
	gateway ledger.Gateway
	log     *logger.Logger
	now     func() time.Time
}

// New constructs a proof service.
func New(gateway ledger.Gateway, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("proof")
	}
	return &Service{gateway: gateway, log: log, now: time.Now}
}

// Fingerprint computes the deterministic proof hash over the canonical field
// concatenation. Same inputs always produce the same output; any field
// change produces a different one.
func Fingerprint(txRef, amount, token string, ts time.Time, burner string) string {
	canonical := fmt.Sprintf("%s-%s-%s-%d-%s", txRef, amount, token, ts.UTC().UnixMilli(), burner)
	digest := sha3.NewLegacyKeccak256()
	digest.Write([]byte(canonical))
	return "0x" + hex.EncodeToString(digest.Sum(nil))
}

// FromRecord builds the locally-verified proof for a confirmed burn. Block
// number comes from the ledger lookup; a gateway miss leaves it zero without
// failing the proof, since the burn itself was confirmed locally.
func (s *Service) FromRecord(ctx context.Context, burner string, rec burn.Record) proof.Proof {
	amount := formatAmount(rec.Amount)

	var blockNumber uint64
	if tx, err := s.gateway.LookupTransaction(ctx, rec.TxRef); err == nil {
		blockNumber = tx.BlockNumber
	} else if !errors.Is(err, ledger.ErrNotFound) {
		s.log.WithError(err).WithField("tx_ref", rec.TxRef).Warn("block lookup failed")
	}

	return proof.Proof{
		TxRef:         rec.TxRef,
		Amount:        amount,
		Token:         rec.Token,
		Timestamp:     rec.Timestamp,
		BlockNumber:   blockNumber,
		BurnerAddress: burner,
		Fingerprint:   Fingerprint(rec.TxRef, amount, rec.Token, rec.Timestamp, burner),
		Verified:      true,
	}
}

// ProofsFor derives proofs for every record in the session history.
func (s *Service) ProofsFor(ctx context.Context, burner string, history []burn.Record) []proof.Proof {
	proofs := make([]proof.Proof, 0, len(history))
	for _, rec := range history {
		proofs = append(proofs, s.FromRecord(ctx, burner, rec))
	}
	return proofs
}

// Verify checks an externally supplied transaction reference. Malformed
// references fail fast with ErrInvalidReference and no lookup; well-formed
// but unknown references return ledger.ErrNotFound.
func (s *Service) Verify(ctx context.Context, reference string) (proof.Proof, error) {
	if !referencePattern.MatchString(reference) {
		metrics.RecordVerification("invalid_reference")
		return proof.Proof{}, fmt.Errorf("%w: %q", ErrInvalidReference, reference)
	}

	tx, err := s.gateway.LookupTransaction(ctx, reference)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			metrics.RecordVerification("not_found")
			return proof.Proof{}, err
		}
		metrics.RecordVerification("error")
		return proof.Proof{}, fmt.Errorf("lookup transaction: %w", err)
	}

	metrics.RecordVerification("verified")
	return proof.Proof{
		TxRef:         reference,
		Amount:        tx.Amount,
		Token:         tx.Token,
		Timestamp:     tx.Timestamp,
		BlockNumber:   tx.BlockNumber,
		BurnerAddress: tx.From,
		Fingerprint:   Fingerprint(reference, tx.Amount, tx.Token, tx.Timestamp, tx.From),
		Verified:      true,
	}, nil
}

// ExportCertificate renders the portable certificate for a proof. The output
// is stable for a given proof except for the generation timestamp.
func (s *Service) ExportCertificate(p proof.Proof) proof.Certificate {
	var contribution int64
	if amount, err := strconv.ParseFloat(p.Amount, 64); err == nil {
		contribution = reputationsvc.PointsFor(amount)
	}

	return proof.Certificate{
		Type:    proof.CertificateType,
		Version: proof.CertificateVersion,
		Proof: proof.CertificateProof{
			TransactionHash: p.TxRef,
			Amount:          p.Amount,
			Token:           p.Token,
			Timestamp:       p.Timestamp.UTC().UnixMilli(),
			BlockNumber:     p.BlockNumber,
			BurnerAddress:   p.BurnerAddress,
			ProofHash:       p.Fingerprint,
		},
		Metadata: proof.CertificateMetadata{
			GeneratedAt: s.now().UTC(),
			Reputation:  contribution,
			Verified:    p.Verified,
		},
	}
}

// MarshalCertificate serializes a certificate for download.
func MarshalCertificate(cert proof.Certificate) ([]byte, error) {
	return json.MarshalIndent(cert, "", "  ")
}

// CertificateFilename suggests the download name for a proof's certificate.
func CertificateFilename(p proof.Proof) string {
	ref := p.TxRef
	if len(ref) > 10 {
		ref = ref[:10]
	}
	return "burn-certificate-" + ref + ".json"
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
