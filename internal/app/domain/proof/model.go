// Package proof defines the verifiable burn proof and its exportable
// certificate form.
package proof

import "time"

// Proof is the derived verification artifact for one burn. Fingerprint is a
// pure function of the other transaction fields plus the burner identity.
type Proof struct {
	TxRef         string    `json:"txHash"`
	Amount        string    `json:"amount"`
	Token         string    `json:"token"`
	Timestamp     time.Time `json:"timestamp"`
	BlockNumber   uint64    `json:"blockNumber"`
	BurnerAddress string    `json:"burnerAddress"`
	Fingerprint   string    `json:"proofHash"`
	Verified      bool      `json:"verified"`
}

// CertificateType and CertificateVersion identify the export format. The
// field shape below is the compatibility surface for external verifiers.
const (
	CertificateType    = "Burn Certificate"
	CertificateVersion = "1.0"
)

// Certificate is the durable, shareable export of a proof.
type Certificate struct {
	Type     string              `json:"type"`
	Version  string              `json:"version"`
	Proof    CertificateProof    `json:"proof"`
	Metadata CertificateMetadata `json:"metadata"`
}

// CertificateProof carries the proof fields under their wire names.
type CertificateProof struct {
	TransactionHash string `json:"transactionHash"`
	Amount          string `json:"amount"`
	Token           string `json:"token"`
	Timestamp       int64  `json:"timestamp"`
	BlockNumber     uint64 `json:"blockNumber"`
	BurnerAddress   string `json:"burnerAddress"`
	ProofHash       string `json:"proofHash"`
}

// CertificateMetadata holds generation context. Reputation is the score
// contribution of the burn, floor(amount*100).
type CertificateMetadata struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Reputation  int64     `json:"reputation"`
	Verified    bool      `json:"verified"`
}
