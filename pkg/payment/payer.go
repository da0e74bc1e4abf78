package payment

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"

	"github.com/solvent-ai/solvent/pkg/models"
)

// Sign fills the Signature field of a payment payload with the payer's
// ECDSA signature over the canonical digest. Client-side helper for payers
// constructing X-Payment assertions.
func Sign(p *models.PaymentPayload, key *ecdsa.PrivateKey) error {
	digest := Digest(*p)
	sig, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		return fmt.Errorf("sign payment: %w", err)
	}
	p.Signature = hex.EncodeToString(sig)
	return nil
}

// MarshalPublicKey encodes an ECDSA public key as PKIX PEM, the format the
// gate's payer_keys configuration expects.
func MarshalPublicKey(key *ecdsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}
