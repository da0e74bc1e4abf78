package payment

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solvent-ai/solvent/pkg/models"
)

// Verification failure classes. Each terminates the request without earnings.
var (
	ErrSchemeMismatch = errors.New("unsupported payment scheme")
	ErrWrongNetwork   = errors.New("payment for wrong network")
	ErrWrongRecipient = errors.New("payment addressed to wrong recipient")
	ErrUnknownPayer   = errors.New("unknown payer key")
	ErrBadSignature   = errors.New("payment signature invalid")
	ErrAmountShort    = errors.New("payment amount below required")
	ErrExpired        = errors.New("payment deadline elapsed")
	ErrReplayed       = errors.New("payment nonce already redeemed")
)

// ReplayStore marks nonces as spent. Redeem returns false when the nonce was
// already redeemed.
type ReplayStore interface {
	Redeem(ctx context.Context, nonce string) (bool, error)
}

// Verifier checks payment assertions against configured terms, trusted payer
// keys, and the replay store. The source system this design descends from
// trusted any well-formed assertion; this verifier closes that gap.
type Verifier struct {
	terms  Terms
	keys   map[string]*ecdsa.PublicKey
	replay ReplayStore
	now    func() time.Time
}

// NewVerifier parses the trusted payer keys and returns a Verifier.
func NewVerifier(terms Terms, payerKeys map[string]string, replay ReplayStore) (*Verifier, error) {
	keys := make(map[string]*ecdsa.PublicKey, len(payerKeys))
	for id, pemStr := range payerKeys {
		key, err := ParsePublicKey(pemStr)
		if err != nil {
			return nil, fmt.Errorf("payer key %q: %w", id, err)
		}
		keys[id] = key
	}
	return &Verifier{terms: terms, keys: keys, replay: replay, now: time.Now}, nil
}

// ParsePublicKey decodes a PEM-encoded PKIX ECDSA public key.
func ParsePublicKey(pemStr string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	ecKey, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("not an ECDSA public key")
	}
	return ecKey, nil
}

// Digest is the canonical SHA-256 hash a payment signature covers.
func Digest(p models.PaymentPayload) [32]byte {
	canonical := fmt.Sprintf("%s|%s|%s|%s|%s|%d",
		p.Scheme, p.Network, p.PayTo, p.Amount, p.Nonce, p.ValidUntil)
	return sha256.Sum256([]byte(canonical))
}

// Verify checks the assertion end to end: scheme, network, recipient,
// signature, amount, deadline, and replay. On success the nonce is marked
// redeemed so the same assertion can never buy a second service call.
func (v *Verifier) Verify(ctx context.Context, p models.PaymentPayload, requiredAtomic decimal.Decimal) error {
	if p.Scheme != SchemeExact {
		return ErrSchemeMismatch
	}
	if p.Network != v.terms.Network {
		return ErrWrongNetwork
	}
	if p.PayTo != v.terms.PayToAddress {
		return ErrWrongRecipient
	}

	key, ok := v.keys[p.PayerKeyID]
	if !ok {
		return ErrUnknownPayer
	}
	sig, err := hex.DecodeString(p.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	digest := Digest(p)
	if !ecdsa.VerifyASN1(key, digest[:], sig) {
		return ErrBadSignature
	}

	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return fmt.Errorf("%w: bad amount %q", ErrAmountShort, p.Amount)
	}
	if amount.LessThan(requiredAtomic) {
		return ErrAmountShort
	}

	if v.now().UTC().Unix() > p.ValidUntil {
		return ErrExpired
	}

	fresh, err := v.replay.Redeem(ctx, p.Nonce)
	if err != nil {
		return fmt.Errorf("check replay: %w", err)
	}
	if !fresh {
		return ErrReplayed
	}
	return nil
}
