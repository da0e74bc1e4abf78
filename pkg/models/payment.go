package models

import "github.com/shopspring/decimal"

// X402Version is the challenge protocol version advertised by the gate.
const X402Version = 1

// PaymentChallenge is the structured body of the X-Payment-Required header,
// constructed per unmatched request and never persisted.
type PaymentChallenge struct {
	X402Version int                  `json:"x402Version"`
	Accepts     []PaymentRequirement `json:"accepts"`
}

// PaymentRequirement describes one acceptable way to pay for a service.
type PaymentRequirement struct {
	Scheme                  string `json:"scheme"`
	Network                 string `json:"network"`
	MaxAmountRequired       string `json:"maxAmountRequired"`
	PayToAddress            string `json:"payToAddress"`
	RequiredDeadlineSeconds int    `json:"requiredDeadlineSeconds"`
	USDCAddress             string `json:"usdcAddress"`
}

// PaymentPayload is the JSON assertion a payer presents in the X-Payment
// header. Amount is in atomic units (1e-6 USDC). Signature covers the
// canonical digest of scheme|network|payTo|amount|nonce|validUntil.
type PaymentPayload struct {
	Scheme     string `json:"scheme"`
	Network    string `json:"network"`
	PayTo      string `json:"payTo"`
	Amount     string `json:"amount"`
	Nonce      string `json:"nonce"`
	ValidUntil int64  `json:"validUntil"`
	PayerKeyID string `json:"payerKeyId"`
	Signature  string `json:"signature"`
}

// ServiceInfo is one catalog entry as advertised by GET /services.
type ServiceInfo struct {
	Path        string          `json:"path"`
	Description string          `json:"description"`
	PriceUSDC   decimal.Decimal `json:"priceUsdc"`
}

// ServiceList is the GET /services response.
type ServiceList struct {
	Services       []ServiceInfo `json:"services"`
	PaymentAddress string        `json:"paymentAddress"`
	Network        string        `json:"network"`
}
