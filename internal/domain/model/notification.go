package model

// PaymentNotification is the canonical shape every provider webhook is
// normalized into before it touches the ledger.
//
// Two metadata-acquisition strategies exist:
//   - referenced: the provider only carries PaymentID; the business metadata
//     is looked up from the pending transaction (YooKassa, TON).
//   - embedded: the provider payload itself carries the full metadata
//     (CryptoBot colon payload, Heleket description JSON); Metadata is
//     non-nil and already validated by the normalizer.
type PaymentNotification struct {
	PaymentID string
	Amount    float64
	Currency  string
	Method    string
	Metadata  *PaymentMetadata
}
