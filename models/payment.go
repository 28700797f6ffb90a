// models/payment.go
package models

import (
	"time"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusConfirmed = "confirmed"
	PaymentStatusFailed    = "failed"
)

// Payment is one on-chain payment attempt, keyed by transaction hash.
// The hash is the natural key — exactly one row per hash ever exists,
// no matter how many times the client reports it.
type Payment struct {
	ID            string `json:"id" gorm:"primaryKey"`
	PaymentHash   string `json:"payment_hash" gorm:"uniqueIndex;not null"`
	WalletAddress string `json:"wallet_address" gorm:"index;not null"`
	Amount        string `json:"amount" gorm:"not null"`

	// pending | confirmed | failed — transitions pending→{confirmed,failed} only
	Status string `json:"status" gorm:"default:'pending'"`

	// Receipt metadata, filled in once the transaction lands
	BlockNumber *int64 `json:"block_number,omitempty"`
	GasUsed     *int64 `json:"gas_used,omitempty"`

	// Set when the payment was made for a specific form; nil for the
	// global feedback payment
	FormID *string `json:"form_id,omitempty" gorm:"index"`

	CreatedAt   time.Time  `json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"` // set iff status=confirmed
}
