// models/admin.go
package models

import "time"

// Admin maps a wallet address to admin status. A wallet is an admin iff a
// row with status=confirmed exists — created once after the admin-fee
// payment confirms, never updated after that.
type Admin struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	WalletAddress string    `json:"wallet_address" gorm:"uniqueIndex;not null"`
	PaymentHash   string    `json:"payment_hash" gorm:"not null"`
	Amount        string    `json:"amount"`
	Status        string    `json:"status" gorm:"default:'confirmed'"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
