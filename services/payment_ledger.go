// services/payment_ledger.go
package services

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"monad-feedback-system/models"
	"monad-feedback-system/utils"
)

// Payment ledger queries shared across services. Every write is a single
// atomic statement — no transaction ever spans two of these calls.

// FindPaymentByHash returns nil, nil when the hash is unknown.
func FindPaymentByHash(db *gorm.DB, paymentHash string) (*models.Payment, error) {
	var payment models.Payment
	if err := db.Where("payment_hash = ?", paymentHash).First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

type CreatePaymentInput struct {
	PaymentHash   string
	WalletAddress string
	Amount        string
	Status        string
	BlockNumber   *int64
	GasUsed       *int64
	FormID        *string
}

// CreatePayment inserts a new ledger row. Status defaults to pending;
// confirmed_at is set iff the initial status is already confirmed (the
// client may only report after the receipt landed).
func CreatePayment(db *gorm.DB, in CreatePaymentInput) (*models.Payment, error) {
	status := in.Status
	if status == "" {
		status = models.PaymentStatusPending
	}

	payment := models.Payment{
		ID:            uuid.NewString(),
		PaymentHash:   in.PaymentHash,
		WalletAddress: utils.NormalizeAddress(in.WalletAddress),
		Amount:        in.Amount,
		Status:        status,
		BlockNumber:   in.BlockNumber,
		GasUsed:       in.GasUsed,
		FormID:        in.FormID,
	}
	if status == models.PaymentStatusConfirmed {
		now := time.Now().UTC()
		payment.ConfirmedAt = &now
	}

	if err := db.Create(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

type PaymentUpdate struct {
	Status      *string
	BlockNumber *int64
	GasUsed     *int64
}

// UpdatePaymentByHash applies the poller outcome to an existing row.
// confirmed_at is stamped iff the new status is confirmed. Unknown hashes
// return gorm.ErrRecordNotFound.
func UpdatePaymentByHash(db *gorm.DB, paymentHash string, upd PaymentUpdate) (*models.Payment, error) {
	updates := map[string]interface{}{}
	if upd.Status != nil {
		updates["status"] = *upd.Status
		if *upd.Status == models.PaymentStatusConfirmed {
			updates["confirmed_at"] = time.Now().UTC()
		}
	}
	if upd.BlockNumber != nil {
		updates["block_number"] = *upd.BlockNumber
	}
	if upd.GasUsed != nil {
		updates["gas_used"] = *upd.GasUsed
	}

	if len(updates) > 0 {
		res := db.Model(&models.Payment{}).Where("payment_hash = ?", paymentHash).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}

	var payment models.Payment
	if err := db.Where("payment_hash = ?", paymentHash).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// ConfirmedPaymentForWallet returns the wallet's most recent confirmed
// payment, or nil, nil when there is none.
func ConfirmedPaymentForWallet(db *gorm.DB, walletAddress string) (*models.Payment, error) {
	var payment models.Payment
	err := db.Where("wallet_address = ? AND status = ?",
		utils.NormalizeAddress(walletAddress), models.PaymentStatusConfirmed).
		Order("confirmed_at DESC").
		First(&payment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// ConfirmedPaymentForForm is the form-scoped variant.
func ConfirmedPaymentForForm(db *gorm.DB, walletAddress, formID string) (*models.Payment, error) {
	var payment models.Payment
	err := db.Where("wallet_address = ? AND form_id = ? AND status = ?",
		utils.NormalizeAddress(walletAddress), formID, models.PaymentStatusConfirmed).
		Order("confirmed_at DESC").
		First(&payment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// HasConfirmedPayment reports whether any confirmed payment exists for the
// wallet, regardless of form.
func HasConfirmedPayment(db *gorm.DB, walletAddress string) (bool, error) {
	payment, err := ConfirmedPaymentForWallet(db, walletAddress)
	if err != nil {
		return false, err
	}
	return payment != nil, nil
}

// HasConfirmedPaymentForForm reports whether a confirmed payment exists for
// the wallet on this specific form.
func HasConfirmedPaymentForForm(db *gorm.DB, walletAddress, formID string) (bool, error) {
	payment, err := ConfirmedPaymentForForm(db, walletAddress, formID)
	if err != nil {
		return false, err
	}
	return payment != nil, nil
}
