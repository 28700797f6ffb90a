// models/form.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	QuestionTypeText     = "text"
	QuestionTypeTextarea = "textarea"
	QuestionTypeSelect   = "select"
	QuestionTypeRadio    = "radio"
	QuestionTypeCheckbox = "checkbox"
)

// MaxRadioOptions caps radio groups so they stay renderable as a single row.
const MaxRadioOptions = 4

// Form is an admin-created questionnaire reachable by slug. Forms are not
// updated or deleted in the current scope — is_active exists so a form can
// be retired without breaking payment/response references. No column
// default on IsActive: gorm would drop an explicit false at insert, making
// a retired form unrepresentable. CreateForm sets it.
type Form struct {
	ID                 string    `json:"id" gorm:"primaryKey"`
	Name               string    `json:"name" gorm:"not null"`
	Slug               string    `json:"slug" gorm:"uniqueIndex;not null"`
	Title              string    `json:"title" gorm:"not null"`
	Description        string    `json:"description"`
	PaymentAmount      string    `json:"payment_amount" gorm:"not null"`
	AdminWalletAddress string    `json:"admin_wallet_address" gorm:"index;not null"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// FormQuestion is immutable once created alongside its form. OrderIndex
// defines display order; options are required for choice types.
type FormQuestion struct {
	ID              string                      `json:"id" gorm:"primaryKey"`
	FormID          string                      `json:"form_id" gorm:"index;not null"`
	QuestionText    string                      `json:"question_text" gorm:"not null"`
	QuestionType    string                      `json:"question_type" gorm:"default:'text'"`
	QuestionOptions datatypes.JSONSlice[string] `json:"question_options,omitempty"`
	IsRequired      bool                        `json:"is_required"`
	OrderIndex      int                         `json:"order_index"`
	CreatedAt       time.Time                   `json:"created_at"`
}

// FormResponse holds one wallet's answers to one form, keyed by question id.
// The composite unique index is the authoritative one-response-per-wallet
// guard — the pre-insert existence check is only a fast path.
type FormResponse struct {
	ID            string            `json:"id" gorm:"primaryKey"`
	FormID        string            `json:"form_id" gorm:"uniqueIndex:idx_form_wallet;not null"`
	WalletAddress string            `json:"wallet_address" gorm:"uniqueIndex:idx_form_wallet;not null"`
	ResponseData  datatypes.JSONMap `json:"response_data"`
	PaymentHash   string            `json:"payment_hash" gorm:"not null"`
	SubmittedAt   time.Time         `json:"submitted_at"`
}
