// models/feedback.go
package models

import "time"

const (
	FeedbackCategoryDev       = "dev"
	FeedbackCategoryCommunity = "community"
)

// MaxFeedbackLength is the hard cap on feedback text, in characters.
const MaxFeedbackLength = 1000

// Feedback is a single free-form submission, one per wallet globally.
// The wallet address is always stored — anonymity is applied at read time
// (see FeedbackPublic), never at write time.
//
// IsAnonymous carries no column default: gorm drops zero-value fields that
// have one, which would turn an explicit opt-out (false) back into true.
// The anonymous-by-default rule lives in SubmitFeedback instead.
type Feedback struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	Feedback      string    `json:"feedback" gorm:"not null"`
	Category      string    `json:"category" gorm:"not null"`
	WalletAddress string    `json:"wallet_address" gorm:"uniqueIndex;not null"`
	PaymentHash   string    `json:"payment_hash" gorm:"not null"`
	IsAnonymous   bool      `json:"is_anonymous"`
	CreatedAt     time.Time `json:"created_at"`
}

// FeedbackPublic is the read-side projection: wallet_address is nulled when
// the row is anonymous, regardless of what storage holds.
type FeedbackPublic struct {
	ID            string    `json:"id"`
	Feedback      string    `json:"feedback"`
	Category      string    `json:"category"`
	WalletAddress *string   `json:"wallet_address"`
	IsAnonymous   bool      `json:"is_anonymous"`
	CreatedAt     time.Time `json:"created_at"`
}

// Public converts a stored row to its redacted projection.
func (f *Feedback) Public() FeedbackPublic {
	out := FeedbackPublic{
		ID:          f.ID,
		Feedback:    f.Feedback,
		Category:    f.Category,
		IsAnonymous: f.IsAnonymous,
		CreatedAt:   f.CreatedAt,
	}
	if !f.IsAnonymous {
		addr := f.WalletAddress
		out.WalletAddress = &addr
	}
	return out
}
