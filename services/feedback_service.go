// services/feedback_service.go
package services

import (
	"errors"
	"log"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"monad-feedback-system/models"
	"monad-feedback-system/utils"
)

type FeedbackService struct {
	DB *gorm.DB
}

func NewFeedbackService(db *gorm.DB) *FeedbackService {
	return &FeedbackService{DB: db}
}

var allowedCategories = []string{models.FeedbackCategoryDev, models.FeedbackCategoryCommunity}

// SubmitFeedback accepts one feedback per wallet, globally, gated by a
// confirmed payment. The pre-checks are the fast path; the unique index on
// wallet_address is the authoritative duplicate guard.
func (s *FeedbackService) SubmitFeedback(c *fiber.Ctx) error {
	var req struct {
		Feedback      string `json:"feedback"`
		Category      string `json:"category"`
		WalletAddress string `json:"walletAddress"`
		IsAnonymous   *bool  `json:"isAnonymous"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Feedback == "" || req.Category == "" || req.WalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Feedback, category, and wallet address are required",
		})
	}

	validCategory := false
	for _, cat := range allowedCategories {
		if req.Category == cat {
			validCategory = true
			break
		}
	}
	if !validCategory {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid category. Must be one of: " + strings.Join(allowedCategories, ", "),
		})
	}

	if utf8.RuneCountInString(req.Feedback) > models.MaxFeedbackLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Feedback must be 1000 characters or less",
		})
	}

	wallet := utils.NormalizeAddress(req.WalletAddress)

	hasSubmitted, err := s.hasWalletSubmittedFeedback(wallet)
	if err != nil {
		log.Printf("Error submitting feedback: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to submit feedback",
			"details": err.Error(),
		})
	}
	if hasSubmitted {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "You have already submitted feedback. Only one feedback submission per wallet is allowed.",
		})
	}

	confirmedPayment, err := ConfirmedPaymentForWallet(s.DB, wallet)
	if err != nil {
		log.Printf("Error submitting feedback: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to submit feedback",
			"details": err.Error(),
		})
	}
	if confirmedPayment == nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "No confirmed payment found for this wallet. Payment required to submit feedback.",
		})
	}

	isAnonymous := true // default to anonymous unless the user opted out
	if req.IsAnonymous != nil {
		isAnonymous = *req.IsAnonymous
	}

	feedback := models.Feedback{
		ID:            uuid.NewString(),
		Feedback:      strings.TrimSpace(req.Feedback),
		Category:      req.Category,
		WalletAddress: wallet,
		PaymentHash:   confirmedPayment.PaymentHash,
		IsAnonymous:   isAnonymous,
	}
	if err := s.DB.Create(&feedback).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "You have already submitted feedback. Only one feedback submission per wallet is allowed.",
			})
		}
		log.Printf("DB error creating feedback: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to submit feedback",
			"details": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"feedbackId": feedback.ID,
		"message":    "Feedback submitted successfully",
	})
}

// CheckFeedbackStatus reports whether the wallet already used its one
// feedback slot.
func (s *FeedbackService) CheckFeedbackStatus(c *fiber.Ctx) error {
	var req struct {
		WalletAddress string `json:"walletAddress"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.WalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Wallet address is required"})
	}

	var feedback models.Feedback
	err := s.DB.Where("wallet_address = ?", utils.NormalizeAddress(req.WalletAddress)).
		First(&feedback).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(fiber.Map{
				"hasSubmittedFeedback": false,
				"feedbackId":           nil,
				"submittedAt":          nil,
			})
		}
		log.Printf("Error checking feedback status: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to check feedback status",
			"details": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"hasSubmittedFeedback": true,
		"feedbackId":           feedback.ID,
		"submittedAt":          feedback.CreatedAt,
	})
}

// GetResponses lists feedback with filtering and pagination. Anonymous rows
// get their wallet address nulled at read time — storage always retains it.
func (s *FeedbackService) GetResponses(c *fiber.Ctx) error {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := s.DB.Model(&models.Feedback{})
	if category := c.Query("category"); category != "" && category != "all" {
		query = query.Where("category = ?", category)
	}
	if anonymous := c.Query("anonymous"); anonymous != "" && anonymous != "all" {
		query = query.Where("is_anonymous = ?", anonymous == "true")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Printf("Error fetching responses: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to fetch responses",
			"details": err.Error(),
		})
	}

	var rows []models.Feedback
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		log.Printf("Error fetching responses: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to fetch responses",
			"details": err.Error(),
		})
	}

	responses := make([]models.FeedbackPublic, 0, len(rows))
	for i := range rows {
		responses = append(responses, rows[i].Public())
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"responses":  responses,
		"total":      total,
		"page":       page,
		"totalPages": int(math.Ceil(float64(total) / float64(limit))),
		"hasNext":    int64(offset+limit) < total,
		"hasPrev":    page > 1,
	})
}

func (s *FeedbackService) hasWalletSubmittedFeedback(wallet string) (bool, error) {
	var count int64
	err := s.DB.Model(&models.Feedback{}).
		Where("wallet_address = ?", utils.NormalizeAddress(wallet)).
		Count(&count).Error
	return count > 0, err
}
