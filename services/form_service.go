// services/form_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"monad-feedback-system/models"
	"monad-feedback-system/utils"
)

type FormService struct {
	DB *gorm.DB
}

func NewFormService(db *gorm.DB) *FormService {
	return &FormService{DB: db}
}

// GetFormBySlug serves the public form page: the active form plus its
// questions in display order.
func (s *FormService) GetFormBySlug(c *fiber.Ctx) error {
	formSlug := c.Params("slug")
	if formSlug == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Slug is required"})
	}

	var form models.Form
	err := s.DB.Where("slug = ? AND is_active = ?", formSlug, true).First(&form).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Form not found"})
		}
		log.Printf("Error fetching form %s: %v", formSlug, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	questions, err := formQuestions(s.DB, form.ID)
	if err != nil {
		log.Printf("Error fetching form %s: %v", formSlug, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return c.JSON(fiber.Map{
		"form":      form,
		"questions": questions,
	})
}

// CheckFormPayment reports whether the wallet paid for this specific form,
// and whether that payment covers the required amount.
func (s *FormService) CheckFormPayment(c *fiber.Ctx) error {
	var req struct {
		WalletAddress string `json:"walletAddress"`
		FormID        string `json:"formId"`
		PaymentAmount string `json:"paymentAmount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.WalletAddress == "" || req.FormID == "" || req.PaymentAmount == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing required fields"})
	}

	payment, err := ConfirmedPaymentForForm(s.DB, req.WalletAddress, req.FormID)
	if err != nil {
		log.Printf("Error checking form payment status: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	hasPayment := payment != nil && amountCovers(payment.Amount, req.PaymentAmount)
	return c.JSON(fiber.Map{"hasPayment": hasPayment})
}

// CheckFormSubmission reports whether the wallet already used its one
// submission for this form.
func (s *FormService) CheckFormSubmission(c *fiber.Ctx) error {
	var req struct {
		WalletAddress string `json:"walletAddress"`
		FormID        string `json:"formId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.WalletAddress == "" || req.FormID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing required fields"})
	}

	hasSubmitted, err := s.hasWalletSubmittedToForm(req.FormID, req.WalletAddress)
	if err != nil {
		log.Printf("Error checking form submission status: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return c.JSON(fiber.Map{"hasSubmitted": hasSubmitted})
}

// SubmitResponse re-verifies everything at write time: no prior submission,
// a confirmed form-scoped payment covering the form's amount, and every
// answer valid against its question's declared type. The composite unique
// index backstops the duplicate check under concurrent submits.
func (s *FormService) SubmitResponse(c *fiber.Ctx) error {
	var req struct {
		FormID        string                 `json:"formId"`
		Responses     map[string]interface{} `json:"responses"`
		WalletAddress string                 `json:"walletAddress"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.FormID == "" || req.Responses == nil || req.WalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing required fields"})
	}

	wallet := utils.NormalizeAddress(req.WalletAddress)

	hasSubmitted, err := s.hasWalletSubmittedToForm(req.FormID, wallet)
	if err != nil {
		log.Printf("Error submitting form response: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
	if hasSubmitted {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "You have already submitted a response to this form",
		})
	}

	payment, err := ConfirmedPaymentForForm(s.DB, wallet, req.FormID)
	if err != nil {
		log.Printf("Error submitting form response: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
	if payment == nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Payment required for this specific form to submit response",
		})
	}

	var form models.Form
	if err := s.DB.Where("id = ?", req.FormID).First(&form).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Form not found"})
		}
		log.Printf("Error submitting form response: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
	if !amountCovers(payment.Amount, form.PaymentAmount) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Payment amount is below the required amount for this form",
		})
	}

	questions, err := formQuestions(s.DB, req.FormID)
	if err != nil {
		log.Printf("Error submitting form response: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
	if len(questions) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Form not found or has no questions"})
	}

	for _, question := range questions {
		answer, present := req.Responses[question.ID]
		if !present || isEmptyAnswer(answer) {
			if question.IsRequired {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Missing required response for question: " + question.QuestionText,
				})
			}
			continue
		}
		if err := validateAnswer(question, answer); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	response := models.FormResponse{
		ID:            uuid.NewString(),
		FormID:        req.FormID,
		WalletAddress: wallet,
		ResponseData:  req.Responses,
		PaymentHash:   payment.PaymentHash,
		SubmittedAt:   time.Now().UTC(),
	}
	if err := s.DB.Create(&response).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "You have already submitted a response to this form",
			})
		}
		log.Printf("DB error creating form response: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "Response submitted successfully",
		"responseId":  response.ID,
		"submittedAt": response.SubmittedAt,
	})
}

func (s *FormService) hasWalletSubmittedToForm(formID, walletAddress string) (bool, error) {
	var count int64
	err := s.DB.Model(&models.FormResponse{}).
		Where("form_id = ? AND wallet_address = ?", formID, utils.NormalizeAddress(walletAddress)).
		Count(&count).Error
	return count > 0, err
}

func formQuestions(db *gorm.DB, formID string) ([]models.FormQuestion, error) {
	var questions []models.FormQuestion
	err := db.Where("form_id = ?", formID).Order("order_index ASC").Find(&questions).Error
	return questions, err
}

// amountCovers compares decimal token amount strings. Unparseable values
// fail closed.
func amountCovers(paid, required string) bool {
	paidVal, err1 := strconv.ParseFloat(paid, 64)
	requiredVal, err2 := strconv.ParseFloat(required, 64)
	if err1 != nil || err2 != nil {
		return false
	}
	return paidVal >= requiredVal
}

func isEmptyAnswer(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []interface{}:
		return len(val) == 0
	default:
		return false
	}
}

// validateAnswer enforces the tagged-union rule: each answer's JSON shape
// must match its question's declared type, and choice answers must come
// from the declared options.
func validateAnswer(q models.FormQuestion, answer interface{}) error {
	switch q.QuestionType {
	case models.QuestionTypeText, models.QuestionTypeTextarea:
		if _, ok := answer.(string); !ok {
			return fmt.Errorf("answer for %q must be text", q.QuestionText)
		}
	case models.QuestionTypeSelect, models.QuestionTypeRadio:
		choice, ok := answer.(string)
		if !ok {
			return fmt.Errorf("answer for %q must be a single choice", q.QuestionText)
		}
		if !optionAllowed(q.QuestionOptions, choice) {
			return fmt.Errorf("answer for %q is not one of the allowed options", q.QuestionText)
		}
	case models.QuestionTypeCheckbox:
		choices, ok := answer.([]interface{})
		if !ok {
			return fmt.Errorf("answer for %q must be a list of choices", q.QuestionText)
		}
		for _, item := range choices {
			choice, ok := item.(string)
			if !ok || !optionAllowed(q.QuestionOptions, choice) {
				return fmt.Errorf("answer for %q contains an option that is not allowed", q.QuestionText)
			}
		}
	}
	return nil
}

func optionAllowed(options []string, choice string) bool {
	for _, opt := range options {
		if opt == choice {
			return true
		}
	}
	return false
}
