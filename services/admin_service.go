// services/admin_service.go
package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"monad-feedback-system/models"
	"monad-feedback-system/utils"
)

type AdminService struct {
	DB *gorm.DB
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{DB: db}
}

// IsAdmin is true iff a confirmed admin row exists for the wallet,
// case-insensitive.
func (s *AdminService) IsAdmin(walletAddress string) (bool, error) {
	var count int64
	err := s.DB.Model(&models.Admin{}).
		Where("wallet_address = ? AND status = ?", utils.NormalizeAddress(walletAddress), "confirmed").
		Count(&count).Error
	return count > 0, err
}

// CheckStatus answers the admin gate for the UI.
func (s *AdminService) CheckStatus(c *fiber.Ctx) error {
	var req struct {
		WalletAddress string `json:"walletAddress"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.WalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Wallet address is required"})
	}

	isAdmin, err := s.IsAdmin(req.WalletAddress)
	if err != nil {
		log.Printf("Error checking admin status: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return c.JSON(fiber.Map{"isAdmin": isAdmin})
}

// CreateAdmin registers a wallet as admin after its admin-fee payment. The
// client verified the payment confirmed; the registry still rejects a wallet
// that is already admin.
func (s *AdminService) CreateAdmin(c *fiber.Ctx) error {
	var req struct {
		WalletAddress string `json:"walletAddress"`
		PaymentHash   string `json:"paymentHash"`
		Amount        string `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.WalletAddress == "" || req.PaymentHash == "" || req.Amount == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing required fields"})
	}

	isAlreadyAdmin, err := s.IsAdmin(req.WalletAddress)
	if err != nil {
		log.Printf("Error creating admin: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
	if isAlreadyAdmin {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Wallet is already an admin"})
	}

	admin := models.Admin{
		ID:            uuid.NewString(),
		WalletAddress: utils.NormalizeAddress(req.WalletAddress),
		PaymentHash:   req.PaymentHash,
		Amount:        req.Amount,
		Status:        "confirmed",
	}
	if err := s.DB.Create(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Wallet is already an admin"})
		}
		log.Printf("DB error creating admin: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Admin created successfully",
		"admin": fiber.Map{
			"id":            admin.ID,
			"walletAddress": admin.WalletAddress,
			"createdAt":     admin.CreatedAt,
		},
	})
}

// ListForms returns the admin's forms, newest first.
func (s *AdminService) ListForms(c *fiber.Ctx) error {
	var req struct {
		WalletAddress string `json:"walletAddress"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.WalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Wallet address is required"})
	}

	isAdmin, err := s.IsAdmin(req.WalletAddress)
	if err != nil {
		log.Printf("Error fetching admin forms: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
	if !isAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied. Admin privileges required."})
	}

	forms, err := s.formsByAdmin(req.WalletAddress)
	if err != nil {
		log.Printf("Error fetching admin forms: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return c.JSON(fiber.Map{"forms": forms})
}

type createQuestionInput struct {
	QuestionText    string   `json:"questionText"`
	QuestionType    string   `json:"questionType"`
	QuestionOptions []string `json:"questionOptions"`
	IsRequired      bool     `json:"isRequired"`
	OrderIndex      *int     `json:"orderIndex"`
}

// CreateForm creates a form and its ordered questions. Slug uniqueness is
// pre-checked for a friendly 409; the unique constraint is the backstop.
func (s *AdminService) CreateForm(c *fiber.Ctx) error {
	var req struct {
		Name               string                `json:"name"`
		Slug               string                `json:"slug"`
		Title              string                `json:"title"`
		Description        string                `json:"description"`
		PaymentAmount      string                `json:"paymentAmount"`
		AdminWalletAddress string                `json:"adminWalletAddress"`
		Questions          []createQuestionInput `json:"questions"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" || req.Slug == "" || req.Title == "" || req.PaymentAmount == "" || req.AdminWalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing required fields"})
	}
	if len(req.Questions) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "At least one question is required"})
	}

	isAdmin, err := s.IsAdmin(req.AdminWalletAddress)
	if err != nil {
		log.Printf("Error creating form: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
	if !isAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied. Admin privileges required."})
	}

	formSlug := slug.Make(req.Slug)
	if formSlug == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid slug"})
	}

	var existing models.Form
	err = s.DB.Where("slug = ? AND is_active = ?", formSlug, true).First(&existing).Error
	if err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Form slug already exists. Please choose a different one.",
		})
	}
	if err != gorm.ErrRecordNotFound {
		log.Printf("Error creating form: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	for _, q := range req.Questions {
		if q.QuestionText == "" {
			continue
		}
		if err := validateQuestionDefinition(q); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	form := models.Form{
		ID:                 uuid.NewString(),
		Name:               req.Name,
		Slug:               formSlug,
		Title:              req.Title,
		Description:        req.Description,
		PaymentAmount:      req.PaymentAmount,
		AdminWalletAddress: utils.NormalizeAddress(req.AdminWalletAddress),
		IsActive:           true,
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&form).Error; err != nil {
			return err
		}
		for i, q := range req.Questions {
			if q.QuestionText == "" {
				continue // skip empty questions
			}
			questionType := q.QuestionType
			if questionType == "" {
				questionType = models.QuestionTypeText
			}
			orderIndex := i
			if q.OrderIndex != nil {
				orderIndex = *q.OrderIndex
			}
			question := models.FormQuestion{
				ID:              uuid.NewString(),
				FormID:          form.ID,
				QuestionText:    q.QuestionText,
				QuestionType:    questionType,
				QuestionOptions: q.QuestionOptions,
				IsRequired:      q.IsRequired,
				OrderIndex:      orderIndex,
			}
			if err := tx.Create(&question).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Form slug already exists. Please choose a different one.",
			})
		}
		log.Printf("DB error creating form: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Form created successfully",
		"form": fiber.Map{
			"id":            form.ID,
			"name":          form.Name,
			"slug":          form.Slug,
			"title":         form.Title,
			"description":   form.Description,
			"paymentAmount": form.PaymentAmount,
			"createdAt":     form.CreatedAt,
		},
	})
}

func validateQuestionDefinition(q createQuestionInput) error {
	switch q.QuestionType {
	case "", models.QuestionTypeText, models.QuestionTypeTextarea:
		return nil
	case models.QuestionTypeSelect, models.QuestionTypeCheckbox:
		if len(q.QuestionOptions) == 0 {
			return fmt.Errorf("question %q requires at least one option", q.QuestionText)
		}
	case models.QuestionTypeRadio:
		if len(q.QuestionOptions) == 0 {
			return fmt.Errorf("question %q requires at least one option", q.QuestionText)
		}
		if len(q.QuestionOptions) > models.MaxRadioOptions {
			return fmt.Errorf("question %q has too many radio options (max %d)", q.QuestionText, models.MaxRadioOptions)
		}
	default:
		return fmt.Errorf("question %q has unknown type %q", q.QuestionText, q.QuestionType)
	}
	return nil
}

// FormResponses returns a form's questions and responses to its owner.
func (s *AdminService) FormResponses(c *fiber.Ctx) error {
	var req struct {
		FormID        string `json:"formId"`
		WalletAddress string `json:"walletAddress"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.FormID == "" || req.WalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Form ID and wallet address are required"})
	}

	form, status, err := s.ownedForm(req.WalletAddress, req.FormID)
	if err != nil {
		if status == fiber.StatusInternalServerError {
			log.Printf("Error fetching form responses: %v", err)
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	var responses []models.FormResponse
	if err := s.DB.Where("form_id = ?", form.ID).Order("submitted_at DESC").Find(&responses).Error; err != nil {
		log.Printf("Error fetching form responses: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to fetch form responses",
			"details": err.Error(),
		})
	}

	questions, err := formQuestions(s.DB, form.ID)
	if err != nil {
		log.Printf("Error fetching form responses: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to fetch form responses",
			"details": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"form":      form,
		"questions": questions,
		"responses": responses,
		"total":     len(responses),
	})
}

// ExportResponses writes a CSV snapshot of a form's responses to R2 and
// returns the public URL.
func (s *AdminService) ExportResponses(c *fiber.Ctx) error {
	var req struct {
		FormID        string `json:"formId"`
		WalletAddress string `json:"walletAddress"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.FormID == "" || req.WalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Form ID and wallet address are required"})
	}

	form, status, err := s.ownedForm(req.WalletAddress, req.FormID)
	if err != nil {
		if status == fiber.StatusInternalServerError {
			log.Printf("Error exporting responses: %v", err)
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	questions, err := formQuestions(s.DB, form.ID)
	if err != nil {
		log.Printf("Error exporting responses: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	var responses []models.FormResponse
	if err := s.DB.Where("form_id = ?", form.ID).Order("submitted_at ASC").Find(&responses).Error; err != nil {
		log.Printf("Error exporting responses: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	data, err := responsesToCSV(questions, responses)
	if err != nil {
		log.Printf("Error exporting responses: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	key := fmt.Sprintf("exports/%s-%d.csv", form.Slug, time.Now().UTC().Unix())
	url, err := utils.UploadBytesToR2(data, key, "text/csv")
	if err != nil {
		if errors.Is(err, utils.ErrR2NotConfigured) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Response export is not configured on this deployment",
			})
		}
		log.Printf("Error uploading export to R2: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to export responses",
			"details": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"url":     url,
		"rows":    len(responses),
	})
}

func responsesToCSV(questions []models.FormQuestion, responses []models.FormResponse) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"wallet_address", "submitted_at", "payment_hash"}
	for _, q := range questions {
		header = append(header, q.QuestionText)
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, r := range responses {
		row := []string{r.WalletAddress, r.SubmittedAt.UTC().Format(time.RFC3339), r.PaymentHash}
		for _, q := range questions {
			row = append(row, answerToString(r.ResponseData[q.ID]))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

func answerToString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprintf("%v", item))
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ownedForm resolves a form the wallet both administers and owns. The
// returned status is the HTTP code to use when err is non-nil.
func (s *AdminService) ownedForm(walletAddress, formID string) (*models.Form, int, error) {
	isAdmin, err := s.IsAdmin(walletAddress)
	if err != nil {
		return nil, fiber.StatusInternalServerError, err
	}
	if !isAdmin {
		return nil, fiber.StatusForbidden, errors.New("Access denied. Admin status required.")
	}

	var form models.Form
	err = s.DB.Where("id = ? AND admin_wallet_address = ?", formID, utils.NormalizeAddress(walletAddress)).
		First(&form).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fiber.StatusNotFound, errors.New("Form not found or you do not have access to it")
		}
		return nil, fiber.StatusInternalServerError, err
	}
	return &form, fiber.StatusOK, nil
}

func (s *AdminService) formsByAdmin(walletAddress string) ([]models.Form, error) {
	var forms []models.Form
	err := s.DB.Where("admin_wallet_address = ?", utils.NormalizeAddress(walletAddress)).
		Order("created_at DESC").
		Find(&forms).Error
	return forms, err
}
