package services

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"monad-feedback-system/models"
)

func newFeedbackApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	svc := NewFeedbackService(db)

	app := fiber.New()
	app.Post("/submit-feedback", svc.SubmitFeedback)
	app.Post("/check-feedback-status", svc.CheckFeedbackStatus)
	app.Get("/get-responses", svc.GetResponses)
	return app, db
}

func seedConfirmedPayment(t *testing.T, db *gorm.DB, wallet, hash string) {
	t.Helper()
	now := time.Now().UTC()
	err := db.Create(&models.Payment{
		ID: "pay-" + hash, PaymentHash: hash, WalletAddress: wallet, Amount: "0.1",
		Status: models.PaymentStatusConfirmed, ConfirmedAt: &now,
	}).Error
	if err != nil {
		t.Fatalf("failed to seed payment: %v", err)
	}
}

func TestSubmitFeedbackWithoutPayment(t *testing.T) {
	app, _ := newFeedbackApp(t)

	status, body := postJSON(t, app, "/submit-feedback",
		`{"feedback":"great testnet","category":"dev","walletAddress":"0xaaa"}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, body["error"], "Payment required")
}

func TestSubmitFeedbackHappyPathThenDuplicate(t *testing.T) {
	app, db := newFeedbackApp(t)
	seedConfirmedPayment(t, db, "0xaaa", "0x1")

	status, body := postJSON(t, app, "/submit-feedback",
		`{"feedback":"  great testnet  ","category":"dev","walletAddress":"0xAAA"}`)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["feedbackId"])

	var stored models.Feedback
	assert.NoError(t, db.First(&stored, "wallet_address = ?", "0xaaa").Error)
	assert.Equal(t, "great testnet", stored.Feedback)
	assert.Equal(t, "0x1", stored.PaymentHash)
	assert.True(t, stored.IsAnonymous)

	// one feedback slot per wallet
	status, body = postJSON(t, app, "/submit-feedback",
		`{"feedback":"second try","category":"dev","walletAddress":"0xaaa"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body["error"], "already submitted")
}

func TestSubmitFeedbackAnonymityOptOut(t *testing.T) {
	app, db := newFeedbackApp(t)
	seedConfirmedPayment(t, db, "0xaaa", "0x1")

	status, _ := postJSON(t, app, "/submit-feedback",
		`{"feedback":"show my wallet","category":"dev","walletAddress":"0xaaa","isAnonymous":false}`)
	assert.Equal(t, http.StatusCreated, status)

	// the explicit opt-out must survive the insert
	var stored models.Feedback
	assert.NoError(t, db.First(&stored, "wallet_address = ?", "0xaaa").Error)
	assert.False(t, stored.IsAnonymous)

	status, body := getJSON(t, app, "/get-responses")
	assert.Equal(t, http.StatusOK, status)
	responses := body["responses"].([]interface{})
	assert.Len(t, responses, 1)
	row := responses[0].(map[string]interface{})
	assert.Equal(t, "0xaaa", row["wallet_address"])
}

func TestSubmitFeedbackLengthBoundary(t *testing.T) {
	app, db := newFeedbackApp(t)
	seedConfirmedPayment(t, db, "0xaaa", "0x1")

	exactly1000 := strings.Repeat("a", 1000)
	status, _ := postJSON(t, app, "/submit-feedback",
		fmt.Sprintf(`{"feedback":"%s","category":"dev","walletAddress":"0xaaa"}`, exactly1000))
	assert.Equal(t, http.StatusCreated, status)

	seedConfirmedPayment(t, db, "0xbbb", "0x2")
	over := strings.Repeat("a", 1001)
	status, body := postJSON(t, app, "/submit-feedback",
		fmt.Sprintf(`{"feedback":"%s","category":"dev","walletAddress":"0xbbb"}`, over))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "1000 characters")
}

func TestSubmitFeedbackInvalidCategory(t *testing.T) {
	app, db := newFeedbackApp(t)
	seedConfirmedPayment(t, db, "0xaaa", "0x1")

	status, body := postJSON(t, app, "/submit-feedback",
		`{"feedback":"hello","category":"marketing","walletAddress":"0xaaa"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "Invalid category")
}

func TestSubmitFeedbackMissingFields(t *testing.T) {
	app, _ := newFeedbackApp(t)

	status, _ := postJSON(t, app, "/submit-feedback", `{"feedback":"hello"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCheckFeedbackStatus(t *testing.T) {
	app, db := newFeedbackApp(t)

	status, body := postJSON(t, app, "/check-feedback-status", `{"walletAddress":"0xaaa"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["hasSubmittedFeedback"])

	db.Create(&models.Feedback{
		ID: "f1", Feedback: "hi", Category: models.FeedbackCategoryDev,
		WalletAddress: "0xaaa", PaymentHash: "0x1", IsAnonymous: true,
	})

	status, body = postJSON(t, app, "/check-feedback-status", `{"walletAddress":"0xAAA"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["hasSubmittedFeedback"])
	assert.Equal(t, "f1", body["feedbackId"])
}

func TestGetResponsesAnonymityRedaction(t *testing.T) {
	app, db := newFeedbackApp(t)

	db.Create(&models.Feedback{
		ID: "f1", Feedback: "anon note", Category: models.FeedbackCategoryDev,
		WalletAddress: "0xaaa", PaymentHash: "0x1", IsAnonymous: true,
	})
	db.Create(&models.Feedback{
		ID: "f2", Feedback: "public note", Category: models.FeedbackCategoryCommunity,
		WalletAddress: "0xbbb", PaymentHash: "0x2", IsAnonymous: false,
	})

	status, body := getJSON(t, app, "/get-responses")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["total"])

	responses := body["responses"].([]interface{})
	assert.Len(t, responses, 2)
	for _, r := range responses {
		row := r.(map[string]interface{})
		switch row["id"] {
		case "f1":
			assert.Contains(t, row, "wallet_address")
			assert.Nil(t, row["wallet_address"], "anonymous feedback must not expose the wallet")
		case "f2":
			assert.Equal(t, "0xbbb", row["wallet_address"])
		default:
			t.Fatalf("unexpected row id %v", row["id"])
		}
	}

	// stored row still keeps the wallet: redaction is read-time only
	var stored models.Feedback
	assert.NoError(t, db.First(&stored, "id = ?", "f1").Error)
	assert.Equal(t, "0xaaa", stored.WalletAddress)
}

func TestGetResponsesFilteringAndPagination(t *testing.T) {
	app, db := newFeedbackApp(t)

	for i := 0; i < 5; i++ {
		category := models.FeedbackCategoryDev
		if i%2 == 1 {
			category = models.FeedbackCategoryCommunity
		}
		db.Create(&models.Feedback{
			ID: fmt.Sprintf("f%d", i), Feedback: fmt.Sprintf("note %d", i),
			Category: category, WalletAddress: fmt.Sprintf("0x%d", i),
			PaymentHash: fmt.Sprintf("0xh%d", i), IsAnonymous: false,
		})
	}

	status, body := getJSON(t, app, "/get-responses?category=dev")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), body["total"])

	status, body = getJSON(t, app, "/get-responses?page=1&limit=2")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(5), body["total"])
	assert.Len(t, body["responses"], 2)
	assert.Equal(t, float64(3), body["totalPages"])
	assert.Equal(t, true, body["hasNext"])
	assert.Equal(t, false, body["hasPrev"])

	status, body = getJSON(t, app, "/get-responses?page=3&limit=2")
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["responses"], 1)
	assert.Equal(t, false, body["hasNext"])
	assert.Equal(t, true, body["hasPrev"])

	status, body = getJSON(t, app, "/get-responses?anonymous=true")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["total"])
}
