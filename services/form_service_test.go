package services

import (
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"monad-feedback-system/models"
)

func newFormApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	svc := NewFormService(db)

	app := fiber.New()
	app.Post("/forms/check-payment", svc.CheckFormPayment)
	app.Post("/forms/check-submission", svc.CheckFormSubmission)
	app.Post("/forms/submit-response", svc.SubmitResponse)
	app.Get("/forms/:slug", svc.GetFormBySlug)
	return app, db
}

// seedForm creates a form with a text question (required), a radio question
// (optional) and a checkbox question (optional).
func seedForm(t *testing.T, db *gorm.DB, formID, formSlug string) {
	t.Helper()
	err := db.Create(&models.Form{
		ID: formID, Name: "survey", Slug: formSlug, Title: "Testnet Survey",
		Description: "tell us", PaymentAmount: "0.5",
		AdminWalletAddress: "0xadmin", IsActive: true,
	}).Error
	if err != nil {
		t.Fatalf("failed to seed form: %v", err)
	}
	questions := []models.FormQuestion{
		{ID: formID + "-q1", FormID: formID, QuestionText: "How was it?",
			QuestionType: models.QuestionTypeText, IsRequired: true, OrderIndex: 0},
		{ID: formID + "-q2", FormID: formID, QuestionText: "Pick one",
			QuestionType: models.QuestionTypeRadio,
			QuestionOptions: datatypes.NewJSONSlice([]string{"a", "b"}), OrderIndex: 1},
		{ID: formID + "-q3", FormID: formID, QuestionText: "Pick some",
			QuestionType: models.QuestionTypeCheckbox,
			QuestionOptions: datatypes.NewJSONSlice([]string{"x", "y", "z"}), OrderIndex: 2},
	}
	for i := range questions {
		if err := db.Create(&questions[i]).Error; err != nil {
			t.Fatalf("failed to seed question: %v", err)
		}
	}
}

func seedFormPayment(t *testing.T, db *gorm.DB, wallet, formID, amount string) {
	t.Helper()
	now := time.Now().UTC()
	err := db.Create(&models.Payment{
		ID: "pay-" + wallet + "-" + formID, PaymentHash: "0xpay-" + wallet + "-" + formID,
		WalletAddress: wallet, Amount: amount, FormID: &formID,
		Status: models.PaymentStatusConfirmed, ConfirmedAt: &now,
	}).Error
	if err != nil {
		t.Fatalf("failed to seed form payment: %v", err)
	}
}

func TestGetFormBySlug(t *testing.T) {
	app, db := newFormApp(t)
	seedForm(t, db, "f1", "testnet-survey")

	status, body := getJSON(t, app, "/forms/testnet-survey")
	assert.Equal(t, http.StatusOK, status)
	form := body["form"].(map[string]interface{})
	assert.Equal(t, "f1", form["id"])
	questions := body["questions"].([]interface{})
	assert.Len(t, questions, 3)
	first := questions[0].(map[string]interface{})
	assert.Equal(t, "How was it?", first["question_text"])

	status, _ = getJSON(t, app, "/forms/unknown-slug")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestGetFormBySlugInactiveFormHidden(t *testing.T) {
	app, db := newFormApp(t)
	db.Create(&models.Form{
		ID: "f1", Name: "old", Slug: "retired", Title: "Retired", PaymentAmount: "0.5",
		AdminWalletAddress: "0xadmin", IsActive: false,
	})

	// the false must actually land in storage
	var stored models.Form
	assert.NoError(t, db.First(&stored, "id = ?", "f1").Error)
	assert.False(t, stored.IsActive)

	status, _ := getJSON(t, app, "/forms/retired")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCheckFormPaymentAmountCoverage(t *testing.T) {
	app, db := newFormApp(t)
	seedFormPayment(t, db, "0xaaa", "f1", "0.5")

	status, body := postJSON(t, app, "/forms/check-payment",
		`{"walletAddress":"0xAAA","formId":"f1","paymentAmount":"0.5"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["hasPayment"])

	// paid less than required
	status, body = postJSON(t, app, "/forms/check-payment",
		`{"walletAddress":"0xaaa","formId":"f1","paymentAmount":"1.0"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["hasPayment"])

	// payment for a different form does not count
	status, body = postJSON(t, app, "/forms/check-payment",
		`{"walletAddress":"0xaaa","formId":"f2","paymentAmount":"0.5"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["hasPayment"])
}

func TestCheckFormSubmission(t *testing.T) {
	app, db := newFormApp(t)

	status, body := postJSON(t, app, "/forms/check-submission",
		`{"walletAddress":"0xaaa","formId":"f1"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["hasSubmitted"])

	db.Create(&models.FormResponse{
		ID: "r1", FormID: "f1", WalletAddress: "0xaaa", PaymentHash: "0x1",
		ResponseData: datatypes.JSONMap{}, SubmittedAt: time.Now().UTC(),
	})

	status, body = postJSON(t, app, "/forms/check-submission",
		`{"walletAddress":"0xAAA","formId":"f1"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["hasSubmitted"])
}

func TestSubmitResponseWithoutPayment(t *testing.T) {
	app, db := newFormApp(t)
	seedForm(t, db, "f1", "survey")

	status, body := postJSON(t, app, "/forms/submit-response",
		`{"formId":"f1","walletAddress":"0xaaa","responses":{"f1-q1":"fine"}}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, body["error"], "Payment required")
}

func TestSubmitResponseUnderpaid(t *testing.T) {
	app, db := newFormApp(t)
	seedForm(t, db, "f1", "survey")
	seedFormPayment(t, db, "0xaaa", "f1", "0.1") // form requires 0.5

	status, body := postJSON(t, app, "/forms/submit-response",
		`{"formId":"f1","walletAddress":"0xaaa","responses":{"f1-q1":"fine"}}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, body["error"], "below the required amount")
}

func TestSubmitResponseHappyPathThenDuplicate(t *testing.T) {
	app, db := newFormApp(t)
	seedForm(t, db, "f1", "survey")
	seedFormPayment(t, db, "0xaaa", "f1", "0.5")

	status, body := postJSON(t, app, "/forms/submit-response", `{
		"formId":"f1","walletAddress":"0xAAA",
		"responses":{"f1-q1":"fine","f1-q2":"a","f1-q3":["x","z"]}
	}`)
	assert.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, body["responseId"])

	var stored models.FormResponse
	assert.NoError(t, db.First(&stored, "form_id = ? AND wallet_address = ?", "f1", "0xaaa").Error)
	assert.Equal(t, "fine", stored.ResponseData["f1-q1"])
	assert.Equal(t, "0xpay-0xaaa-f1", stored.PaymentHash)

	// one response per wallet per form
	status, body = postJSON(t, app, "/forms/submit-response", `{
		"formId":"f1","walletAddress":"0xaaa",
		"responses":{"f1-q1":"again"}
	}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body["error"], "already submitted")
}

func TestSubmitResponseSameWalletDifferentForms(t *testing.T) {
	app, db := newFormApp(t)
	seedForm(t, db, "f1", "survey-one")
	seedForm(t, db, "f2", "survey-two")
	seedFormPayment(t, db, "0xaaa", "f1", "0.5")
	seedFormPayment(t, db, "0xaaa", "f2", "0.5")

	status, _ := postJSON(t, app, "/forms/submit-response",
		`{"formId":"f1","walletAddress":"0xaaa","responses":{"f1-q1":"fine"}}`)
	assert.Equal(t, http.StatusCreated, status)

	status, _ = postJSON(t, app, "/forms/submit-response",
		`{"formId":"f2","walletAddress":"0xaaa","responses":{"f2-q1":"fine"}}`)
	assert.Equal(t, http.StatusCreated, status)
}

func TestSubmitResponseRequiredQuestionMissing(t *testing.T) {
	app, db := newFormApp(t)
	seedForm(t, db, "f1", "survey")
	seedFormPayment(t, db, "0xaaa", "f1", "0.5")

	status, body := postJSON(t, app, "/forms/submit-response",
		`{"formId":"f1","walletAddress":"0xaaa","responses":{"f1-q2":"a"}}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "Missing required response")

	// whitespace-only counts as missing
	status, _ = postJSON(t, app, "/forms/submit-response",
		`{"formId":"f1","walletAddress":"0xaaa","responses":{"f1-q1":"   "}}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSubmitResponseAnswerShapeValidation(t *testing.T) {
	app, db := newFormApp(t)
	seedForm(t, db, "f1", "survey")
	seedFormPayment(t, db, "0xaaa", "f1", "0.5")

	// radio answer outside the declared options
	status, body := postJSON(t, app, "/forms/submit-response",
		`{"formId":"f1","walletAddress":"0xaaa","responses":{"f1-q1":"fine","f1-q2":"c"}}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "not one of the allowed options")

	// checkbox answer must be a list
	status, _ = postJSON(t, app, "/forms/submit-response",
		`{"formId":"f1","walletAddress":"0xaaa","responses":{"f1-q1":"fine","f1-q3":"x"}}`)
	assert.Equal(t, http.StatusBadRequest, status)

	// checkbox list with a disallowed option
	status, _ = postJSON(t, app, "/forms/submit-response",
		`{"formId":"f1","walletAddress":"0xaaa","responses":{"f1-q1":"fine","f1-q3":["x","nope"]}}`)
	assert.Equal(t, http.StatusBadRequest, status)

	// text answer must be a string
	status, _ = postJSON(t, app, "/forms/submit-response",
		`{"formId":"f1","walletAddress":"0xaaa","responses":{"f1-q1":42}}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSubmitResponseUnknownForm(t *testing.T) {
	app, db := newFormApp(t)
	seedFormPayment(t, db, "0xaaa", "ghost", "0.5")

	// missing form row is a 404, not a silently skipped amount check
	status, body := postJSON(t, app, "/forms/submit-response",
		`{"formId":"ghost","walletAddress":"0xaaa","responses":{"q":"a"}}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body["error"], "Form not found")
}

func TestAmountCovers(t *testing.T) {
	assert.True(t, amountCovers("0.5", "0.5"))
	assert.True(t, amountCovers("1", "0.5"))
	assert.False(t, amountCovers("0.4", "0.5"))
	assert.False(t, amountCovers("abc", "0.5"))
	assert.False(t, amountCovers("0.5", "abc"))
}
