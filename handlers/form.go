// handlers/form.go
package handlers

import (
	"monad-feedback-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupFormRoutes(app *fiber.App, formService *services.FormService, paymentService *services.PaymentService) {
	forms := app.Group("/forms")

	forms.Post("/check-payment", formService.CheckFormPayment)
	forms.Post("/check-submission", formService.CheckFormSubmission)
	forms.Post("/record-payment", paymentService.RecordFormPayment)
	forms.Post("/submit-response", formService.SubmitResponse)

	// registered last so the param route does not shadow the fixed paths
	forms.Get("/:slug", formService.GetFormBySlug)
}
