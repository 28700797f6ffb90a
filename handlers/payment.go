// handlers/payment.go
package handlers

import (
	"monad-feedback-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPaymentRoutes(app *fiber.App, paymentService *services.PaymentService) {
	app.Get("/health", paymentService.Health)

	app.Post("/balance", paymentService.GetBalance)
	app.Post("/check-eligibility", paymentService.CheckEligibility)
	app.Post("/check-transaction", paymentService.CheckTransaction)
	app.Post("/check-payment-status", paymentService.CheckPaymentStatus)
	app.Post("/record-payment", paymentService.RecordPayment)
	app.Post("/confirm-payment", paymentService.ConfirmPayment)
}
