// handlers/feedback.go
package handlers

import (
	"monad-feedback-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupFeedbackRoutes(app *fiber.App, feedbackService *services.FeedbackService) {
	app.Post("/submit-feedback", feedbackService.SubmitFeedback)
	app.Post("/check-feedback-status", feedbackService.CheckFeedbackStatus)
	app.Get("/get-responses", feedbackService.GetResponses)
}
