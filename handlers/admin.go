// handlers/admin.go
package handlers

import (
	"monad-feedback-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(app *fiber.App, adminService *services.AdminService) {
	admin := app.Group("/admin")

	admin.Post("/check-status", adminService.CheckStatus)
	admin.Post("/create", adminService.CreateAdmin)
	admin.Post("/forms", adminService.ListForms)
	admin.Post("/create-form", adminService.CreateForm)
	admin.Post("/form-responses", adminService.FormResponses)
	admin.Post("/export-responses", adminService.ExportResponses)
}
