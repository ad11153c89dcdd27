package utils

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"Backend-Attendance-Sync/src/models"
)

func HandleError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(models.ErrorResponse{
		Status:  status,
		Message: message,
	})
}

// HandleValidationError reports every failed field of a validator error as 400.
func HandleValidationError(c *fiber.Ctx, err error) error {
	resp := models.ErrorResponse{
		Status:  fiber.StatusBadRequest,
		Message: "validation failed",
	}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
	} else {
		resp.Errors = []string{err.Error()}
	}
	return c.Status(resp.Status).JSON(resp)
}
