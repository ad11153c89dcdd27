package routes

import (
	"github.com/gofiber/fiber/v2"

	"Backend-Attendance-Sync/src/controllers"
	"Backend-Attendance-Sync/src/utils"
)

func InitRoutes(app *fiber.App, sc *controllers.StatisticsController, j *utils.JWT) {
	api := app.Group("/api")
	StatisticsRoutes(api, sc, j)
	AttendanceRoutes(api, sc, j)

	// Route เช็คว่า API ทำงานอยู่
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("✅ API is running...")
	})
}
