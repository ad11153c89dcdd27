package routes

import (
	"github.com/gofiber/fiber/v2"

	"Backend-Attendance-Sync/src/controllers"
	"Backend-Attendance-Sync/src/middleware"
	"Backend-Attendance-Sync/src/utils"
)

// StatisticsRoutes ตั้งค่า routes สำหรับสถิติการเข้าเรียน
func StatisticsRoutes(router fiber.Router, sc *controllers.StatisticsController, j *utils.JWT) {
	statistics := router.Group("/statistics", middleware.AuthJWT(j))

	statistics.Get("/", sc.GetStatistics)
	statistics.Get("/me", sc.GetMyStatistics)
	statistics.Post("/recalculate", sc.Recalculate)
	statistics.Get("/export", sc.ExportStatistics)
	statistics.Post("/import", middleware.RequireRoles("admin", "teacher"), sc.ImportStatistics)
	statistics.Delete("/", middleware.RequireRoles("admin"), sc.ResetStatistics)
}

// AttendanceRoutes เขียนข้อมูลดิบที่ใช้คำนวณสถิติ
func AttendanceRoutes(router fiber.Router, sc *controllers.StatisticsController, j *utils.JWT) {
	auth := middleware.AuthJWT(j)
	router.Put("/attendance-data", auth, middleware.RequireRoles("admin", "teacher"), sc.PutAttendanceData)
	router.Put("/user-data", auth, sc.PutUserData)
}
