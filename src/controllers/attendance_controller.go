package controllers

import (
	"bytes"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"Backend-Attendance-Sync/src/jobs"
	"Backend-Attendance-Sync/src/models"
	"Backend-Attendance-Sync/src/utils"
)

// PutAttendanceData replaces studentAttendanceData and triggers a
// recalculation: queued when a job client exists, inline otherwise.
// @Router /attendance-data [put]
func (sc *StatisticsController) PutAttendanceData(c *fiber.Ctx) error {
	var data models.AttendanceData
	if err := c.BodyParser(&data); err != nil {
		return utils.HandleError(c, fiber.StatusBadRequest, "Invalid attendance data")
	}
	if err := sc.validate.Struct(data); err != nil {
		return utils.HandleValidationError(c, err)
	}

	ctx := c.UserContext()
	if err := sc.svc.SaveAttendanceData(ctx, data); err != nil {
		sc.log.WithError(err).Error("❌ Failed to store attendance data")
		return utils.HandleError(c, fiber.StatusInternalServerError, "Failed to store attendance data")
	}

	if sc.queue != nil {
		info, err := jobs.EnqueueRecalculation(sc.queue, "attendance-data")
		if err == nil {
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"message": "Attendance data stored, recalculation queued",
				"records": data.RecordCount(),
				"taskId":  info.ID,
			})
		}
		sc.log.WithError(err).Warn("⚠️ Enqueue failed, recalculating inline")
	}

	res, err := sc.svc.Recompute(ctx)
	if err != nil {
		sc.log.WithError(err).Error("❌ Recalculation failed")
		return utils.HandleError(c, fiber.StatusInternalServerError, "Attendance data stored but recalculation failed")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Attendance data stored",
		"records": data.RecordCount(),
		"data":    publishResponse(res),
	})
}

// PutUserData merges the profile into userData. A field sent as null is
// removed from the stored profile.
// @Router /user-data [put]
func (sc *StatisticsController) PutUserData(c *fiber.Ctx) error {
	var profile models.UserProfile
	if err := c.BodyParser(&profile); err != nil {
		return utils.HandleError(c, fiber.StatusBadRequest, "Invalid user data")
	}
	if err := sc.validate.Struct(profile); err != nil {
		return utils.HandleValidationError(c, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &fields); err != nil {
		return utils.HandleError(c, fiber.StatusBadRequest, "Invalid user data")
	}
	var cleared []string
	for k, v := range fields {
		if string(bytes.TrimSpace(v)) == "null" {
			cleared = append(cleared, k)
		}
	}

	if err := sc.svc.SaveUserProfile(c.UserContext(), profile, cleared...); err != nil {
		sc.log.WithError(err).Error("❌ Failed to store user data")
		return utils.HandleError(c, fiber.StatusInternalServerError, "Failed to store user data")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "User data stored",
	})
}
