package controllers

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"Backend-Attendance-Sync/src/jobs"
	"Backend-Attendance-Sync/src/middleware"
	"Backend-Attendance-Sync/src/models"
	"Backend-Attendance-Sync/src/services/statistics"
	"Backend-Attendance-Sync/src/utils"
)

// StatisticsController serves one statistics context over HTTP.
type StatisticsController struct {
	svc      *statistics.Service
	queue    jobs.Enqueuer // nil: recalculate inline
	validate *validator.Validate
	log      logrus.FieldLogger
}

func NewStatisticsController(svc *statistics.Service, queue jobs.Enqueuer, log logrus.FieldLogger) *StatisticsController {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StatisticsController{
		svc:      svc,
		queue:    queue,
		validate: validator.New(),
		log:      log,
	}
}

func publishResponse(res statistics.PublishResult) fiber.Map {
	return fiber.Map{
		"statistics": res.Snapshot,
		"trend":      res.Trend,
		"changed":    res.Changed,
	}
}

// GetStatistics returns the stored snapshot, recomputing when none exists.
// @Router /statistics [get]
func (sc *StatisticsController) GetStatistics(c *fiber.Ctx) error {
	res, err := sc.svc.Current(c.UserContext())
	if err != nil {
		sc.log.WithError(err).Error("❌ Failed to load statistics")
		return utils.HandleError(c, fiber.StatusInternalServerError, "Failed to load statistics")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Statistics retrieved successfully",
		"data":    publishResponse(res),
	})
}

// GetMyStatistics counts only the records of the caller.
// @Router /statistics/me [get]
func (sc *StatisticsController) GetMyStatistics(c *fiber.Ctx) error {
	username := middleware.Username(c)
	if username == "" {
		return utils.HandleError(c, fiber.StatusBadRequest, "Token has no username")
	}
	snap, err := sc.svc.UserStatistics(c.UserContext(), username)
	if err != nil {
		sc.log.WithError(err).Error("❌ Failed to compute user statistics")
		return utils.HandleError(c, fiber.StatusInternalServerError, "Failed to compute user statistics")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "User statistics retrieved successfully",
		"data":    snap,
	})
}

// Recalculate runs one cycle now and returns its result.
// @Router /statistics/recalculate [post]
func (sc *StatisticsController) Recalculate(c *fiber.Ctx) error {
	res, err := sc.svc.Recompute(c.UserContext())
	if err != nil {
		sc.log.WithError(err).Error("❌ Recalculation failed")
		return utils.HandleError(c, fiber.StatusInternalServerError, "Failed to recalculate statistics")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Statistics recalculated successfully",
		"data":    publishResponse(res),
	})
}

// ExportStatistics downloads the export envelope.
// @Router /statistics/export [get]
func (sc *StatisticsController) ExportStatistics(c *fiber.Ctx) error {
	exp, err := sc.svc.Export(c.UserContext())
	if err != nil {
		sc.log.WithError(err).Error("❌ Export failed")
		return utils.HandleError(c, fiber.StatusInternalServerError, "Failed to export statistics")
	}
	c.Attachment(fmt.Sprintf("attendance_statistics_%s.json", exp.ExportDate.Format("2006-01-02")))
	return c.Status(fiber.StatusOK).JSON(exp)
}

// ImportStatistics publishes the snapshot of an uploaded export file.
// @Router /statistics/import [post]
func (sc *StatisticsController) ImportStatistics(c *fiber.Ctx) error {
	var exp models.StatisticsExport
	if err := c.BodyParser(&exp); err != nil {
		return utils.HandleError(c, fiber.StatusBadRequest, "Invalid export file")
	}
	if err := sc.validate.Struct(exp); err != nil {
		return utils.HandleValidationError(c, err)
	}
	res, err := sc.svc.Import(c.UserContext(), exp)
	if err != nil {
		sc.log.WithError(err).Error("❌ Import failed")
		return utils.HandleError(c, fiber.StatusInternalServerError, "Failed to import statistics")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Statistics imported successfully",
		"data":    publishResponse(res),
	})
}

// ResetStatistics clears stored statistics and publishes the defaults.
// @Router /statistics [delete]
func (sc *StatisticsController) ResetStatistics(c *fiber.Ctx) error {
	res, err := sc.svc.Reset(c.UserContext())
	if err != nil {
		sc.log.WithError(err).Error("❌ Reset failed")
		return utils.HandleError(c, fiber.StatusInternalServerError, "Failed to reset statistics")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Statistics reset successfully",
		"data":    publishResponse(res),
	})
}
