package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"Backend-Attendance-Sync/src/config"
	"Backend-Attendance-Sync/src/controllers"
	"Backend-Attendance-Sync/src/database"
	"Backend-Attendance-Sync/src/jobs"
	"Backend-Attendance-Sync/src/logger"
	"Backend-Attendance-Sync/src/models"
	"Backend-Attendance-Sync/src/routes"
	"Backend-Attendance-Sync/src/services/statistics"
	"Backend-Attendance-Sync/src/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ config: %+v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ logger: %+v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("❌ server stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// เชื่อมต่อ store ตาม STORE_BACKEND
	conns, err := database.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer conns.Close(context.Background())

	svc := statistics.NewService(conns.Store, statistics.Options{
		LegacyKeys:  cfg.LegacyKeys,
		SyncProfile: cfg.SyncProfile,
	}, log)
	svc.AddListener(statistics.ListenerFunc(func(s models.StatisticsSnapshot, t models.Trend) {
		log.WithFields(logrus.Fields{
			"present": s.TotalPresent,
			"absent":  s.TotalAbsent,
			"late":    s.TotalLate,
			"rate":    s.AttendanceRate,
			"trend":   t,
		}).Debug("statistics updated")
	}))

	handle, err := statistics.NewScheduler(svc, log).Start(ctx, cfg.SyncInterval)
	if err != nil {
		return err
	}
	defer handle.Stop()

	var queue jobs.Enqueuer
	if cfg.WorkerEnabled {
		client := database.InitAsynq(cfg.RedisURI, log)
		defer client.Close()
		queue = client

		srv := jobs.NewServer(cfg.RedisURI, cfg.WorkerConcurrency, log)
		mux := asynq.NewServeMux()
		jobs.RegisterStatisticsHandlers(mux, jobs.NewHandler(svc, log))
		if err := srv.Start(mux); err != nil {
			return err
		}
		defer srv.Shutdown()

		periodic, err := jobs.NewPeriodicScheduler(cfg.RedisURI, cfg.RecalculateCron, log)
		if err != nil {
			return err
		}
		if err := periodic.Start(); err != nil {
			return err
		}
		defer periodic.Shutdown()
	}

	// สร้าง app instance
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	// ✅ เปิดใช้งาน CORS Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false, // ต้องเป็น false ถ้าใช้ "*"
	}))

	routes.InitRoutes(app, controllers.NewStatisticsController(svc, queue, log), utils.NewJWT(cfg.JWTSecret))

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server is running on port " + cfg.AppURI)
		errCh <- app.Listen(fmt.Sprintf(":%s", url.PathEscape(cfg.AppURI)))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}
