package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/minoots/engine/config"
	_ "github.com/minoots/engine/docs"
	"github.com/minoots/engine/internal/cascade"
	"github.com/minoots/engine/internal/clock"
	"github.com/minoots/engine/internal/database"
	"github.com/minoots/engine/internal/engine"
	"github.com/minoots/engine/internal/httpapi"
	"github.com/minoots/engine/internal/lifecycle"
	"github.com/minoots/engine/internal/lock"
	"github.com/minoots/engine/internal/models"
	"github.com/minoots/engine/internal/replay"
	"github.com/minoots/engine/internal/schedule"
	dbstore "github.com/minoots/engine/internal/store/postgres"
	"github.com/minoots/engine/internal/sweep"
	"github.com/minoots/engine/internal/taskscheduler"
	"github.com/minoots/engine/internal/webhook"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.NewPostgresConnection(&cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to auto-migrate: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	st := dbstore.New(db)
	clk := clock.Real()

	lifecycleMgr := lifecycle.New(st, clk, cfg.Engine.TimerWorkerCount)
	dispatcher := webhook.New(cfg.Engine.WebhookTimeout)
	replayMgr := replay.New(st, clk, lifecycleMgr)
	sweeper := sweep.New(st, clk, dispatcher, lifecycleMgr, replayMgr, cfg.Engine.ExpirationSweepBatch)
	deleter := cascade.New(st, clk, lifecycleMgr)
	materializer := schedule.New(st, clk, lifecycleMgr, schedule.DefaultBatchSize)

	eng := engine.New(lifecycleMgr, sweeper, replayMgr, deleter, materializer)

	workerID := fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	locker := lock.NewDistributedLocker(redisClient, workerID)

	taskSched := taskscheduler.New(locker, taskscheduler.Config{
		ExpirationSweepInterval: cfg.Engine.ExpirationSweepInterval,
		ReplaySweepInterval:     cfg.Engine.ReplaySweepInterval,
		ScheduleTickInterval:    cfg.Engine.ScheduleTickInterval,
		CleanupInterval:         cfg.Engine.CleanupInterval,
		ReplayCleanupInterval:   cfg.Engine.ReplayCleanupInterval,
	}, taskscheduler.Runners{
		ExpirationSweep: eng.SweepExpirations,
		ReplaySweep: func(ctx context.Context) (int, error) {
			results, err := eng.ProcessReplayQueue(ctx, models.ProcessReplayQueueOptions{Limit: cfg.Engine.ReplaySweepBatch})
			return len(results), err
		},
		ScheduleTick: eng.MaterializeSchedules,
		Cleanup: func(ctx context.Context) (int, error) {
			beforeMs := models.NowMs(clk.Now()) - cfg.Engine.ExpiredCleanupAgeMs
			return eng.CleanupExpiredTimers(ctx, beforeMs, 0)
		},
		ReplayCleanup: func(ctx context.Context) (int, error) {
			beforeMs := models.NowMs(clk.Now()) - cfg.Engine.ReplayRetentionMs
			return eng.CleanupReplayQueue(ctx, models.ReplayCleanupOptions{OlderThanMs: beforeMs})
		},
	})

	var schedulerRunning bool
	taskSched.Start(ctx)
	schedulerRunning = true

	handlers := &httpapi.Handlers{
		Timer: httpapi.NewTimerHandler(eng),
		Health: httpapi.NewHealthHandler(
			func() error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.Ping()
			},
			func() bool { return schedulerRunning },
		),
	}

	app := fiber.New(fiber.Config{
		AppName:      "Minoots Engine",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	})

	httpapi.SetupRouter(app, handlers)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Starting minoots engine on %s", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down minoots engine...")

	schedulerRunning = false
	taskSched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Minoots engine stopped")
}
