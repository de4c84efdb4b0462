package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fraudwatch/api"
	"fraudwatch/cache"
	"fraudwatch/config"
	"fraudwatch/database"
	"fraudwatch/ml"
	"fraudwatch/notifications"
	"fraudwatch/realtime"
	"fraudwatch/websocket"
)

// App represents the main application
type App struct {
	config *config.Config

	db         *database.Database
	redis      *cache.RedisClient
	repo       *database.Repository
	engine     *ml.Engine
	broker     *realtime.Broker
	hub        *websocket.Hub
	webhookMgr *notifications.WebhookManager

	emulator       *Emulator
	driftRefresher *DriftRefresher
}

// New creates a new application instance
func New(cfg *config.Config) *App {
	return &App{
		config: cfg,
	}
}

// Start starts the application
func (a *App) Start() error {
	// 1. Database Connection
	fmt.Println("🗄️  Connecting to database...")
	db, err := database.Connect(
		a.config.DatabaseHost,
		a.config.DatabasePort,
		a.config.DatabaseName,
		a.config.DatabaseUser,
		a.config.DatabasePassword,
	)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	a.db = db

	a.repo = database.NewRepository(a.db)
	if err := a.repo.InitSchema(); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	// 2. Redis Connection
	fmt.Println("🧠 Connecting to Redis...")
	redisClient := cache.NewRedisClient(
		a.config.RedisHost,
		a.config.RedisPort,
		a.config.RedisPassword,
	)
	if redisClient == nil {
		fmt.Println("⚠️  Redis connection failed. Caching disabled.")
	} else {
		a.redis = redisClient
	}

	// 3. Scoring Engine
	a.engine = ml.NewEngine(ml.Config{
		NumTrees:   a.config.ML.NumTrees,
		SampleSize: a.config.ML.SampleSize,
		Seed:       a.config.ML.Seed,
	})
	if err := a.engine.Fit(nil); err != nil {
		return fmt.Errorf("initial model training failed: %w", err)
	}
	snap := a.engine.Snapshot()
	log.Printf("✅ Models trained on %d bootstrap samples (primary: %s)",
		snap.NumSamples, a.engine.Primary())

	// 4. Realtime fan-out
	a.broker = realtime.NewBroker()
	go a.broker.Run()
	a.hub = websocket.NewHub()

	// 5. Webhook Manager
	a.webhookMgr = notifications.NewWebhookManager(a.repo, a.redis)

	// 6. Traffic Emulator
	a.emulator = NewEmulator(a.repo, a.engine, a.redis, a.broker, a.hub,
		a.webhookMgr, a.config.Emulator)
	if err := a.emulator.SeedUsers(); err != nil {
		return fmt.Errorf("user seeding failed: %w", err)
	}
	a.emulator.StartEmulation()

	// 7. Drift Monitor
	a.driftRefresher = NewDriftRefresher(a.repo, a.engine, a.redis, a.broker,
		a.hub, a.config.ML.DriftWindowSize, a.config.ML.DriftIntervalSeconds)
	go a.driftRefresher.Start()

	// 8. API Server
	apiServer := api.NewServer(a.repo, a.engine, a.redis, a.broker, a.hub,
		a.webhookMgr, a.config.ML.DriftWindowSize)
	apiServer.SetEmulator(a.emulator)

	go func() {
		if err := apiServer.Start(a.config.ServerPort); err != nil {
			log.Printf("⚠️  API Server failed: %v", err)
		}
	}()

	// 9. Wait for interrupt and perform graceful shutdown
	return a.gracefulShutdown()
}

// gracefulShutdown handles graceful shutdown with timeout
func (a *App) gracefulShutdown() error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	<-interrupt
	fmt.Println("\n🛑 Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	shutdownComplete := make(chan struct{})
	go func() {
		if a.emulator != nil && a.emulator.Running() {
			fmt.Println("🎰 Stopping transaction emulator...")
			a.emulator.StopEmulation()
		}
		if a.driftRefresher != nil {
			fmt.Println("📉 Stopping drift monitor...")
			a.driftRefresher.Stop()
		}

		if a.hub != nil {
			fmt.Println("📡 Closing dashboard connections...")
			a.hub.CloseAll()
		}

		if a.db != nil {
			if err := a.db.Close(); err != nil {
				log.Printf("Error closing database: %v", err)
			} else {
				fmt.Println("✅ Database connection closed")
			}
		}

		if a.redis != nil {
			if err := a.redis.Close(); err != nil {
				log.Printf("Error closing redis: %v", err)
			} else {
				fmt.Println("✅ Redis connection closed")
			}
		}

		close(shutdownComplete)
	}()

	select {
	case <-shutdownComplete:
		fmt.Println("✅ Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		fmt.Println("⚠️  Shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout")
	}
}
