package app

import (
	"context"
	"log"
	"time"

	"fraudwatch/cache"
	"fraudwatch/database"
	"fraudwatch/ml"
	"fraudwatch/realtime"
	"fraudwatch/websocket"
)

// DriftRefresher periodically recomputes the drift report over the recent
// transaction window, caches it, and pushes it to connected dashboards
type DriftRefresher struct {
	repo   *database.Repository
	engine *ml.Engine
	redis  *cache.RedisClient
	broker *realtime.Broker
	hub    *websocket.Hub

	window   int
	interval time.Duration
	done     chan bool
}

// NewDriftRefresher creates a new drift refresher
func NewDriftRefresher(repo *database.Repository, engine *ml.Engine, redis *cache.RedisClient,
	broker *realtime.Broker, hub *websocket.Hub, window, intervalSeconds int) *DriftRefresher {
	return &DriftRefresher{
		repo:     repo,
		engine:   engine,
		redis:    redis,
		broker:   broker,
		hub:      hub,
		window:   window,
		interval: time.Duration(intervalSeconds) * time.Second,
		done:     make(chan bool),
	}
}

// Start begins the refresh loop
func (dr *DriftRefresher) Start() {
	log.Printf("📉 Drift monitor started (window=%d, every %v)", dr.window, dr.interval)

	ticker := time.NewTicker(dr.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			dr.refresh()
		case <-dr.done:
			log.Println("📉 Drift monitor stopped")
			return
		}
	}
}

// Stop stops the refresh loop
func (dr *DriftRefresher) Stop() {
	dr.done <- true
}

// refresh computes one drift report and distributes it
func (dr *DriftRefresher) refresh() {
	records, err := dr.repo.RecentRecords(dr.window)
	if err != nil {
		log.Printf("⚠️  Drift monitor failed to load transactions: %v", err)
		return
	}

	report, err := dr.engine.ComputeDrift(records)
	if err != nil {
		log.Printf("⚠️  Drift computation failed: %v", err)
		return
	}

	if dr.redis != nil {
		if err := dr.redis.Set(context.Background(), cache.KeyDriftReport, report, 2*dr.interval); err != nil {
			log.Printf("⚠️  Failed to cache drift report: %v", err)
		}
	}

	dr.broker.Broadcast("drift_report", report)
	dr.hub.Broadcast("drift_report", report)

	if report.Label.Drift || report.Concept.Status == ml.ConceptDriftDetected {
		log.Printf("📉 Drift alert: label_drift=%v concept=%s value_drift=%.2f",
			report.Label.Drift, report.Concept.Status, report.ValueDrift)
	}
}
