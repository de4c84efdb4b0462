package app

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"fraudwatch/cache"
	"fraudwatch/config"
	"fraudwatch/database"
	"fraudwatch/ml"
	"fraudwatch/notifications"
	"fraudwatch/realtime"
	"fraudwatch/websocket"
)

var (
	domesticLocations = []string{"NY", "CA", "TX", "FL"}
	foreignLocations  = []string{"JP", "CN", "RU", "BR"}
	categories        = []string{"Food", "Travel", "Electronics", "Utilities", "Transfer"}
)

// Emulator generates a continuous stream of synthetic transactions,
// scores each one through the engine, persists the verdict, and fans it
// out to the realtime channels. Roughly AnomalyProbability of the stream
// is deliberately anomalous, with the ground truth recorded so model
// metrics can be computed later.
type Emulator struct {
	repo       *database.Repository
	engine     *ml.Engine
	redis      *cache.RedisClient
	broker     *realtime.Broker
	hub        *websocket.Hub
	webhookMgr *notifications.WebhookManager
	cfg        config.EmulatorConfig

	rng   *rand.Rand
	faker *gofakeit.Faker
	users []database.User

	running atomic.Bool
	done    chan bool
}

// NewEmulator creates a new traffic generator
func NewEmulator(repo *database.Repository, engine *ml.Engine, redis *cache.RedisClient,
	broker *realtime.Broker, hub *websocket.Hub, webhookMgr *notifications.WebhookManager,
	cfg config.EmulatorConfig) *Emulator {
	seed := time.Now().UnixNano()
	return &Emulator{
		repo:       repo,
		engine:     engine,
		redis:      redis,
		broker:     broker,
		hub:        hub,
		webhookMgr: webhookMgr,
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(seed)),
		faker:      gofakeit.New(uint64(seed)),
		done:       make(chan bool),
	}
}

// SeedUsers tops the user table up to the configured population and loads
// it into memory for the generation loop
func (em *Emulator) SeedUsers() error {
	count, err := em.repo.CountUsers()
	if err != nil {
		return err
	}

	for i := count; i < int64(em.cfg.SeedUsers); i++ {
		user := &database.User{
			Name:                 em.faker.Name(),
			AccountNumber:        em.faker.AchAccount(),
			Email:                em.faker.Email(),
			AvgTransactionAmount: 50 + em.rng.Float64()*450,
		}
		if err := em.repo.CreateUser(user); err != nil {
			return err
		}
	}

	users, err := em.repo.ListUsers()
	if err != nil {
		return err
	}
	em.users = users
	log.Printf("👥 Emulator user pool ready: %d users", len(users))
	return nil
}

// StartEmulation starts the generation loop. Returns false if already running.
func (em *Emulator) StartEmulation() bool {
	if !em.running.CompareAndSwap(false, true) {
		return false
	}
	em.done = make(chan bool)
	go em.run()
	return true
}

// StopEmulation stops the generation loop. Returns false if not running.
func (em *Emulator) StopEmulation() bool {
	if !em.running.CompareAndSwap(true, false) {
		return false
	}
	close(em.done)
	return true
}

// Running reports whether the generation loop is active
func (em *Emulator) Running() bool {
	return em.running.Load()
}

func (em *Emulator) run() {
	log.Println("🎰 Transaction emulator started")

	for {
		interval := em.cfg.MinIntervalMs
		if em.cfg.MaxIntervalMs > em.cfg.MinIntervalMs {
			interval += em.rng.Intn(em.cfg.MaxIntervalMs - em.cfg.MinIntervalMs)
		}

		select {
		case <-em.done:
			log.Println("🎰 Transaction emulator stopped")
			return
		case <-time.After(time.Duration(interval) * time.Millisecond):
			em.emitTransaction()
		}
	}
}

// emitTransaction generates, scores, persists, and broadcasts one transaction
func (em *Emulator) emitTransaction() {
	if len(em.users) == 0 {
		return
	}
	user := em.users[em.rng.Intn(len(em.users))]

	tx := em.generate(&user)

	result, explanation, err := em.engine.ScoreTransaction(
		tx.Amount, user.AvgTransactionAmount, tx.Location, tx.Timestamp)
	if err != nil {
		log.Printf("⚠️  Scoring failed: %v", err)
		return
	}

	primary := result.PrimaryResult()
	tx.IsAnomaly = primary.IsAnomaly
	tx.AnomalyScore = primary.Score
	tx.ModelUsed = result.Primary

	if data, err := json.Marshal(explanation); err == nil {
		tx.Explanation = string(data)
	}
	if data, err := json.Marshal(result.Results); err == nil {
		tx.ModelResults = string(data)
	}

	if err := em.repo.CreateTransaction(tx); err != nil {
		log.Printf("⚠️  Failed to persist transaction: %v", err)
		return
	}

	if tx.IsAnomaly {
		log.Printf("🚨 Anomaly detected: user=%d amount=%.2f location=%s score=%.4f",
			tx.UserID, tx.Amount, tx.Location, tx.AnomalyScore)
		if err := em.repo.AddUserRisk(user.ID, tx.AnomalyScore); err != nil {
			log.Printf("⚠️  Failed to update user risk: %v", err)
		}
		em.webhookMgr.SendAlert(tx, user.Name, explanation)
	}

	em.broker.Broadcast("transaction", tx)
	em.hub.Broadcast("transaction", tx)
	if em.redis != nil {
		_ = em.redis.Publish(context.Background(), cache.ChannelTransactions, tx)
	}
}

// generate builds one raw transaction. Anomalous transactions pick one of
// three scenarios: an amount spike, a foreign location, or a midnight
// purchase, each well outside the user's normal behavior.
func (em *Emulator) generate(user *database.User) *database.Transaction {
	tx := &database.Transaction{
		UserID:    user.ID,
		Category:  categories[em.rng.Intn(len(categories))],
		DeviceID:  uuid.NewString(),
		Timestamp: time.Now().UTC(),
	}
	if tx.Category == "Transfer" {
		tx.ReceiverAccount = em.faker.AchAccount()
	} else {
		tx.ReceiverAccount = em.faker.Company()
	}

	if em.rng.Float64() < em.cfg.AnomalyProbability {
		tx.TrueLabel = true
		switch em.rng.Intn(3) {
		case 0: // amount spike
			tx.Amount = user.AvgTransactionAmount * (5 + em.rng.Float64()*5)
			tx.Location = "NY"
		case 1: // foreign location
			tx.Amount = user.AvgTransactionAmount * (1 + em.rng.Float64())
			tx.Location = foreignLocations[em.rng.Intn(len(foreignLocations))]
		default: // midnight purchase
			tx.Amount = user.AvgTransactionAmount * (1 + em.rng.Float64()*2)
			tx.Location = "NY"
			midnight := tx.Timestamp.Truncate(24 * time.Hour)
			tx.Timestamp = midnight.Add(time.Duration(em.rng.Intn(4)) * time.Hour)
		}
	} else {
		tx.TrueLabel = false
		tx.Amount = user.AvgTransactionAmount + em.rng.NormFloat64()*user.AvgTransactionAmount*0.1
		tx.Location = domesticLocations[em.rng.Intn(len(domesticLocations))]
	}

	if tx.Amount < 1 {
		tx.Amount = 1
	}
	return tx
}
