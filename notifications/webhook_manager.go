package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"fraudwatch/cache"
	"fraudwatch/database"
	"fraudwatch/ml"
)

const webhookCacheKey = "fraudwatch:active_webhooks"

// WebhookManager delivers anomaly alerts to registered webhook endpoints
type WebhookManager struct {
	repo   *database.Repository
	redis  *cache.RedisClient
	client *http.Client
}

// AlertPayload is the JSON payload sent to webhooks when an anomalous
// transaction is detected
type AlertPayload struct {
	TransactionID int64          `json:"transaction_id"`
	UserID        int64          `json:"user_id"`
	UserName      string         `json:"user_name"`
	Amount        float64        `json:"amount"`
	Location      string         `json:"location"`
	Category      string         `json:"category"`
	AnomalyScore  float64        `json:"anomaly_score"`
	ModelUsed     string         `json:"model_used"`
	DetectedAt    time.Time      `json:"detected_at"`
	Message       string         `json:"message"`
	Explanation   ml.Explanation `json:"explanation,omitempty"`
}

// NewWebhookManager creates a new webhook manager
func NewWebhookManager(repo *database.Repository, redis *cache.RedisClient) *WebhookManager {
	return &WebhookManager{
		repo:  repo,
		redis: redis,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendAlert fans the anomaly out to every matching webhook, asynchronously
func (wm *WebhookManager) SendAlert(tx *database.Transaction, userName string, explanation ml.Explanation) {
	webhooks, err := wm.getActiveWebhooks()
	if err != nil {
		log.Printf("⚠️  Failed to load webhooks: %v", err)
		return
	}
	if len(webhooks) == 0 {
		return
	}

	payload := AlertPayload{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		UserName:      userName,
		Amount:        tx.Amount,
		Location:      tx.Location,
		Category:      tx.Category,
		AnomalyScore:  tx.AnomalyScore,
		ModelUsed:     tx.ModelUsed,
		DetectedAt:    tx.Timestamp,
		Message: fmt.Sprintf("Anomalous transaction of %.2f at %s for %s (score %.4f)",
			tx.Amount, tx.Location, userName, tx.AnomalyScore),
		Explanation: explanation,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		log.Printf("⚠️  Failed to marshal webhook payload: %v", err)
		return
	}

	for _, hook := range webhooks {
		if tx.AnomalyScore >= hook.MinScore {
			go wm.deliverWebhook(hook, tx.ID, payloadBytes)
		}
	}
}

// getActiveWebhooks loads enabled webhooks, Redis-cached for an hour
func (wm *WebhookManager) getActiveWebhooks() ([]database.AnomalyWebhook, error) {
	if wm.redis != nil {
		var cached []database.AnomalyWebhook
		if err := wm.redis.Get(context.Background(), webhookCacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	webhooks, err := wm.repo.GetActiveWebhooks()
	if err != nil {
		return nil, err
	}

	if wm.redis != nil {
		_ = wm.redis.Set(context.Background(), webhookCacheKey, webhooks, 1*time.Hour)
	}
	return webhooks, nil
}

// InvalidateCache drops the cached webhook list after registry changes
func (wm *WebhookManager) InvalidateCache() {
	if wm.redis != nil {
		_ = wm.redis.Delete(context.Background(), webhookCacheKey)
	}
}

// deliverWebhook posts the payload with up to 3 attempts and logs the result
func (wm *WebhookManager) deliverWebhook(hook database.AnomalyWebhook, txID int64, payload []byte) {
	const maxAttempts = 3

	var lastStatus int
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := wm.client.Post(hook.URL, "application/json", bytes.NewReader(payload))
		if err != nil {
			lastErr = err
		} else {
			lastStatus = resp.StatusCode
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				wm.logDelivery(hook.ID, txID, lastStatus, true, "")
				return
			}
			lastErr = fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}

		if attempt < maxAttempts {
			time.Sleep(time.Duration(attempt) * 2 * time.Second)
		}
	}

	log.Printf("⚠️  Webhook %s delivery failed after %d attempts: %v", hook.Name, maxAttempts, lastErr)
	wm.logDelivery(hook.ID, txID, lastStatus, false, lastErr.Error())
}

func (wm *WebhookManager) logDelivery(hookID, txID int64, status int, success bool, errMsg string) {
	entry := &database.WebhookDelivery{
		WebhookID:     hookID,
		TransactionID: txID,
		StatusCode:    status,
		Success:       success,
		Error:         errMsg,
		CreatedAt:     time.Now().UTC(),
	}
	if err := wm.repo.LogWebhookDelivery(entry); err != nil {
		log.Printf("⚠️  Failed to log webhook delivery: %v", err)
	}
}
