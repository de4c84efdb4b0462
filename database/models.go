// Package database provides persistence for the fraudwatch anomaly
// detection service: account holders, scored transactions, and webhook
// subscriptions, stored in PostgreSQL via GORM.
package database

import "time"

// User represents an account holder whose transactions are scored.
//
// AvgTransactionAmount is the per-user spending baseline the feature
// extractor diffs against; RiskScore accumulates as anomalies are detected
// on the account.
type User struct {
	ID                   int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name                 string    `gorm:"size:120;not null" json:"name"`
	AccountNumber        string    `gorm:"size:40;uniqueIndex;not null" json:"account_number"`
	Email                string    `gorm:"size:120;uniqueIndex;not null" json:"email"`
	AvgTransactionAmount float64   `gorm:"type:decimal(15,2);default:100.0" json:"avg_transaction_amount"`
	RiskScore            float64   `gorm:"type:decimal(10,4);default:0.0" json:"risk_score"`
	CreatedAt            time.Time `json:"created_at"`
}

// Transaction represents one scored financial transaction.
//
// Key Fields:
//   - IsAnomaly: the primary model's verdict at scoring time
//   - TrueLabel: ground truth supplied by the traffic generator
//   - AnomalyScore: the primary model's continuous score
//   - Explanation: JSON map of per-feature contributions
//   - ModelResults: JSON map of every registered model's verdict and score
type Transaction struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64     `gorm:"index;not null" json:"user_id"`
	Amount          float64   `gorm:"type:decimal(15,2);not null" json:"amount"`
	Location        string    `gorm:"size:5;not null" json:"location"`
	Category        string    `gorm:"size:30;not null" json:"category"` // Food, Travel, Electronics, Utilities, Transfer
	ReceiverAccount string    `gorm:"size:120" json:"receiver_account,omitempty"`
	DeviceID        string    `gorm:"size:40" json:"device_id,omitempty"`
	Timestamp       time.Time `gorm:"index;not null" json:"timestamp"`

	IsAnomaly    bool    `gorm:"index;default:false" json:"is_anomaly"`
	TrueLabel    bool    `gorm:"default:false" json:"true_label"`
	AnomalyScore float64 `gorm:"type:decimal(10,6)" json:"anomaly_score"`
	ModelUsed    string  `gorm:"size:40" json:"model_used"`
	Explanation  string  `gorm:"type:text" json:"explanation,omitempty"`
	ModelResults string  `gorm:"type:text" json:"model_results,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// AnomalyWebhook is a registered webhook endpoint notified when anomalous
// transactions are detected.
type AnomalyWebhook struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	URL       string    `gorm:"size:500;not null" json:"url"`
	Enabled   bool      `gorm:"default:true;index" json:"enabled"`
	MinScore  float64   `gorm:"type:decimal(10,6);default:0" json:"min_score"` // skip alerts below this score
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WebhookDelivery logs one delivery attempt to a webhook endpoint.
type WebhookDelivery struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	WebhookID     int64     `gorm:"index;not null" json:"webhook_id"`
	TransactionID int64     `gorm:"index" json:"transaction_id"`
	StatusCode    int       `json:"status_code"`
	Success       bool      `json:"success"`
	Error         string    `gorm:"size:500" json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Stats summarizes the scored transaction stream for the dashboard.
type Stats struct {
	TotalTransactions int64   `json:"total_transactions"`
	TotalAnomalies    int64   `json:"total_anomalies"`
	AnomalyRate       float64 `json:"anomaly_rate"`
}

// ModelMetrics is the confusion matrix of stored predictions against the
// generator's ground-truth labels.
type ModelMetrics struct {
	TruePositives  int64   `json:"tp"`
	FalsePositives int64   `json:"fp"`
	FalseNegatives int64   `json:"fn"`
	TrueNegatives  int64   `json:"tn"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
	TotalSamples   int64   `json:"total_samples"`
}
