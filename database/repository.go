package database

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"fraudwatch/ml"
)

// Repository handles database operations for users, transactions, and
// webhook subscriptions.
type Repository struct {
	db *Database
}

// NewRepository creates a new repository
func NewRepository(db *Database) *Repository {
	return &Repository{db: db}
}

// InitSchema performs auto-migration for all tables
func (r *Repository) InitSchema() error {
	fmt.Println("🔄 Starting database schema initialization...")

	err := r.db.db.AutoMigrate(
		&User{},
		&Transaction{},
		&AnomalyWebhook{},
		&WebhookDelivery{},
	)
	if err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	fmt.Println("✅ Database schema ready")
	return nil
}

// ============================================================================
// Users
// ============================================================================

// CreateUser inserts a new user
func (r *Repository) CreateUser(user *User) error {
	return WrapDBError("CreateUser", r.db.db.Create(user).Error)
}

// ListUsers returns all users
func (r *Repository) ListUsers() ([]User, error) {
	var users []User
	err := r.db.db.Order("id").Find(&users).Error
	return users, WrapDBError("ListUsers", err)
}

// GetUserByID returns a single user
func (r *Repository) GetUserByID(id int64) (*User, error) {
	var user User
	err := r.db.db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("user", id)
	}
	if err != nil {
		return nil, WrapDBError("GetUserByID", err)
	}
	return &user, nil
}

// CountUsers returns the number of users
func (r *Repository) CountUsers() (int64, error) {
	var count int64
	err := r.db.db.Model(&User{}).Count(&count).Error
	return count, WrapDBError("CountUsers", err)
}

// AddUserRisk bumps a user's accumulated risk score
func (r *Repository) AddUserRisk(userID int64, delta float64) error {
	err := r.db.db.Model(&User{}).Where("id = ?", userID).
		UpdateColumn("risk_score", gorm.Expr("risk_score + ?", delta)).Error
	return WrapDBError("AddUserRisk", err)
}

// ============================================================================
// Transactions
// ============================================================================

// CreateTransaction inserts a scored transaction
func (r *Repository) CreateTransaction(tx *Transaction) error {
	return WrapDBError("CreateTransaction", r.db.db.Create(tx).Error)
}

// GetTransactionByID returns a transaction with its user preloaded
func (r *Repository) GetTransactionByID(id int64) (*Transaction, error) {
	var tx Transaction
	err := r.db.db.Preload("User").First(&tx, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("transaction", id)
	}
	if err != nil {
		return nil, WrapDBError("GetTransactionByID", err)
	}
	return &tx, nil
}

// GetRecentTransactions returns the latest transactions, newest first
func (r *Repository) GetRecentTransactions(limit int) ([]Transaction, error) {
	var txs []Transaction
	err := r.db.db.Preload("User").
		Order("timestamp DESC").
		Limit(limit).
		Find(&txs).Error
	return txs, WrapDBError("GetRecentTransactions", err)
}

// GetTransactionsByUser returns one user's transactions, newest first
func (r *Repository) GetTransactionsByUser(userID int64, limit int) ([]Transaction, error) {
	var txs []Transaction
	err := r.db.db.Where("user_id = ?", userID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&txs).Error
	return txs, WrapDBError("GetTransactionsByUser", err)
}

// GetStats returns the aggregate transaction statistics for the dashboard
func (r *Repository) GetStats() (Stats, error) {
	var stats Stats

	if err := r.db.db.Model(&Transaction{}).Count(&stats.TotalTransactions).Error; err != nil {
		return stats, WrapDBError("GetStats", err)
	}
	if err := r.db.db.Model(&Transaction{}).Where("is_anomaly = ?", true).
		Count(&stats.TotalAnomalies).Error; err != nil {
		return stats, WrapDBError("GetStats", err)
	}

	if stats.TotalTransactions > 0 {
		stats.AnomalyRate = float64(stats.TotalAnomalies) / float64(stats.TotalTransactions)
	}
	return stats, nil
}

// GetModelMetrics computes the confusion matrix of stored predictions
// against ground-truth labels
func (r *Repository) GetModelMetrics() (ModelMetrics, error) {
	var m ModelMetrics

	cells := []struct {
		predicted bool
		actual    bool
		dest      *int64
	}{
		{true, true, &m.TruePositives},
		{true, false, &m.FalsePositives},
		{false, true, &m.FalseNegatives},
		{false, false, &m.TrueNegatives},
	}

	for _, cell := range cells {
		err := r.db.db.Model(&Transaction{}).
			Where("is_anomaly = ? AND true_label = ?", cell.predicted, cell.actual).
			Count(cell.dest).Error
		if err != nil {
			return m, WrapDBError("GetModelMetrics", err)
		}
	}

	m.TotalSamples = m.TruePositives + m.FalsePositives + m.FalseNegatives + m.TrueNegatives
	if m.TruePositives+m.FalsePositives > 0 {
		m.Precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}
	if m.TruePositives+m.FalseNegatives > 0 {
		m.Recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m, nil
}

// RecentRecords converts the latest transactions into the plain record
// shape the scoring engine consumes for retraining and drift detection.
func (r *Repository) RecentRecords(limit int) ([]ml.TransactionRecord, error) {
	txs, err := r.GetRecentTransactions(limit)
	if err != nil {
		return nil, err
	}

	records := make([]ml.TransactionRecord, len(txs))
	for i, tx := range txs {
		rec := ml.TransactionRecord{
			Amount:    tx.Amount,
			Location:  tx.Location,
			Timestamp: tx.Timestamp,
			IsAnomaly: tx.IsAnomaly,
			TrueLabel: tx.TrueLabel,
		}
		if tx.ModelResults != "" {
			// Stored as JSON at scoring time; a corrupt row degrades to no
			// per-model results rather than failing the whole window.
			_ = json.Unmarshal([]byte(tx.ModelResults), &rec.ModelResults)
		}
		records[i] = rec
	}
	return records, nil
}

// ============================================================================
// Webhooks
// ============================================================================

// CreateWebhook registers a webhook endpoint
func (r *Repository) CreateWebhook(hook *AnomalyWebhook) error {
	if hook.URL == "" {
		return NewValidationError("url", "must not be empty")
	}
	if hook.Name == "" {
		return NewValidationError("name", "must not be empty")
	}
	return WrapDBError("CreateWebhook", r.db.db.Create(hook).Error)
}

// ListWebhooks returns all registered webhooks
func (r *Repository) ListWebhooks() ([]AnomalyWebhook, error) {
	var hooks []AnomalyWebhook
	err := r.db.db.Order("id").Find(&hooks).Error
	return hooks, WrapDBError("ListWebhooks", err)
}

// GetActiveWebhooks returns enabled webhooks only
func (r *Repository) GetActiveWebhooks() ([]AnomalyWebhook, error) {
	var hooks []AnomalyWebhook
	err := r.db.db.Where("enabled = ?", true).Find(&hooks).Error
	return hooks, WrapDBError("GetActiveWebhooks", err)
}

// UpdateWebhook updates a webhook registration
func (r *Repository) UpdateWebhook(hook *AnomalyWebhook) error {
	result := r.db.db.Model(&AnomalyWebhook{}).Where("id = ?", hook.ID).
		Updates(map[string]interface{}{
			"name":      hook.Name,
			"url":       hook.URL,
			"enabled":   hook.Enabled,
			"min_score": hook.MinScore,
		})
	if result.Error != nil {
		return WrapDBError("UpdateWebhook", result.Error)
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError("webhook", hook.ID)
	}
	return nil
}

// DeleteWebhook removes a webhook registration
func (r *Repository) DeleteWebhook(id int64) error {
	result := r.db.db.Delete(&AnomalyWebhook{}, id)
	if result.Error != nil {
		return WrapDBError("DeleteWebhook", result.Error)
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError("webhook", id)
	}
	return nil
}

// LogWebhookDelivery records one delivery attempt
func (r *Repository) LogWebhookDelivery(entry *WebhookDelivery) error {
	return WrapDBError("LogWebhookDelivery", r.db.db.Create(entry).Error)
}
