package repositories

import (
	"context"

	"github.com/zephyrsocial/zephyr/backend/internal/models"
	"gorm.io/gorm"
)

// AuraLogRepository defines read access to the append-only aura audit trail.
// Rows are only ever written inside the post submission transaction.
type AuraLogRepository interface {
	GetLogsByUserID(ctx context.Context, userID uint, offset, limit int) ([]models.AuraLog, error)
	GetLogsByPostID(ctx context.Context, postID uint) ([]models.AuraLog, error)
	GetTotalForUser(ctx context.Context, userID uint) (int64, error)
}

// PostgresAuraLogRepository implements AuraLogRepository for PostgreSQL
type PostgresAuraLogRepository struct {
	db *gorm.DB
}

// NewPostgresAuraLogRepository creates a new PostgresAuraLogRepository
func NewPostgresAuraLogRepository(db *gorm.DB) *PostgresAuraLogRepository {
	return &PostgresAuraLogRepository{db: db}
}

// GetLogsByUserID retrieves a user's aura history, newest first
func (r *PostgresAuraLogRepository) GetLogsByUserID(ctx context.Context, userID uint, offset, limit int) ([]models.AuraLog, error) {
	var logs []models.AuraLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&logs).Error
	return logs, err
}

// GetLogsByPostID retrieves the aura rows issued for one post
func (r *PostgresAuraLogRepository) GetLogsByPostID(ctx context.Context, postID uint) ([]models.AuraLog, error) {
	var logs []models.AuraLog
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}

// GetTotalForUser sums a user's aura log amounts. Must always equal the
// user's aura_score column.
func (r *PostgresAuraLogRepository) GetTotalForUser(ctx context.Context, userID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.AuraLog{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}
