package repositories

import (
	"context"
	"errors"

	"github.com/zephyrsocial/zephyr/backend/internal/models"
	"gorm.io/gorm"
)

// MediaRepository defines the interface for media attachment operations
type MediaRepository interface {
	CreateMedia(ctx context.Context, media *models.MediaAttachment) error
	GetMediaByID(ctx context.Context, id uint) (*models.MediaAttachment, error)
	GetUnattachedMediaByUploader(ctx context.Context, uploaderID uint) ([]models.MediaAttachment, error)
}

// PostgresMediaRepository implements MediaRepository for PostgreSQL
type PostgresMediaRepository struct {
	db *gorm.DB
}

// NewPostgresMediaRepository creates a new PostgresMediaRepository
func NewPostgresMediaRepository(db *gorm.DB) *PostgresMediaRepository {
	return &PostgresMediaRepository{db: db}
}

// CreateMedia registers uploaded media metadata in PostgreSQL
func (r *PostgresMediaRepository) CreateMedia(ctx context.Context, media *models.MediaAttachment) error {
	return r.db.WithContext(ctx).Create(media).Error
}

// GetMediaByID retrieves a media attachment by ID from PostgreSQL
func (r *PostgresMediaRepository) GetMediaByID(ctx context.Context, id uint) (*models.MediaAttachment, error) {
	var media models.MediaAttachment
	if err := r.db.WithContext(ctx).First(&media, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	return &media, nil
}

// GetUnattachedMediaByUploader lists media the user uploaded but has not yet
// attached to any post
func (r *PostgresMediaRepository) GetUnattachedMediaByUploader(ctx context.Context, uploaderID uint) ([]models.MediaAttachment, error) {
	var media []models.MediaAttachment
	err := r.db.WithContext(ctx).
		Where("uploader_id = ? AND post_id IS NULL", uploaderID).
		Order("created_at DESC").
		Find(&media).Error
	return media, err
}
