package repositories

import (
	"context"

	"github.com/zephyrsocial/zephyr/backend/internal/models"
	"gorm.io/gorm"
)

// TagWithCount pairs a tag with its authoritative usage count
type TagWithCount struct {
	models.Tag
	UsageCount int64 `json:"usage_count"`
}

// TagRepository defines the interface for tag data operations
type TagRepository interface {
	GetTagByName(ctx context.Context, name string) (*models.Tag, error)
	GetTrendingTags(ctx context.Context, limit int) ([]TagWithCount, error)
}

// PostgresTagRepository implements TagRepository for PostgreSQL
type PostgresTagRepository struct {
	db *gorm.DB
}

// NewPostgresTagRepository creates a new PostgresTagRepository
func NewPostgresTagRepository(db *gorm.DB) *PostgresTagRepository {
	return &PostgresTagRepository{db: db}
}

// GetTagByName retrieves a tag by its normalized name
func (r *PostgresTagRepository) GetTagByName(ctx context.Context, name string) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// GetTrendingTags retrieves tags ordered by how many posts use them.
// Counts come from the post_tags join table, the system of record; the tag
// count cache serves the fast read path instead.
func (r *PostgresTagRepository) GetTrendingTags(ctx context.Context, limit int) ([]TagWithCount, error) {
	var tags []TagWithCount
	err := r.db.WithContext(ctx).
		Model(&models.Tag{}).
		Select("tags.*, COUNT(post_tags.post_id) AS usage_count").
		Joins("LEFT JOIN post_tags ON post_tags.tag_id = tags.id").
		Group("tags.id").
		Order("usage_count DESC").
		Limit(limit).
		Find(&tags).Error
	return tags, err
}
