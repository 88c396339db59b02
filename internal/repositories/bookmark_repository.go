package repositories

import (
	"fmt"

	"github.com/zephyrsocial/zephyr/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookmarkRepository defines the interface for bookmark operations
type BookmarkRepository interface {
	SavePost(bookmark *models.Bookmark) error
	UnsavePost(userID, postID uint) error
	IsPostSaved(userID, postID uint) (bool, error)
	GetBookmarksByUser(userID uint) ([]models.Bookmark, error)
}

// PostgresBookmarkRepository implements BookmarkRepository
type PostgresBookmarkRepository struct {
	db *gorm.DB
}

func NewPostgresBookmarkRepository(db *gorm.DB) *PostgresBookmarkRepository {
	return &PostgresBookmarkRepository{db: db}
}

// SavePost bookmarks a post; bookmarking twice is a no-op
func (r *PostgresBookmarkRepository) SavePost(bookmark *models.Bookmark) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(bookmark).Error
}

func (r *PostgresBookmarkRepository) UnsavePost(userID, postID uint) error {
	res := r.db.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Bookmark{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("bookmark not found")
	}
	return nil
}

func (r *PostgresBookmarkRepository) IsPostSaved(userID, postID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Bookmark{}).Where("user_id = ? AND post_id = ?", userID, postID).Count(&count).Error
	return count > 0, err
}

func (r *PostgresBookmarkRepository) GetBookmarksByUser(userID uint) ([]models.Bookmark, error) {
	var bookmarks []models.Bookmark
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&bookmarks).Error
	return bookmarks, err
}
