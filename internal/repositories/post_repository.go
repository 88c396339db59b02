package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/zephyrsocial/zephyr/backend/internal/aura"
	"github.com/zephyrsocial/zephyr/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations, including
// the atomic submission flow that ties post creation, tag linking, the aura
// score increment and the audit rows into one transaction.
type PostRepository interface {
	SubmitPost(ctx context.Context, authorID uint, content string, mediaIDs []uint, tagNames []string) (*models.Post, error)
	GetPostByID(ctx context.Context, id uint) (*models.Post, error)
	GetPostsByAuthorID(ctx context.Context, authorID uint, offset, limit int) ([]models.Post, error)
	GetAllPosts(ctx context.Context, offset, limit int) ([]models.Post, error)
	UpdatePostTags(ctx context.Context, postID, callerID uint, tagNames []string) (*models.Post, []string, []string, error)
	DeletePost(ctx context.Context, postID, callerID uint) error
	UpdateViewCounts(ctx context.Context, counts map[uint]int64) error
	GetViewCounts(ctx context.Context, postIDs []uint) (map[uint]int64, error)
}

// PostgresPostRepository implements PostRepository for PostgreSQL
type PostgresPostRepository struct {
	db *gorm.DB
}

// NewPostgresPostRepository creates a new PostgresPostRepository
func NewPostgresPostRepository(db *gorm.DB) *PostgresPostRepository {
	return &PostgresPostRepository{db: db}
}

// NormalizeTags lowercases tag names, trims whitespace and deduplicates while
// preserving first-seen order.
func NormalizeTags(tagNames []string) []string {
	seen := make(map[string]struct{}, len(tagNames))
	out := make([]string, 0, len(tagNames))
	for _, name := range tagNames {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// upsertTag creates the tag if absent or fetches the existing row. The create
// uses ON CONFLICT DO NOTHING, so a concurrent creation of the same name
// resolves to a single row instead of failing on the unique index.
func upsertTag(tx *gorm.DB, name string) (models.Tag, error) {
	tag := models.Tag{Name: name}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&tag).Error; err != nil {
		return models.Tag{}, err
	}
	if tag.ID == 0 {
		// Conflict path: the row already existed, fetch it.
		if err := tx.Where("name = ?", name).First(&tag).Error; err != nil {
			return models.Tag{}, err
		}
	}
	return tag, nil
}

// SubmitPost creates a post with its media links, tag links, aura score
// increment and audit rows in a single all-or-nothing transaction. Any
// failure rolls everything back: no partial post, no partial audit rows, no
// partial score change. The operation is not idempotent; repeating it creates
// a second, distinct post.
func (r *PostgresPostRepository) SubmitPost(ctx context.Context, authorID uint, content string, mediaIDs []uint, tagNames []string) (*models.Post, error) {
	normalized := NormalizeTags(tagNames)

	var post *models.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Resolve media first: every id must exist and be unclaimed.
		var media []models.MediaAttachment
		if len(mediaIDs) > 0 {
			if err := tx.Where("id IN ? AND post_id IS NULL", mediaIDs).Find(&media).Error; err != nil {
				return err
			}
			if len(media) != len(uniqueIDs(mediaIDs)) {
				return ErrMediaNotFound
			}
		}

		types := make([]models.MediaType, len(media))
		for i, m := range media {
			types[i] = m.Type
		}
		reward := aura.ComputeReward(types)

		tags := make([]models.Tag, 0, len(normalized))
		for _, name := range normalized {
			tag, err := upsertTag(tx, name)
			if err != nil {
				return err
			}
			tags = append(tags, tag)
		}

		p := &models.Post{AuthorID: authorID, Content: content}
		if err := tx.Create(p).Error; err != nil {
			return err
		}

		if len(media) > 0 {
			// The claim re-checks post_id IS NULL: under read committed a
			// concurrent submission can grab the row between our read and
			// this write, and a guard-free UPDATE would silently re-point it.
			res := tx.Model(&models.MediaAttachment{}).
				Where("id IN ? AND post_id IS NULL", mediaIDs).
				Update("post_id", p.ID)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != int64(len(media)) {
				return ErrMediaNotFound
			}
		}

		if len(tags) > 0 {
			if err := tx.Model(p).Association("Tags").Append(&tags); err != nil {
				return err
			}
		}

		// Atomic credit on the author's cumulative score.
		res := tx.Model(&models.User{}).
			Where("id = ?", authorID).
			UpdateColumn("aura_score", gorm.Expr("aura_score + ?", reward))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}

		// One base row per post, plus at most one bonus row.
		baseLog := models.AuraLog{
			UserID:   authorID,
			IssuerID: authorID,
			Amount:   aura.Rewards.BasePost,
			Type:     models.AuraLogPostCreation,
			PostID:   p.ID,
		}
		if err := tx.Create(&baseLog).Error; err != nil {
			return err
		}
		if reward > aura.Rewards.BasePost {
			bonusLog := models.AuraLog{
				UserID:   authorID,
				IssuerID: authorID,
				Amount:   reward - aura.Rewards.BasePost,
				Type:     models.AuraLogPostAttachmentBonus,
				PostID:   p.ID,
			}
			if err := tx.Create(&bonusLog).Error; err != nil {
				return err
			}
		}

		if err := tx.Preload("Tags").Preload("Attachments").First(p, p.ID).Error; err != nil {
			return err
		}
		post = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// GetPostByID retrieves a post with its tags and attachments
func (r *PostgresPostRepository) GetPostByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Preload("Tags").Preload("Attachments").First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// GetPostsByAuthorID retrieves posts by a specific author, newest first
func (r *PostgresPostRepository) GetPostsByAuthorID(ctx context.Context, authorID uint, offset, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Preload("Tags").Preload("Attachments").
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&posts).Error
	return posts, err
}

// GetAllPosts retrieves all posts with pagination, newest first
func (r *PostgresPostRepository) GetAllPosts(ctx context.Context, offset, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Preload("Tags").Preload("Attachments").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&posts).Error
	return posts, err
}

// UpdatePostTags replaces a post's tag set transactionally. Only the author
// may do this. Returns the updated post plus the added and removed tag names
// so the caller can adjust the tag count cache after commit.
func (r *PostgresPostRepository) UpdatePostTags(ctx context.Context, postID, callerID uint, tagNames []string) (*models.Post, []string, []string, error) {
	normalized := NormalizeTags(tagNames)

	var (
		post    *models.Post
		added   []string
		removed []string
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Post
		if err := tx.Preload("Tags").First(&p, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}
		if p.AuthorID != callerID {
			return ErrNotPostAuthor
		}

		oldNames := make(map[string]models.Tag, len(p.Tags))
		for _, tag := range p.Tags {
			oldNames[tag.Name] = tag
		}
		newNames := make(map[string]struct{}, len(normalized))
		for _, name := range normalized {
			newNames[name] = struct{}{}
		}

		for _, name := range normalized {
			if _, ok := oldNames[name]; !ok {
				added = append(added, name)
			}
		}
		var toRemove []models.Tag
		for name, tag := range oldNames {
			if _, ok := newNames[name]; !ok {
				removed = append(removed, name)
				toRemove = append(toRemove, tag)
			}
		}

		for _, name := range added {
			tag, err := upsertTag(tx, name)
			if err != nil {
				return err
			}
			if err := tx.Model(&p).Association("Tags").Append(&tag); err != nil {
				return err
			}
		}
		if len(toRemove) > 0 {
			if err := tx.Model(&p).Association("Tags").Delete(&toRemove); err != nil {
				return err
			}
		}

		if err := tx.Preload("Tags").Preload("Attachments").First(&p, p.ID).Error; err != nil {
			return err
		}
		post = &p
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return post, added, removed, nil
}

// DeletePost deletes a post owned by the caller. Tag links and media links
// are detached; aura log rows stay, they are an immutable audit trail.
func (r *PostgresPostRepository) DeletePost(ctx context.Context, postID, callerID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Post
		if err := tx.First(&p, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}
		if p.AuthorID != callerID {
			return ErrNotPostAuthor
		}
		if err := tx.Model(&p).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Model(&models.MediaAttachment{}).
			Where("post_id = ?", p.ID).
			Update("post_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&p).Error
	})
}

// UpdateViewCounts writes absolute view counter values for one reconciliation
// batch in a single transaction. Absolute writes keep the flush idempotent:
// re-applying the same snapshot is a no-op.
func (r *PostgresPostRepository) UpdateViewCounts(ctx context.Context, counts map[uint]int64) error {
	if len(counts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, views := range counts {
			if err := tx.Model(&models.Post{}).
				Where("id = ?", id).
				UpdateColumn("view_count", views).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetViewCounts reads the authoritative view_count column for the given posts
func (r *PostgresPostRepository) GetViewCounts(ctx context.Context, postIDs []uint) (map[uint]int64, error) {
	result := make(map[uint]int64, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		ID        uint
		ViewCount int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("id, view_count").
		Where("id IN ?", postIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ID] = row.ViewCount
	}
	return result, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
