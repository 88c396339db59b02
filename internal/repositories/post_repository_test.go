package repositories_test

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zephyrsocial/zephyr/backend/internal/aura"
	"github.com/zephyrsocial/zephyr/backend/internal/models"
	"github.com/zephyrsocial/zephyr/backend/internal/repositories"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// A single connection keeps the in-memory database alive for the
	// whole test and still exercises real transactions.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.MediaAttachment{},
		&models.Post{},
		&models.Tag{},
		&models.AuraLog{},
		&models.Follow{},
		&models.Bookmark{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createMedia(t *testing.T, db *gorm.DB, uploaderID uint, mt models.MediaType) *models.MediaAttachment {
	t.Helper()
	media := &models.MediaAttachment{UploaderID: uploaderID, Type: mt, URL: "https://cdn.example.com/x"}
	require.NoError(t, db.Create(media).Error)
	return media
}

func TestSubmitPostNoAttachments(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	repo := repositories.NewPostgresPostRepository(db)
	author := createUser(t, db, "alice")
	ctx := t.Context()

	post, err := repo.SubmitPost(ctx, author.ID, "hello world", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, author.ID, post.AuthorID)
	assert.Empty(t, post.Tags)
	assert.Empty(t, post.Attachments)

	// Flat base reward: one POST_CREATION row, no bonus row.
	var logs []models.AuraLog
	require.NoError(t, db.Where("post_id = ?", post.ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuraLogPostCreation, logs[0].Type)
	assert.Equal(t, aura.Rewards.BasePost, logs[0].Amount)

	var user models.User
	require.NoError(t, db.First(&user, author.ID).Error)
	assert.Equal(t, int64(aura.Rewards.BasePost), user.AuraScore)
}

func TestSubmitPostWithAttachmentsAndTags(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	repo := repositories.NewPostgresPostRepository(db)
	author := createUser(t, db, "bob")
	m1 := createMedia(t, db, author.ID, models.MediaTypeImage)
	m2 := createMedia(t, db, author.ID, models.MediaTypeImage)
	ctx := t.Context()

	post, err := repo.SubmitPost(ctx, author.ID, "two pics",
		[]uint{m1.ID, m2.ID}, []string{"Go", "go", " GOLANG "})
	require.NoError(t, err)

	// Tags are lowercased and deduplicated.
	names := make([]string, len(post.Tags))
	for i, tag := range post.Tags {
		names[i] = tag.Name
	}
	assert.ElementsMatch(t, []string{"go", "golang"}, names)

	// Both attachments are now owned by the post.
	require.Len(t, post.Attachments, 2)
	for _, m := range post.Attachments {
		require.NotNil(t, m.PostID)
		assert.Equal(t, post.ID, *m.PostID)
	}

	// Reward: base 10 + image base 20 + 2*5 = 40, split base + bonus.
	want := aura.ComputeReward([]models.MediaType{models.MediaTypeImage, models.MediaTypeImage})
	assert.Equal(t, 40, want)

	var logs []models.AuraLog
	require.NoError(t, db.Where("post_id = ?", post.ID).Order("amount ASC").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, models.AuraLogPostCreation, logs[0].Type)
	assert.Equal(t, aura.Rewards.BasePost, logs[0].Amount)
	assert.Equal(t, models.AuraLogPostAttachmentBonus, logs[1].Type)
	assert.Equal(t, want-aura.Rewards.BasePost, logs[1].Amount)

	total := 0
	for _, l := range logs {
		total += l.Amount
	}
	assert.Equal(t, want, total)

	var user models.User
	require.NoError(t, db.First(&user, author.ID).Error)
	assert.Equal(t, int64(want), user.AuraScore)
}

func TestSubmitPostMissingMediaRollsBack(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	repo := repositories.NewPostgresPostRepository(db)
	author := createUser(t, db, "carol")
	ctx := t.Context()

	_, err := repo.SubmitPost(ctx, author.ID, "broken", []uint{12345}, []string{"oops"})
	require.ErrorIs(t, err, repositories.ErrMediaNotFound)

	// Nothing from the aborted submission may survive.
	var postCount, logCount, tagCount int64
	require.NoError(t, db.Model(&models.Post{}).Count(&postCount).Error)
	require.NoError(t, db.Model(&models.AuraLog{}).Count(&logCount).Error)
	require.NoError(t, db.Model(&models.Tag{}).Count(&tagCount).Error)
	assert.Zero(t, postCount)
	assert.Zero(t, logCount)
	assert.Zero(t, tagCount)

	var user models.User
	require.NoError(t, db.First(&user, author.ID).Error)
	assert.Zero(t, user.AuraScore)
}

func TestSubmitPostMediaClaimedMidTransaction(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	repo := repositories.NewPostgresPostRepository(db)
	author := createUser(t, db, "erin")
	rival := createUser(t, db, "frank")
	media := createMedia(t, db, author.ID, models.MediaTypeImage)

	rivalPost := &models.Post{AuthorID: rival.ID, Content: "got there first"}
	require.NoError(t, db.Create(rivalPost).Error)

	// Claim the attachment for the rival's post right before the claim
	// UPDATE runs, after the availability read has already passed.
	stolen := false
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("claim_race", func(tx *gorm.DB) {
		if stolen || tx.Statement.Table != "media_attachments" {
			return
		}
		stolen = true
		require.NoError(t, tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE media_attachments SET post_id = ? WHERE id = ?", rivalPost.ID, media.ID).Error)
	}))
	t.Cleanup(func() { db.Callback().Update().Remove("claim_race") })

	_, err := repo.SubmitPost(t.Context(), author.ID, "late", []uint{media.ID}, nil)
	require.ErrorIs(t, err, repositories.ErrMediaNotFound)
	assert.True(t, stolen)

	// The losing submission must leave nothing behind.
	var postCount int64
	require.NoError(t, db.Model(&models.Post{}).Where("author_id = ?", author.ID).Count(&postCount).Error)
	assert.Zero(t, postCount)

	var user models.User
	require.NoError(t, db.First(&user, author.ID).Error)
	assert.Zero(t, user.AuraScore)
}

func TestSubmitPostReusesExistingTag(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	repo := repositories.NewPostgresPostRepository(db)
	author := createUser(t, db, "dave")
	ctx := t.Context()

	_, err := repo.SubmitPost(ctx, author.ID, "first", nil, []string{"shared"})
	require.NoError(t, err)
	_, err = repo.SubmitPost(ctx, author.ID, "second", nil, []string{"Shared"})
	require.NoError(t, err)

	var tagCount int64
	require.NoError(t, db.Model(&models.Tag{}).Where("name = ?", "shared").Count(&tagCount).Error)
	assert.Equal(t, int64(1), tagCount)
}

func TestUpdatePostTagsDiff(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	repo := repositories.NewPostgresPostRepository(db)
	author := createUser(t, db, "erin")
	ctx := t.Context()

	post, err := repo.SubmitPost(ctx, author.ID, "tagged", nil, []string{"keep", "drop"})
	require.NoError(t, err)

	updated, added, removed, err := repo.UpdatePostTags(ctx, post.ID, author.ID, []string{"keep", "new"})
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, added)
	assert.Equal(t, []string{"drop"}, removed)

	names := make([]string, len(updated.Tags))
	for i, tag := range updated.Tags {
		names[i] = tag.Name
	}
	assert.ElementsMatch(t, []string{"keep", "new"}, names)
}

func TestUpdatePostTagsNonOwner(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	repo := repositories.NewPostgresPostRepository(db)
	author := createUser(t, db, "frank")
	other := createUser(t, db, "mallory")
	ctx := t.Context()

	post, err := repo.SubmitPost(ctx, author.ID, "mine", nil, []string{"original"})
	require.NoError(t, err)

	_, _, _, err = repo.UpdatePostTags(ctx, post.ID, other.ID, []string{"hijacked"})
	require.ErrorIs(t, err, repositories.ErrNotPostAuthor)

	// Tag state is unchanged.
	reloaded, err := repo.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Tags, 1)
	assert.Equal(t, "original", reloaded.Tags[0].Name)
}

func TestUpdatePostTagsNotFound(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	repo := repositories.NewPostgresPostRepository(db)
	caller := createUser(t, db, "grace")

	_, _, _, err := repo.UpdatePostTags(t.Context(), 9999, caller.ID, []string{"x"})
	require.ErrorIs(t, err, repositories.ErrPostNotFound)
}

func TestUpdateViewCounts(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	repo := repositories.NewPostgresPostRepository(db)
	author := createUser(t, db, "heidi")
	ctx := t.Context()

	p1, err := repo.SubmitPost(ctx, author.ID, "one", nil, nil)
	require.NoError(t, err)
	p2, err := repo.SubmitPost(ctx, author.ID, "two", nil, nil)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateViewCounts(ctx, map[uint]int64{p1.ID: 7, p2.ID: 3}))

	counts, err := repo.GetViewCounts(ctx, []uint{p1.ID, p2.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int64{p1.ID: 7, p2.ID: 3}, counts)

	// Absolute writes: applying the same snapshot again changes nothing.
	require.NoError(t, repo.UpdateViewCounts(ctx, map[uint]int64{p1.ID: 7, p2.ID: 3}))
	counts, err = repo.GetViewCounts(ctx, []uint{p1.ID, p2.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int64{p1.ID: 7, p2.ID: 3}, counts)
}

func TestDeletePost(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	repo := repositories.NewPostgresPostRepository(db)
	author := createUser(t, db, "ivan")
	other := createUser(t, db, "judy")
	media := createMedia(t, db, author.ID, models.MediaTypeCode)
	ctx := t.Context()

	post, err := repo.SubmitPost(ctx, author.ID, "temp", []uint{media.ID}, []string{"gone"})
	require.NoError(t, err)

	require.ErrorIs(t, repo.DeletePost(ctx, post.ID, other.ID), repositories.ErrNotPostAuthor)
	require.NoError(t, repo.DeletePost(ctx, post.ID, author.ID))

	_, err = repo.GetPostByID(ctx, post.ID)
	require.ErrorIs(t, err, repositories.ErrPostNotFound)

	// Audit rows survive the delete.
	var logCount int64
	require.NoError(t, db.Model(&models.AuraLog{}).Where("post_id = ?", post.ID).Count(&logCount).Error)
	assert.Equal(t, int64(2), logCount)
}
