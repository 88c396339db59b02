package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zephyrsocial/zephyr/backend/internal/cache"
	"github.com/zephyrsocial/zephyr/backend/internal/handlers"
	"github.com/zephyrsocial/zephyr/backend/internal/models"
	"github.com/zephyrsocial/zephyr/backend/internal/repositories"
	"github.com/zephyrsocial/zephyr/backend/validators"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	e        *echo.Echo
	db       *gorm.DB
	handler  *handlers.PostHandler
	tagCache *cache.TagCountCache
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.MediaAttachment{}, &models.Post{},
		&models.Tag{}, &models.AuraLog{},
	))

	e := echo.New()
	e.Validator = validators.NewValidator()

	logger := zap.NewNop()
	postRepo := repositories.NewPostgresPostRepository(db)
	tagCache := cache.NewTagCountCache(rdb, logger)
	handler := handlers.NewPostHandler(
		postRepo,
		cache.NewPostViewsCache(rdb, logger),
		tagCache,
		cache.NewShareStatsCache(rdb, logger),
		logger,
	)

	return &testEnv{e: e, db: db, handler: handler, tagCache: tagCache}
}

func (env *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com"}
	require.NoError(t, env.db.Create(user).Error)
	return user
}

// newRequest builds an echo context, optionally authenticated as user.
func (env *testEnv) newRequest(method, target, body string, user *models.User) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	if user != nil {
		c.Set("user", &models.JwtCustomClaims{UserID: user.ID, Username: user.Username})
	}
	return c, rec
}

func TestSubmitPostHandler(t *testing.T) {
	t.Parallel()
	env := setupEnv(t)
	author := env.createUser(t, "alice")

	c, rec := env.newRequest(http.MethodPost, "/api/v1/posts",
		`{"content":"hello","tags":["Go","Web"]}`, author)
	require.NoError(t, env.handler.SubmitPost(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Tag counters were bumped after commit.
	n, err := env.tagCache.GetTagCount(t.Context(), "go")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// The aura audit rows exist.
	var logCount int64
	require.NoError(t, env.db.Model(&models.AuraLog{}).Count(&logCount).Error)
	assert.Equal(t, int64(1), logCount)
}

func TestSubmitPostHandlerUnauthorized(t *testing.T) {
	t.Parallel()
	env := setupEnv(t)

	c, _ := env.newRequest(http.MethodPost, "/api/v1/posts", `{"content":"hi"}`, nil)
	err := env.handler.SubmitPost(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestSubmitPostHandlerMissingMedia(t *testing.T) {
	t.Parallel()
	env := setupEnv(t)
	author := env.createUser(t, "bob")

	c, _ := env.newRequest(http.MethodPost, "/api/v1/posts",
		`{"content":"broken","media_ids":[999]}`, author)
	err := env.handler.SubmitPost(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestUpdatePostTagsHandlerNonOwner(t *testing.T) {
	t.Parallel()
	env := setupEnv(t)
	author := env.createUser(t, "carol")
	intruder := env.createUser(t, "mallory")

	c, rec := env.newRequest(http.MethodPost, "/api/v1/posts",
		`{"content":"mine","tags":["original"]}`, author)
	require.NoError(t, env.handler.SubmitPost(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var post models.Post
	require.NoError(t, env.db.First(&post).Error)

	c, _ = env.newRequest(http.MethodPut, "/api/v1/posts/:id/tags",
		`{"tags":["stolen"]}`, intruder)
	c.SetParamNames("id")
	c.SetParamValues(itoa(post.ID))
	err := env.handler.UpdatePostTags(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
}

func TestViewEndpoints(t *testing.T) {
	t.Parallel()
	env := setupEnv(t)
	author := env.createUser(t, "dave")

	c, rec := env.newRequest(http.MethodPost, "/api/v1/posts", `{"content":"seen"}`, author)
	require.NoError(t, env.handler.SubmitPost(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var post models.Post
	require.NoError(t, env.db.First(&post).Error)

	c, rec = env.newRequest(http.MethodPost, "/api/v1/posts/:id/views", "", nil)
	c.SetParamNames("id")
	c.SetParamValues(itoa(post.ID))
	require.NoError(t, env.handler.IncrementPostView(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"views":1}`, rec.Body.String())

	c, rec = env.newRequest(http.MethodGet, "/api/v1/posts/:id/views", "", nil)
	c.SetParamNames("id")
	c.SetParamValues(itoa(post.ID))
	require.NoError(t, env.handler.GetPostViews(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"views":1}`, rec.Body.String())
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
