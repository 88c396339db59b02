package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/zephyrsocial/zephyr/backend/internal/cache"
	"github.com/zephyrsocial/zephyr/backend/internal/models"
	"github.com/zephyrsocial/zephyr/backend/internal/repositories"
	"go.uber.org/zap"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	postRepository repositories.PostRepository
	viewsCache     *cache.PostViewsCache
	tagCache       *cache.TagCountCache
	shareCache     *cache.ShareStatsCache
	logger         *zap.Logger
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postRepo repositories.PostRepository, viewsCache *cache.PostViewsCache, tagCache *cache.TagCountCache, shareCache *cache.ShareStatsCache, logger *zap.Logger) *PostHandler {
	return &PostHandler{
		postRepository: postRepo,
		viewsCache:     viewsCache,
		tagCache:       tagCache,
		shareCache:     shareCache,
		logger:         logger.Named("posts"),
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.SubmitPost)
	g.GET("/posts/:id", h.GetPost)
	g.GET("/posts", h.GetPosts)
	g.DELETE("/posts/:id", h.DeletePost)
	g.PUT("/posts/:id/tags", h.UpdatePostTags)
	g.POST("/posts/:id/views", h.IncrementPostView)
	g.GET("/posts/:id/views", h.GetPostViews)
	g.POST("/posts/:id/share/:platform", h.RecordShare)
	g.GET("/posts/:id/share-stats", h.GetShareStats)
}

// SubmitPost creates a post with its attachments, tags and aura reward in one
// atomic operation, then bumps the tag counters in the cache best-effort.
func (h *PostHandler) SubmitPost(c echo.Context) error {
	claims, err := currentUser(c)
	if err != nil {
		return err
	}

	var req models.SubmitPostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	post, err := h.postRepository.SubmitPost(c.Request().Context(), claims.UserID, req.Content, req.MediaIDs, req.Tags)
	if err != nil {
		if errors.Is(err, repositories.ErrMediaNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "One or more media attachments not found")
		}
		if errors.Is(err, repositories.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Unknown user")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create post")
	}

	// Best-effort: a cache failure never fails the submission, the counters
	// just lag until the tag is touched again.
	for _, tag := range post.Tags {
		if err := h.tagCache.IncrementTagCount(c.Request().Context(), tag.Name); err != nil {
			h.logger.Warn("Failed to increment tag counter", zap.String("tag", tag.Name), zap.Error(err))
		}
	}

	return c.JSON(http.StatusCreated, post)
}

// GetPost retrieves a post by ID
func (h *PostHandler) GetPost(c echo.Context) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		if errors.Is(err, repositories.ErrPostNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, post)
}

// GetPosts retrieves multiple posts
func (h *PostHandler) GetPosts(c echo.Context) error {
	authorID, _ := strconv.ParseUint(c.QueryParam("author_id"), 10, 64)
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit == 0 {
		limit = 10 // Default limit
	}

	var posts []models.Post
	var err error
	if authorID != 0 {
		posts, err = h.postRepository.GetPostsByAuthorID(c.Request().Context(), uint(authorID), offset, limit)
	} else {
		posts, err = h.postRepository.GetAllPosts(c.Request().Context(), offset, limit)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, posts)
}

// DeletePost deletes a post owned by the caller
func (h *PostHandler) DeletePost(c echo.Context) error {
	claims, err := currentUser(c)
	if err != nil {
		return err
	}
	postID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.postRepository.DeletePost(c.Request().Context(), postID, claims.UserID); err != nil {
		if errors.Is(err, repositories.ErrPostNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		if errors.Is(err, repositories.ErrNotPostAuthor) {
			return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this post")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}

// UpdatePostTags replaces the post's tag set (author only) and adjusts the
// tag counters in the cache afterwards, best-effort.
func (h *PostHandler) UpdatePostTags(c echo.Context) error {
	claims, err := currentUser(c)
	if err != nil {
		return err
	}
	postID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req models.UpdatePostTagsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	post, added, removed, err := h.postRepository.UpdatePostTags(c.Request().Context(), postID, claims.UserID, req.Tags)
	if err != nil {
		if errors.Is(err, repositories.ErrPostNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		if errors.Is(err, repositories.ErrNotPostAuthor) {
			return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to update this post")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	ctx := c.Request().Context()
	for _, name := range added {
		if err := h.tagCache.IncrementTagCount(ctx, name); err != nil {
			h.logger.Warn("Failed to increment tag counter", zap.String("tag", name), zap.Error(err))
		}
	}
	for _, name := range removed {
		if err := h.tagCache.DecrementTagCount(ctx, name); err != nil {
			h.logger.Warn("Failed to decrement tag counter", zap.String("tag", name), zap.Error(err))
		}
	}

	return c.JSON(http.StatusOK, post)
}

// IncrementPostView bumps the view counter in the cache and returns the new
// count. The authoritative posts.view_count catches up at reconciliation.
func (h *PostHandler) IncrementPostView(c echo.Context) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	count, err := h.viewsCache.IncrementView(c.Request().Context(), postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "View counter temporarily unavailable")
	}
	return c.JSON(http.StatusOK, echo.Map{"views": count})
}

// GetPostViews returns the cached view count for a post
func (h *PostHandler) GetPostViews(c echo.Context) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	count, err := h.viewsCache.GetViews(c.Request().Context(), postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "View counter temporarily unavailable")
	}
	return c.JSON(http.StatusOK, echo.Map{"views": count})
}

// RecordShare bumps the share counter for one platform
func (h *PostHandler) RecordShare(c echo.Context) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	platform := c.Param("platform")
	if !isKnownPlatform(platform) {
		return echo.NewHTTPError(http.StatusBadRequest, "Unknown share platform")
	}

	count, err := h.shareCache.IncrementShare(c.Request().Context(), postID, platform)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Share counter temporarily unavailable")
	}
	return c.JSON(http.StatusOK, echo.Map{"platform": platform, "shares": count})
}

// GetShareStats returns share counts across all tracked platforms
func (h *PostHandler) GetShareStats(c echo.Context) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	stats, err := h.shareCache.GetStats(c.Request().Context(), postID, cache.SharePlatforms)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Share stats temporarily unavailable")
	}
	return c.JSON(http.StatusOK, stats)
}

func isKnownPlatform(platform string) bool {
	for _, p := range cache.SharePlatforms {
		if p == platform {
			return true
		}
	}
	return false
}

// parseID reads a numeric path parameter
func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}
