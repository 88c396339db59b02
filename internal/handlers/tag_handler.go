package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/zephyrsocial/zephyr/backend/internal/cache"
	"github.com/zephyrsocial/zephyr/backend/internal/repositories"
)

// TagHandler handles tag discovery HTTP requests
type TagHandler struct {
	tagRepository repositories.TagRepository
	tagCache      *cache.TagCountCache
}

// NewTagHandler creates a new TagHandler
func NewTagHandler(tagRepo repositories.TagRepository, tagCache *cache.TagCountCache) *TagHandler {
	return &TagHandler{tagRepository: tagRepo, tagCache: tagCache}
}

// RegisterTagRoutes registers tag-related routes
func (h *TagHandler) RegisterTagRoutes(g *echo.Group) {
	g.GET("/tags/trending", h.GetTrendingTags)
	g.GET("/tags/:name/count", h.GetTagCount)
}

// GetTrendingTags returns the most used tags from the authoritative store
func (h *TagHandler) GetTrendingTags(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit == 0 || limit > 50 {
		limit = 10
	}

	tags, err := h.tagRepository.GetTrendingTags(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch trending tags")
	}
	return c.JSON(http.StatusOK, tags)
}

// GetTagCount returns the fast, eventually-consistent usage counter
func (h *TagHandler) GetTagCount(c echo.Context) error {
	name := strings.ToLower(strings.TrimSpace(c.Param("name")))
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid tag name")
	}

	count, err := h.tagCache.GetTagCount(c.Request().Context(), name)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Tag counter temporarily unavailable")
	}
	return c.JSON(http.StatusOK, echo.Map{"name": name, "count": count})
}
