package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/zephyrsocial/zephyr/backend/internal/models"
	"github.com/zephyrsocial/zephyr/backend/internal/repositories"
)

// BookmarkHandler handles bookmark HTTP requests
type BookmarkHandler struct {
	bookmarkRepository repositories.BookmarkRepository
	postRepository     repositories.PostRepository
}

// NewBookmarkHandler creates a new BookmarkHandler
func NewBookmarkHandler(bookmarkRepo repositories.BookmarkRepository, postRepo repositories.PostRepository) *BookmarkHandler {
	return &BookmarkHandler{bookmarkRepository: bookmarkRepo, postRepository: postRepo}
}

// RegisterBookmarkRoutes registers bookmark-related routes
func (h *BookmarkHandler) RegisterBookmarkRoutes(g *echo.Group) {
	g.POST("/posts/:id/bookmark", h.SavePost)
	g.DELETE("/posts/:id/bookmark", h.UnsavePost)
	g.GET("/bookmarks", h.GetBookmarks)
}

// SavePost bookmarks a post for the caller
func (h *BookmarkHandler) SavePost(c echo.Context) error {
	claims, err := currentUser(c)
	if err != nil {
		return err
	}
	postID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if _, err := h.postRepository.GetPostByID(c.Request().Context(), postID); err != nil {
		if errors.Is(err, repositories.ErrPostNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	bookmark := &models.Bookmark{UserID: claims.UserID, PostID: postID}
	if err := h.bookmarkRepository.SavePost(bookmark); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// UnsavePost removes a bookmark
func (h *BookmarkHandler) UnsavePost(c echo.Context) error {
	claims, err := currentUser(c)
	if err != nil {
		return err
	}
	postID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.bookmarkRepository.UnsavePost(claims.UserID, postID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Bookmark not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// GetBookmarks lists the caller's bookmarks, newest first
func (h *BookmarkHandler) GetBookmarks(c echo.Context) error {
	claims, err := currentUser(c)
	if err != nil {
		return err
	}

	bookmarks, err := h.bookmarkRepository.GetBookmarksByUser(claims.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, bookmarks)
}
