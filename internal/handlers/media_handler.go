package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/zephyrsocial/zephyr/backend/internal/models"
	"github.com/zephyrsocial/zephyr/backend/internal/repositories"
)

// MediaHandler handles HTTP requests for media attachment metadata.
// Blob storage itself lives elsewhere; this only registers uploads.
type MediaHandler struct {
	mediaRepository repositories.MediaRepository
}

// NewMediaHandler creates a new MediaHandler
func NewMediaHandler(mediaRepo repositories.MediaRepository) *MediaHandler {
	return &MediaHandler{mediaRepository: mediaRepo}
}

// RegisterMediaRoutes registers media-related routes
func (h *MediaHandler) RegisterMediaRoutes(g *echo.Group) {
	g.POST("/media", h.CreateMedia)
	g.GET("/media/pending", h.GetPendingMedia)
}

// CreateMedia registers uploaded media so a later post can attach it
func (h *MediaHandler) CreateMedia(c echo.Context) error {
	claims, err := currentUser(c)
	if err != nil {
		return err
	}

	var req models.CreateMediaRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	media := &models.MediaAttachment{
		UploaderID: claims.UserID,
		Type:       req.Type,
		URL:        req.URL,
	}
	if err := h.mediaRepository.CreateMedia(c.Request().Context(), media); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, media)
}

// GetPendingMedia lists the caller's uploads not yet attached to a post
func (h *MediaHandler) GetPendingMedia(c echo.Context) error {
	claims, err := currentUser(c)
	if err != nil {
		return err
	}

	media, err := h.mediaRepository.GetUnattachedMediaByUploader(c.Request().Context(), claims.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, media)
}
