package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/zephyrsocial/zephyr/backend/internal/models"
	"github.com/zephyrsocial/zephyr/backend/internal/repositories"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	followRepository repositories.FollowRepository
	userRepository   repositories.UserRepository
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followRepo repositories.FollowRepository, userRepo repositories.UserRepository) *FollowHandler {
	return &FollowHandler{followRepository: followRepo, userRepository: userRepo}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.Follow)
	g.DELETE("/users/:id/follow", h.Unfollow)
	g.GET("/users/:id/followers", h.GetFollowers)
	g.GET("/users/:id/following", h.GetFollowing)
}

// Follow makes the caller follow the target user
func (h *FollowHandler) Follow(c echo.Context) error {
	claims, err := currentUser(c)
	if err != nil {
		return err
	}
	targetID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if targetID == claims.UserID {
		return echo.NewHTTPError(http.StatusBadRequest, "You cannot follow yourself")
	}

	if _, err := h.userRepository.GetUserByID(targetID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	follow := &models.Follow{FollowerID: claims.UserID, FollowingID: targetID}
	if err := h.followRepository.CreateFollow(follow); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// Unfollow removes the follow relationship
func (h *FollowHandler) Unfollow(c echo.Context) error {
	claims, err := currentUser(c)
	if err != nil {
		return err
	}
	targetID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.followRepository.DeleteFollow(claims.UserID, targetID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Follow relationship not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// GetFollowers lists the users following the target
func (h *FollowHandler) GetFollowers(c echo.Context) error {
	userID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	users, err := h.followRepository.GetFollowers(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, users)
}

// GetFollowing lists the users the target follows
func (h *FollowHandler) GetFollowing(c echo.Context) error {
	userID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	users, err := h.followRepository.GetFollowing(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, users)
}
