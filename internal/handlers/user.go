package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/zephyrsocial/zephyr/backend/internal/repositories"
)

// UserHandler handles user profile HTTP requests
type UserHandler struct {
	userRepository    repositories.UserRepository
	auraLogRepository repositories.AuraLogRepository
	followRepository  repositories.FollowRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, auraLogRepo repositories.AuraLogRepository, followRepo repositories.FollowRepository) *UserHandler {
	return &UserHandler{
		userRepository:    userRepo,
		auraLogRepository: auraLogRepo,
		followRepository:  followRepo,
	}
}

// RegisterUserRoutes registers user-related routes
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.GET("/users/me", h.GetMe)
	g.GET("/users/trending", h.GetTrendingUsers)
	g.GET("/users/:id", h.GetUser)
	g.GET("/users/:id/aura", h.GetAuraHistory)
}

// GetMe returns the authenticated user's profile
func (h *UserHandler) GetMe(c echo.Context) error {
	claims, err := currentUser(c)
	if err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(claims.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	return c.JSON(http.StatusOK, user)
}

// GetUser returns a user profile with follower counts
func (h *UserHandler) GetUser(c echo.Context) error {
	userID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	followers, err := h.followRepository.GetFollowersCount(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	following, err := h.followRepository.GetFollowingCount(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user":            user,
		"followers_count": followers,
		"following_count": following,
	})
}

// GetAuraHistory returns a user's aura audit trail, newest first
func (h *UserHandler) GetAuraHistory(c echo.Context) error {
	userID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit == 0 {
		limit = 20
	}

	logs, err := h.auraLogRepository.GetLogsByUserID(c.Request().Context(), userID, offset, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, logs)
}

// GetTrendingUsers returns users ordered by follower count
func (h *UserHandler) GetTrendingUsers(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit == 0 || limit > 20 {
		limit = 6
	}

	users, err := h.userRepository.GetTrendingUsers(limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch trending users")
	}
	return c.JSON(http.StatusOK, users)
}
