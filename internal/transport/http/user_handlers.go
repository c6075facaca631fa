package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/dmchat/dmchat-server/internal/store"
)

const searchLimit = 50

// UserHandlers provides HTTP handlers for user directory operations.
type UserHandlers struct {
	store store.UserStore
	log   *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(st store.UserStore, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		store: st,
		log:   logger,
	}
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Search lists users, optionally filtered by a case-insensitive username
// substring. Backs the recipient picker in the client.
// GET /api/users?q=query
func (h *UserHandlers) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))

	users, err := h.store.SearchUsers(c.Request.Context(), query, searchLimit)
	if err != nil {
		h.log.Error().Err(err).Str("query", query).Msg("failed to search users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, u := range users {
		response = append(response, UserResponse{
			ID:       u.ID,
			Username: u.Username,
		})
	}

	c.JSON(http.StatusOK, response)
}
