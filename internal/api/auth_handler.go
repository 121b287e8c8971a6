package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/labelkit/labelkit/internal/middleware"
	"github.com/labelkit/labelkit/internal/services"
)

type profileRequest struct {
	FullName            *string  `json:"full_name"`
	PreferredCategories []string `json:"preferred_categories"`
}

// GET /api/v1/auth/me
func (s *Server) getMe(c *gin.Context) {
	user := middleware.CurrentUser(c)
	s.users.TouchLastActive(user.ID)
	respondOK(c, user)
}

// GET /api/v1/auth/profile
func (s *Server) getProfile(c *gin.Context) {
	profile, err := s.users.GetProfile(middleware.CurrentUser(c).ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, profile)
}

// PUT /api/v1/auth/profile
func (s *Server) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	user := middleware.CurrentUser(c)
	profile, err := s.users.UpdateProfile(user.ID, services.ProfileUpdate{
		FullName:            req.FullName,
		PreferredCategories: req.PreferredCategories,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	s.users.TouchLastActive(user.ID)
	respondOK(c, profile)
}

// GET /api/v1/auth/stats
func (s *Server) getMyStats(c *gin.Context) {
	user := middleware.CurrentUser(c)
	stats, err := s.users.GetStats(user.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	s.users.TouchLastActive(user.ID)
	respondOK(c, stats)
}

// POST /api/v1/auth/refresh
func (s *Server) refreshSession(c *gin.Context) {
	s.users.TouchLastActive(middleware.CurrentUser(c).ID)
	respondOK(c, gin.H{"message": "session refreshed"})
}
