package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/labelkit/labelkit/internal/middleware"
	"github.com/labelkit/labelkit/internal/models"
	"github.com/labelkit/labelkit/internal/services"
)

// selfOrAdmin allows users to read their own records; everything else is
// admin territory.
func selfOrAdmin(c *gin.Context, userID string) bool {
	u := middleware.CurrentUser(c)
	if u.Role == models.RoleAdmin || u.ID == userID {
		return true
	}
	respondError(c, http.StatusForbidden, "access denied")
	return false
}

// GET /api/v1/users?limit=&offset=
func (s *Server) listUsers(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 {
		respondError(c, http.StatusBadRequest, "invalid limit parameter")
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		respondError(c, http.StatusBadRequest, "invalid offset parameter")
		return
	}
	list, err := s.users.List(limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, list)
}

// GET /api/v1/users/search?q=
func (s *Server) searchUsers(c *gin.Context) {
	list, err := s.users.Search(c.Query("q"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, list)
}

// GET /api/v1/users/by-role/:role
func (s *Server) listUsersByRole(c *gin.Context) {
	list, err := s.users.ByRole(models.UserRole(c.Param("role")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, list)
}

// GET /api/v1/users/active?days=
func (s *Server) listActiveUsers(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid days parameter")
		return
	}
	list, err := s.users.ActiveSince(days)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, list)
}

// GET /api/v1/users/:id
func (s *Server) getUser(c *gin.Context) {
	id := c.Param("id")
	if !selfOrAdmin(c, id) {
		return
	}
	profile, err := s.users.GetProfile(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, profile)
}

// PUT /api/v1/users/:id
func (s *Server) updateUser(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	profile, err := s.users.UpdateProfile(c.Param("id"), services.ProfileUpdate{
		FullName:            req.FullName,
		PreferredCategories: req.PreferredCategories,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, profile)
}

// PUT /api/v1/users/:id/role
func (s *Server) updateUserRole(c *gin.Context) {
	var req struct {
		Role string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	id := c.Param("id")
	role := models.UserRole(req.Role)
	if id == middleware.CurrentUser(c).ID && role != models.RoleAdmin {
		respondError(c, http.StatusBadRequest, "cannot remove admin role from your own account")
		return
	}
	profile, err := s.users.UpdateRole(id, role)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, profile)
}

// GET /api/v1/users/:id/performance
func (s *Server) getUserPerformance(c *gin.Context) {
	id := c.Param("id")
	if !selfOrAdmin(c, id) {
		return
	}
	perf, err := s.users.Performance(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, perf)
}

// GET /api/v1/users/:id/activity?days=
func (s *Server) getUserActivity(c *gin.Context) {
	id := c.Param("id")
	if !selfOrAdmin(c, id) {
		return
	}
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid days parameter")
		return
	}
	activity, err := s.users.Activity(id, days)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, activity)
}

// POST /api/v1/users/:id/deactivate
func (s *Server) deactivateUser(c *gin.Context) {
	id := c.Param("id")
	if id == middleware.CurrentUser(c).ID {
		respondError(c, http.StatusBadRequest, "cannot deactivate your own account")
		return
	}
	profile, err := s.users.Deactivate(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, profile)
}

// POST /api/v1/users/:id/reactivate
func (s *Server) reactivateUser(c *gin.Context) {
	profile, err := s.users.Reactivate(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, profile)
}
