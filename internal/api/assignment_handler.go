package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/labelkit/labelkit/internal/middleware"
	"github.com/labelkit/labelkit/internal/services"
)

type assignRequest struct {
	UserIDToAssign     string `json:"user_id_to_assign"`
	QuestionRangeStart int    `json:"question_range_start"`
	QuestionRangeEnd   int    `json:"question_range_end"`
}

// POST /api/v1/assignments/task/:task_id/assign
func (s *Server) createAssignment(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.QuestionRangeStart == 0 {
		req.QuestionRangeStart = 1
	}
	a, err := s.assignments.Create(c.Param("task_id"), req.UserIDToAssign,
		req.QuestionRangeStart, req.QuestionRangeEnd)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, a)
}

// GET /api/v1/assignments/task/:task_id
// Returns the caller's own assignment for the task.
func (s *Server) getMyTaskAssignment(c *gin.Context) {
	user := middleware.CurrentUser(c)
	s.users.TouchLastActive(user.ID)
	if _, err := s.tasks.AccessibleBy(user, c.Param("task_id")); err != nil {
		respondServiceError(c, err)
		return
	}
	a, err := s.assignments.GetForTaskUser(c.Param("task_id"), user.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if a == nil {
		respondError(c, http.StatusNotFound, "no assignment for this task")
		return
	}
	respondOK(c, a)
}

// GET /api/v1/assignments/my?active_only=true
func (s *Server) listMyAssignments(c *gin.Context) {
	user := middleware.CurrentUser(c)
	s.users.TouchLastActive(user.ID)
	activeOnly := c.Query("active_only") == "true"
	list, err := s.assignments.ListForUser(user.ID, activeOnly)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, list)
}

// GET /api/v1/assignments/all?limit=&offset=
func (s *Server) listAllAssignments(c *gin.Context) {
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
	list, err := s.assignments.Overview(limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"assignments": list, "count": len(list)})
}

// GET /api/v1/assignments/stats
func (s *Server) assignmentStats(c *gin.Context) {
	stats, err := s.assignments.Stats()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, stats)
}

// GET /api/v1/assignments/export?format=csv|json
func (s *Server) exportAssignments(c *gin.Context) {
	var file *services.ExportFile
	var err error
	switch format := c.DefaultQuery("format", "csv"); format {
	case "csv":
		file, err = s.exports.AssignmentsCSV()
	case "json":
		file, err = s.exports.AssignmentsJSON()
	default:
		respondError(c, http.StatusBadRequest, "unsupported export format")
		return
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondFile(c, file)
}

// GET /api/v1/assignments/:id
func (s *Server) getAssignment(c *gin.Context) {
	detail, err := s.assignments.GetWithDetails(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, detail)
}

// PUT /api/v1/assignments/:id/status
func (s *Server) updateAssignmentStatus(c *gin.Context) {
	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		respondError(c, http.StatusBadRequest, "is_active required")
		return
	}
	a, err := s.assignments.UpdateStatus(c.Param("id"), *req.IsActive)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

// PUT /api/v1/assignments/:id/progress
func (s *Server) updateAssignmentProgress(c *gin.Context) {
	var req struct {
		CompletedLabels *int `json:"completed_labels"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.CompletedLabels == nil {
		respondError(c, http.StatusBadRequest, "completed_labels required")
		return
	}
	a, err := s.assignments.SetProgress(c.Param("id"), *req.CompletedLabels)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}
