package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/labelkit/labelkit/internal/services"
)

type labelClassRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

func (r labelClassRequest) toInput() services.LabelClassInput {
	return services.LabelClassInput{Name: r.Name, Description: r.Description, Color: r.Color}
}

// GET /api/v1/tasks/label-classes?include_inactive=true
func (s *Server) listLabelClasses(c *gin.Context) {
	activeOnly := c.Query("include_inactive") != "true"
	list, err := s.labels.List(activeOnly)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, list)
}

// POST /api/v1/tasks/label-classes
func (s *Server) createLabelClass(c *gin.Context) {
	var req labelClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	class, err := s.labels.Create(req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, class)
}

// PUT /api/v1/tasks/label-classes/:id
func (s *Server) updateLabelClass(c *gin.Context) {
	var req labelClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	class, err := s.labels.Update(c.Param("id"), req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, class)
}

// DELETE /api/v1/tasks/label-classes/:id
func (s *Server) deleteLabelClass(c *gin.Context) {
	if err := s.labels.Delete(c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"message": "label class deleted"})
}
