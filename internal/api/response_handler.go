package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/labelkit/labelkit/internal/middleware"
	"github.com/labelkit/labelkit/internal/services"
)

type submitRequest struct {
	TaskID         string              `json:"task_id"`
	QuestionIndex  *int                `json:"question_index"`
	Answers        map[string][]string `json:"answers"`
	Confidence     *int                `json:"confidence"`
	ElapsedSeconds *int                `json:"elapsed_seconds"`
	StartedAt      *time.Time          `json:"started_at"`
	Metadata       map[string]any      `json:"metadata"`
}

// POST /api/v1/responses
// POST /api/v1/responses/detailed
// Both run the same submission workflow and return the detailed result.
func (s *Server) submitResponse(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.QuestionIndex == nil {
		respondError(c, http.StatusBadRequest, "question_index required")
		return
	}
	user := middleware.CurrentUser(c)
	result, err := s.responses.Submit(user.ID, services.SubmitRequest{
		TaskID:         req.TaskID,
		QuestionIndex:  *req.QuestionIndex,
		Answers:        req.Answers,
		Confidence:     req.Confidence,
		ElapsedSeconds: req.ElapsedSeconds,
		StartedAt:      req.StartedAt,
		Metadata:       req.Metadata,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, result)
}

// GET /api/v1/responses/my?task_id=
func (s *Server) listMyResponses(c *gin.Context) {
	user := middleware.CurrentUser(c)
	list, err := s.responses.ListForUser(user.ID, c.Query("task_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, list)
}

// GET /api/v1/responses/my/question/:task_id/:question_index
// Data is omitted when the question has not been answered yet.
func (s *Server) getMyResponseForQuestion(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("question_index"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid question index")
		return
	}
	user := middleware.CurrentUser(c)
	resp, err := s.responses.GetForQuestion(user.ID, c.Param("task_id"), index)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if resp == nil {
		respondOK(c, nil)
		return
	}
	respondOK(c, resp)
}
