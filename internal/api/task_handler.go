package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/labelkit/labelkit/internal/middleware"
	"github.com/labelkit/labelkit/internal/models"
	"github.com/labelkit/labelkit/internal/services"
)

// taskRequest is the shared create/update payload. Pointer fields let
// updates distinguish omitted values from explicit zeroes.
type taskRequest struct {
	Title                  *string                  `json:"title"`
	Description            *string                  `json:"description"`
	Instructions           *string                  `json:"instructions"`
	Status                 *string                  `json:"status"`
	Priority               *string                  `json:"priority"`
	QuestionCount          *int                     `json:"question_count"`
	RequiredAgreementCount *int                     `json:"required_agreement_count"`
	Template               *models.QuestionTemplate `json:"question_template"`
	ExampleMedia           []string                 `json:"example_media"`
	RuleDescription        *string                  `json:"rule_description"`
	Deadline               *time.Time               `json:"deadline"`
	Metadata               map[string]any           `json:"metadata"`
}

func (r taskRequest) toInput() services.TaskInput {
	in := services.TaskInput{
		Template:     r.Template,
		ExampleMedia: r.ExampleMedia,
		Deadline:     r.Deadline,
		Metadata:     r.Metadata,
	}
	if r.Title != nil {
		in.Title = *r.Title
	}
	if r.Description != nil {
		in.Description = *r.Description
	}
	if r.Instructions != nil {
		in.Instructions = *r.Instructions
	}
	if r.Priority != nil {
		in.Priority = models.TaskPriority(*r.Priority)
	}
	if r.QuestionCount != nil {
		in.QuestionCount = *r.QuestionCount
	}
	if r.RequiredAgreementCount != nil {
		in.RequiredAgreementCount = *r.RequiredAgreementCount
	}
	if r.RuleDescription != nil {
		in.RuleDescription = *r.RuleDescription
	}
	return in
}

func (r taskRequest) toUpdate() services.TaskUpdate {
	up := services.TaskUpdate{
		Title:                  r.Title,
		Description:            r.Description,
		Instructions:           r.Instructions,
		QuestionCount:          r.QuestionCount,
		RequiredAgreementCount: r.RequiredAgreementCount,
		Template:               r.Template,
		ExampleMedia:           r.ExampleMedia,
		RuleDescription:        r.RuleDescription,
		Deadline:               r.Deadline,
		Metadata:               r.Metadata,
	}
	if r.Status != nil {
		st := models.TaskStatus(*r.Status)
		up.Status = &st
	}
	if r.Priority != nil {
		p := models.TaskPriority(*r.Priority)
		up.Priority = &p
	}
	return up
}

// GET /api/v1/tasks
func (s *Server) listTasks(c *gin.Context) {
	user := middleware.CurrentUser(c)
	list, err := s.tasks.ListForUser(user)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, list)
}

// POST /api/v1/tasks
func (s *Server) createTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	user := middleware.CurrentUser(c)
	task, err := s.tasks.Create(user.ID, req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, task)
}

// POST /api/v1/tasks/with-questions
func (s *Server) createTaskWithQuestions(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	user := middleware.CurrentUser(c)
	task, err := s.tasks.CreateWithTemplate(user.ID, req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, task)
}

// GET /api/v1/tasks/:id
// The plain view leaves the question template out; /enhanced includes it.
func (s *Server) getTask(c *gin.Context) {
	task, err := s.tasks.AccessibleBy(middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	plain := *task
	plain.Template = nil
	respondOK(c, &plain)
}

// GET /api/v1/tasks/:id/enhanced
func (s *Server) getTaskEnhanced(c *gin.Context) {
	task, err := s.tasks.AccessibleBy(middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, task)
}

// PUT /api/v1/tasks/:id
func (s *Server) updateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	task, err := s.tasks.Update(c.Param("id"), req.toUpdate())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, task)
}

// PUT /api/v1/tasks/:id/with-questions
func (s *Server) updateTaskWithQuestions(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	task, err := s.tasks.UpdateWithTemplate(c.Param("id"), req.toUpdate())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, task)
}

// DELETE /api/v1/tasks/:id
func (s *Server) deleteTask(c *gin.Context) {
	res, err := s.tasks.Delete(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

// GET /api/v1/tasks/:id/questions/:index
func (s *Server) getTaskQuestion(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid question index")
		return
	}
	user := middleware.CurrentUser(c)
	if _, err := s.tasks.AccessibleBy(user, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	question, err := s.tasks.QuestionView(c.Param("id"), index)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	s.users.TouchLastActive(user.ID)
	respondOK(c, question)
}

// GET /api/v1/tasks/:id/responses/export?format=csv|json
func (s *Server) exportTaskResponses(c *gin.Context) {
	var file *services.ExportFile
	var err error
	switch format := c.DefaultQuery("format", "csv"); format {
	case "csv":
		file, err = s.exports.TaskResponsesCSV(c.Param("id"))
	case "json":
		file, err = s.exports.TaskResponsesJSON(c.Param("id"))
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
