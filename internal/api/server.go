package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/labelkit/labelkit/internal/config"
	"github.com/labelkit/labelkit/internal/middleware"
	"github.com/labelkit/labelkit/internal/services"
	"github.com/labelkit/labelkit/internal/store"
)

// Server wires the domain services to the HTTP surface.
type Server struct {
	cfg         *config.Config
	tasks       *services.TaskService
	assignments *services.AssignmentService
	responses   *services.ResponseService
	users       *services.UserService
	labels      *services.LabelService
	exports     *services.ExportService
}

func NewServer(cfg *config.Config, st store.Store) *Server {
	return &Server{
		cfg:         cfg,
		tasks:       services.NewTaskService(st),
		assignments: services.NewAssignmentService(st),
		responses:   services.NewResponseService(st),
		users:       services.NewUserService(st),
		labels:      services.NewLabelService(st),
		exports:     services.NewExportService(st),
	}
}

// Router assembles the gin engine: recovery, logging, CORS, security
// headers and rate limiting in front, then the /api/v1 groups behind
// bearer-token auth. Admin mutations additionally require the admin role.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())
	r.Use(middleware.SecureHeaders())
	r.Use(middleware.NoStore())
	if s.cfg.RateLimit > 0 {
		r.Use(middleware.RateLimit(s.cfg.RateLimit, s.cfg.RateWindow))
	}

	r.GET("/health", s.handleHealth)
	r.GET("/version", s.handleVersion)

	authCfg := middleware.AuthConfig{
		Secret:      []byte(s.cfg.JWTSecret),
		Audience:    s.cfg.JWTAudience,
		AdminEmails: s.cfg.AdminEmails,
	}

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Auth(authCfg, s.users))

	admin := middleware.RequireAdmin()

	tasks := v1.Group("/tasks", middleware.RequireAuth())
	{
		tasks.GET("", s.listTasks)
		tasks.POST("", admin, s.createTask)
		tasks.POST("/with-questions", admin, s.createTaskWithQuestions)
		tasks.GET("/label-classes", s.listLabelClasses)
		tasks.POST("/label-classes", admin, s.createLabelClass)
		tasks.PUT("/label-classes/:id", admin, s.updateLabelClass)
		tasks.DELETE("/label-classes/:id", admin, s.deleteLabelClass)
		tasks.GET("/:id", s.getTask)
		tasks.GET("/:id/enhanced", s.getTaskEnhanced)
		tasks.PUT("/:id", admin, s.updateTask)
		tasks.PUT("/:id/with-questions", admin, s.updateTaskWithQuestions)
		tasks.DELETE("/:id", admin, s.deleteTask)
		tasks.GET("/:id/questions/:index", s.getTaskQuestion)
		tasks.GET("/:id/responses/export", admin, s.exportTaskResponses)
	}

	assignments := v1.Group("/assignments", middleware.RequireAuth())
	{
		assignments.GET("/my", s.listMyAssignments)
		assignments.GET("/all", admin, s.listAllAssignments)
		assignments.GET("/stats", admin, s.assignmentStats)
		assignments.GET("/export", admin, s.exportAssignments)
		assignments.POST("/task/:task_id/assign", admin, s.createAssignment)
		assignments.GET("/task/:task_id", s.getMyTaskAssignment)
		assignments.GET("/:id", admin, s.getAssignment)
		assignments.PUT("/:id/status", admin, s.updateAssignmentStatus)
		assignments.PUT("/:id/progress", admin, s.updateAssignmentProgress)
	}

	responses := v1.Group("/responses", middleware.RequireAuth())
	{
		responses.POST("", s.submitResponse)
		responses.POST("/detailed", s.submitResponse)
		responses.GET("/my", s.listMyResponses)
		responses.GET("/my/question/:task_id/:question_index", s.getMyResponseForQuestion)
	}

	auth := v1.Group("/auth", middleware.RequireAuth())
	{
		auth.GET("/me", s.getMe)
		auth.GET("/profile", s.getProfile)
		auth.PUT("/profile", s.updateProfile)
		auth.GET("/stats", s.getMyStats)
		auth.POST("/refresh", s.refreshSession)
	}

	users := v1.Group("/users", middleware.RequireAuth())
	{
		users.GET("", admin, s.listUsers)
		users.GET("/search", admin, s.searchUsers)
		users.GET("/by-role/:role", admin, s.listUsersByRole)
		users.GET("/active", admin, s.listActiveUsers)
		users.GET("/:id", s.getUser)
		users.PUT("/:id", admin, s.updateUser)
		users.PUT("/:id/role", admin, s.updateUserRole)
		users.GET("/:id/performance", s.getUserPerformance)
		users.GET("/:id/activity", s.getUserActivity)
		users.POST("/:id/deactivate", admin, s.deactivateUser)
		users.POST("/:id/reactivate", admin, s.reactivateUser)
	}

	return r
}

// GET /health
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"name": "LabelKit API",
	})
}

// GET /version
func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"commit":     s.cfg.Commit,
		"build_time": s.cfg.BuildTime,
	})
}
