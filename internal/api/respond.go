package api

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/labelkit/labelkit/internal/services"
)

// envelope is the JSON shape of every API response. Code is 0 on success
// and mirrors the HTTP status on errors.
type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Code: 0, Message: "success", Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, envelope{Code: 0, Message: "success", Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Code: status, Message: message})
}

// respondServiceError translates a service error into its HTTP status.
// Storage failures are logged server-side and surface as a plain 500.
func respondServiceError(c *gin.Context, err error) {
	se, ok := services.AsServiceError(err)
	if !ok {
		log.Printf("api: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	status := statusFor(se.Code)
	if status == http.StatusInternalServerError {
		log.Printf("api: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		respondError(c, status, "internal server error")
		return
	}
	respondError(c, status, se.Message)
}

func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid, services.ErrorInvalidRange,
		services.ErrorInvalidAnswer, services.ErrorOutOfRange:
		return http.StatusBadRequest
	case services.ErrorUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorForbidden:
		return http.StatusForbidden
	case services.ErrorNotFound, services.ErrorNoAssignment:
		return http.StatusNotFound
	case services.ErrorConflict, services.ErrorAssignmentInactive,
		services.ErrorAssignmentComplete:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondFile streams an export as a download attachment.
func respondFile(c *gin.Context, f *services.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", f.Filename))
	c.Data(http.StatusOK, f.ContentType, f.Data)
}
