package handlers

import (
	"errors"
	"net/http"

	"github.com/SAP-F-2025/quizform-service/internal/auth"
	"github.com/SAP-F-2025/quizform-service/internal/services"
	"github.com/SAP-F-2025/quizform-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse wraps a page of results with the total count
type ListResponse struct {
	Items  interface{} `json:"items"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// BlockedResponse tells the learner why they cannot answer and where to go
type BlockedResponse struct {
	Message  string `json:"message"`
	Code     string `json:"code"`
	Redirect string `json:"redirect,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging functionality for all handlers
type BaseHandler struct {
	logger utils.Logger
}

// NewBaseHandler creates a new base handler with logging capability
func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{
		logger: logger,
	}
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"remote_addr", c.ClientIP(),
		"user_id", h.extractUserID(c),
	}
	fields = append(fields, additionalFields...)

	h.requestLogger(c).Info(message, fields...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"user_id", h.extractUserID(c),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	fields = append(fields, additionalFields...)

	h.requestLogger(c).LogError(err, message, fields...)
}

// LogWarn logs warning messages with context
func (h *BaseHandler) LogWarn(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"user_id", h.extractUserID(c),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	fields = append(fields, additionalFields...)

	h.requestLogger(c).Warn(message, fields...)
}

// requestLogger carries the request and device ids set by utils.ContextLogger
func (h *BaseHandler) requestLogger(c *gin.Context) utils.Logger {
	return utils.GetLoggerFromContext(c, h.logger)
}

// Helper method to extract user ID from context
func (h *BaseHandler) extractUserID(c *gin.Context) interface{} {
	if userID, exists := c.Get("user_id"); exists {
		return userID
	}
	return nil
}

// RespondWithError sends a consistent error response and logs it
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, message string, err error, details ...interface{}) {
	errorResp := ErrorResponse{
		Message: message,
	}

	if len(details) > 0 {
		errorResp.Details = details[0]
	}

	if err != nil && statusCode >= http.StatusInternalServerError {
		h.LogError(c, err, message, "status_code", statusCode)
	} else {
		h.LogWarn(c, message, "status_code", statusCode)
	}

	c.JSON(statusCode, errorResp)
}

// RespondWithSuccess sends a consistent success response
func (h *BaseHandler) RespondWithSuccess(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, SuccessResponse{
		Message: message,
		Data:    data,
	})
}

// RespondBlocked renders a guard decision that refused the learner.
func (h *BaseHandler) RespondBlocked(c *gin.Context, decision services.Decision) {
	status, message := http.StatusForbidden, "Form is not available"
	switch decision.Reason {
	case services.ReasonLoginRequired:
		status, message = http.StatusUnauthorized, "Login required to take this form"
	case services.ReasonAlreadySubmitted:
		status, message = http.StatusConflict, "You have already submitted this form"
	}

	h.LogWarn(c, message, "status_code", status, "reason", decision.Reason)
	c.JSON(status, BlockedResponse{
		Message:  message,
		Code:     string(decision.Reason),
		Redirect: decision.Redirect,
	})
}

// handleServiceError maps service errors onto HTTP responses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	if decision, ok := services.IsBlocked(err); ok {
		h.RespondBlocked(c, decision)
		return
	}

	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, validationErrors)
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		h.RespondWithError(c, http.StatusUnprocessableEntity, businessRuleError.Message, err, map[string]interface{}{
			"rule":    businessRuleError.Rule,
			"context": businessRuleError.Context,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		h.RespondWithError(c, http.StatusForbidden, "Access denied", err, map[string]interface{}{
			"resource": permissionError.Resource,
			"action":   permissionError.Action,
			"reason":   permissionError.Reason,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrFormNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Form not found", err)
	case errors.Is(err, services.ErrQuestionNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Question not found", err)
	case errors.Is(err, services.ErrSubmissionNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Submission not found", err)
	case errors.Is(err, services.ErrUnauthorized):
		h.RespondWithError(c, http.StatusUnauthorized, "User not authenticated", err)
	case services.IsUnauthorized(err):
		h.RespondWithError(c, http.StatusForbidden, "Access denied", err)
	case errors.Is(err, services.ErrInvalidImport):
		h.RespondWithError(c, http.StatusBadRequest, "Invalid import file", err, err.Error())
	case errors.Is(err, services.ErrNotExportable):
		h.RespondWithError(c, http.StatusUnprocessableEntity, "Questions cannot be exported", err, err.Error())
	case errors.Is(err, services.ErrReorderMismatch), errors.Is(err, services.ErrQuestionInvalidType):
		h.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, services.ErrAttemptNotStarted):
		h.RespondWithError(c, http.StatusConflict, "Attempt has not been started", err)
	case errors.Is(err, services.ErrAttemptTimedOut):
		h.RespondWithError(c, http.StatusConflict, "Time is up, answers were submitted", err)
	case errors.Is(err, services.ErrTimerDisabled):
		h.RespondWithError(c, http.StatusBadRequest, "Form has no timer", err)
	case services.IsConflict(err):
		h.RespondWithError(c, http.StatusConflict, "Conflict", err)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}

// requireUserID returns the caller's id or writes a 401.
func (h *BaseHandler) requireUserID(c *gin.Context) (string, bool) {
	identity := auth.FromContext(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
			Code:    "login-required",
		})
		return "", false
	}
	return identity.ID, true
}
