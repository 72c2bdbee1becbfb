package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/quizform-service/internal/auth"
	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/SAP-F-2025/quizform-service/internal/repositories"
	"github.com/SAP-F-2025/quizform-service/internal/services"
	"github.com/SAP-F-2025/quizform-service/internal/utils"
	"github.com/SAP-F-2025/quizform-service/internal/validator"
	"github.com/gin-gonic/gin"
)

// AttemptHandler serves the learner side: opening a form, the countdown,
// held answers and submitting.
type AttemptHandler struct {
	BaseHandler
	attemptService    services.AttemptService
	submissionService services.SubmissionService
	validator         *validator.Validator
}

func NewAttemptHandler(
	attemptService services.AttemptService,
	submissionService services.SubmissionService,
	validator *validator.Validator,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:       NewBaseHandler(logger),
		attemptService:    attemptService,
		submissionService: submissionService,
		validator:         validator,
	}
}

type SaveAnswersRequest struct {
	Answers map[string]any `json:"answers"`
}

type TimerResponse struct {
	RemainingSeconds int `json:"remaining_seconds"`
}

// OpenAttempt runs the guard and returns where the learner stands
func (h *AttemptHandler) OpenAttempt(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	view, err := h.attemptService.Open(c.Request.Context(), id, auth.FromContext(c), DeviceID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if view.State == services.AttemptBlocked {
		h.RespondBlocked(c, view.Decision)
		return
	}

	c.JSON(http.StatusOK, view)
}

// StartAttempt starts the countdown of a timed form
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Starting attempt", "form_id", id)

	remaining, err := h.attemptService.Start(c.Request.Context(), id, auth.FromContext(c), DeviceID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, TimerResponse{RemainingSeconds: remaining})
}

// SaveAnswers replaces the held answers
func (h *AttemptHandler) SaveAnswers(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req SaveAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	if err := h.attemptService.SaveAnswers(c.Request.Context(), id, auth.FromContext(c), DeviceID(c), req.Answers); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *AttemptHandler) GetTimer(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	remaining, err := h.attemptService.Remaining(c.Request.Context(), id, auth.FromContext(c), DeviceID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, TimerResponse{RemainingSeconds: remaining})
}

// Submit scores the raw answers on the server and stores the submission.
// Any score in the payload is ignored.
func (h *AttemptHandler) Submit(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req models.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Submitting form", "form_id", id)

	submission, err := h.attemptService.Submit(c.Request.Context(), id, auth.FromContext(c), DeviceID(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, submission)
}

// ListSubmissions lists a form's submissions, newest first. Owner only.
func (h *AttemptHandler) ListSubmissions(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	limit, offset := parsePagination(c)
	submissions, total, err := h.submissionService.ListByForm(c.Request.Context(), id, userID, repositories.SubmissionFilters{
		SubmitterID: c.Query("submitter_id"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: submissions, Total: total, Limit: limit, Offset: offset})
}

// GetSubmission returns the re-scored per-question breakdown
func (h *AttemptHandler) GetSubmission(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	submissionID := ParseStringIDParam(c, "submission_id")
	if submissionID == "" {
		return
	}

	result, err := h.submissionService.Result(c.Request.Context(), id, submissionID, auth.FromContext(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
