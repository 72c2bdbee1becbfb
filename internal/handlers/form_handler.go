package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/quizform-service/internal/auth"
	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/SAP-F-2025/quizform-service/internal/repositories"
	"github.com/SAP-F-2025/quizform-service/internal/services"
	"github.com/SAP-F-2025/quizform-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type FormHandler struct {
	BaseHandler
	formService    services.FormService
	attemptService services.AttemptService
}

func NewFormHandler(formService services.FormService, attemptService services.AttemptService, logger utils.Logger) *FormHandler {
	return &FormHandler{
		BaseHandler:    NewBaseHandler(logger),
		formService:    formService,
		attemptService: attemptService,
	}
}

type ReorderQuestionsRequest struct {
	QuestionIDs []string `json:"question_ids"`
}

type AddQuestionRequest struct {
	Type models.QuestionType `json:"type"`
}

// CreateForm creates a new draft form owned by the caller
func (h *FormHandler) CreateForm(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req models.FormInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	h.LogRequest(c, "Creating form", "title", req.Title)

	form, err := h.formService.Create(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, form)
}

// ListMyForms lists the caller's forms, most recently edited first
func (h *FormHandler) ListMyForms(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	limit, offset := parsePagination(c)
	filters := repositories.FormFilters{
		Search:    c.Query("search"),
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if status := c.Query("status"); status != "" {
		s := models.FormStatus(status)
		filters.Status = &s
	}

	forms, total, err := h.formService.ListByOwner(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: forms, Total: total, Limit: limit, Offset: offset})
}

// ListPublishedForms lists published forms for learners, without answer keys
func (h *FormHandler) ListPublishedForms(c *gin.Context) {
	limit, offset := parsePagination(c)
	forms, total, err := h.formService.ListPublished(c.Request.Context(), repositories.FormFilters{
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	views := make([]*models.Form, 0, len(forms))
	for _, f := range forms {
		views = append(views, f.LearnerView())
	}
	c.JSON(http.StatusOK, ListResponse{Items: views, Total: total, Limit: limit, Offset: offset})
}

// GetForm returns the full form to its owner. Everyone else gets the
// learner view, and only when the guard lets them answer.
func (h *FormHandler) GetForm(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	identity := auth.FromContext(c)
	if identity != nil {
		form, err := h.formService.Get(c.Request.Context(), id)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		if form.CreatedBy == identity.ID {
			c.JSON(http.StatusOK, form)
			return
		}
	}

	view, err := h.attemptService.Open(c.Request.Context(), id, identity, DeviceID(c))
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

// UpdateForm is the explicit save; every validation failure is returned
func (h *FormHandler) UpdateForm(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req models.FormInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	h.LogRequest(c, "Updating form", "form_id", id)

	form, err := h.formService.Update(c.Request.Context(), id, userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, form)
}

// AutosaveForm queues a silent save and answers 202 straight away
func (h *FormHandler) AutosaveForm(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req models.FormInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	if err := h.formService.ScheduleAutosave(c.Request.Context(), id, userID, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, SuccessResponse{Message: "Autosave scheduled"})
}

// DeleteForm deletes a form with all of its submissions
func (h *FormHandler) DeleteForm(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting form", "form_id", id)

	if err := h.formService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Form deleted successfully", nil)
}

func (h *FormHandler) PublishForm(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	form, err := h.formService.Publish(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Form published successfully", form)
}

func (h *FormHandler) UnpublishForm(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	form, err := h.formService.Unpublish(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Form unpublished successfully", form)
}

// ===== QUESTION MANAGEMENT =====

func (h *FormHandler) AddQuestion(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req AddQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	question, err := h.formService.AddQuestion(c.Request.Context(), id, userID, req.Type)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

func (h *FormHandler) UpdateQuestion(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	questionID := ParseStringIDParam(c, "question_id")
	if questionID == "" {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var question models.Question
	if err := c.ShouldBindJSON(&question); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}
	question.ID = questionID

	updated, err := h.formService.UpdateQuestion(c.Request.Context(), id, userID, &question)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *FormHandler) DeleteQuestion(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	questionID := ParseStringIDParam(c, "question_id")
	if questionID == "" {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.formService.DeleteQuestion(c.Request.Context(), id, userID, questionID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Question deleted successfully", nil)
}

// ReorderQuestions applies a drag-and-drop result
func (h *FormHandler) ReorderQuestions(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req ReorderQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	form, err := h.formService.ReorderQuestions(c.Request.Context(), id, userID, req.QuestionIDs)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, form)
}
