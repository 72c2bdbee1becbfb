package handlers

import (
	"fmt"
	"net/http"

	"github.com/SAP-F-2025/quizform-service/internal/services"
	"github.com/SAP-F-2025/quizform-service/internal/spreadsheet"
	"github.com/SAP-F-2025/quizform-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// ReportHandler serves owner analytics and spreadsheet import/export
type ReportHandler struct {
	BaseHandler
	analyticsService    services.AnalyticsService
	importExportService services.ImportExportService
}

func NewReportHandler(analyticsService services.AnalyticsService, importExportService services.ImportExportService, logger utils.Logger) *ReportHandler {
	return &ReportHandler{
		BaseHandler:         NewBaseHandler(logger),
		analyticsService:    analyticsService,
		importExportService: importExportService,
	}
}

func (h *ReportHandler) GetReport(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	report, err := h.analyticsService.GetFormReport(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ExportResults downloads every submission as xlsx
func (h *ReportHandler) ExportResults(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	data, err := h.importExportService.ExportResults(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.sendFile(c, fmt.Sprintf("form-%s-results.xlsx", id), spreadsheet.FormatXLSX, data)
}

// ===== IMPORT / EXPORT =====

// ImportQuestions appends the questions of an uploaded xlsx or csv file.
// A single bad row rejects the whole file.
func (h *ReportHandler) ImportQuestions(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "File is required", err, err.Error())
		return
	}
	file, err := header.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Failed to read uploaded file", err)
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing questions", "form_id", id, "filename", header.Filename, "size", header.Size)

	result, err := h.importExportService.ImportQuestions(c.Request.Context(), id, userID, header.Filename, file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, fmt.Sprintf("Imported %d questions", result.Imported), result)
}

func (h *ReportHandler) ExportQuestions(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	format, err := spreadsheet.ParseFormat(c.Query("format"))
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Unsupported format", err, "format must be xlsx or csv")
		return
	}

	data, err := h.importExportService.ExportQuestions(c.Request.Context(), id, userID, format)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.sendFile(c, fmt.Sprintf("form-%s-questions.%s", id, format), format, data)
}

func (h *ReportHandler) DownloadTemplate(c *gin.Context) {
	data, err := h.importExportService.Template()
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.sendFile(c, "question-template.xlsx", spreadsheet.FormatXLSX, data)
}

func (h *ReportHandler) sendFile(c *gin.Context, filename string, format spreadsheet.Format, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, format.ContentType(), data)
}
