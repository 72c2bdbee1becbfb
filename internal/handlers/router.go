package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/quizform-service/internal/auth"
	"github.com/SAP-F-2025/quizform-service/internal/repositories"
	"github.com/SAP-F-2025/quizform-service/internal/services"
	"github.com/SAP-F-2025/quizform-service/internal/utils"
	"github.com/SAP-F-2025/quizform-service/internal/validator"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	formHandler    *FormHandler
	attemptHandler *AttemptHandler
	reportHandler  *ReportHandler
	timerHandler   *TimerStreamHandler

	identity auth.IdentityProvider
	repo     repositories.Repository
	logger   utils.Logger
}

func NewHandlerManager(
	serviceManager *services.ServiceManager,
	validator *validator.Validator,
	identity auth.IdentityProvider,
	repo repositories.Repository,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		formHandler:    NewFormHandler(serviceManager.Forms, serviceManager.Attempts, logger),
		attemptHandler: NewAttemptHandler(serviceManager.Attempts, serviceManager.Submissions, validator, logger),
		reportHandler:  NewReportHandler(serviceManager.Analytics, serviceManager.ImportExport, logger),
		timerHandler:   NewTimerStreamHandler(serviceManager.Attempts, logger),
		identity:       identity,
		repo:           repo,
		logger:         logger,
	}
}

// NewRouter builds a gin engine with the shared middleware and every route.
func (hm *HandlerManager) NewRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ContextLogger(hm.logger))
	router.Use(utils.LoggerMiddleware(hm.logger))
	hm.SetupRoutes(router)
	return router
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(auth.Middleware(hm.identity))
	{
		forms := v1.Group("/forms")
		{
			forms.POST("", hm.formHandler.CreateForm)
			forms.GET("", hm.formHandler.ListMyForms)
			forms.GET("/published", hm.formHandler.ListPublishedForms)
			forms.GET("/:id", hm.formHandler.GetForm)
			forms.PUT("/:id", hm.formHandler.UpdateForm)
			forms.PUT("/:id/autosave", hm.formHandler.AutosaveForm)
			forms.DELETE("/:id", hm.formHandler.DeleteForm)
			forms.POST("/:id/publish", hm.formHandler.PublishForm)
			forms.POST("/:id/unpublish", hm.formHandler.UnpublishForm)

			// Question management
			forms.POST("/:id/questions", hm.formHandler.AddQuestion)
			forms.PUT("/:id/questions/reorder", hm.formHandler.ReorderQuestions)
			forms.PUT("/:id/questions/:question_id", hm.formHandler.UpdateQuestion)
			forms.DELETE("/:id/questions/:question_id", hm.formHandler.DeleteQuestion)
			forms.POST("/:id/questions/import", hm.reportHandler.ImportQuestions)
			forms.GET("/:id/questions/export", hm.reportHandler.ExportQuestions)

			// Learner attempts
			forms.POST("/:id/attempts", hm.attemptHandler.OpenAttempt)
			forms.POST("/:id/attempts/start", hm.attemptHandler.StartAttempt)
			forms.PUT("/:id/attempts/answers", hm.attemptHandler.SaveAnswers)
			forms.GET("/:id/attempts/timer", hm.attemptHandler.GetTimer)
			forms.GET("/:id/attempts/ws", hm.timerHandler.Stream)

			// Submissions
			forms.POST("/:id/submissions", hm.attemptHandler.Submit)
			forms.GET("/:id/submissions", hm.attemptHandler.ListSubmissions)
			forms.GET("/:id/submissions/:submission_id", hm.attemptHandler.GetSubmission)

			// Reports
			forms.GET("/:id/report", hm.reportHandler.GetReport)
			forms.GET("/:id/report/export", hm.reportHandler.ExportResults)
		}

		v1.GET("/templates/questions", auth.RequireUser(), hm.reportHandler.DownloadTemplate)
	}
}

// HealthCheck reports the service and its store
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if hm.repo != nil {
		if err := hm.repo.Ping(c.Request.Context()); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{
		"status":  status,
		"service": "quizform-service",
	})
}
