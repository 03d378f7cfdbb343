package routes

import (
	"github.com/docurisk/backend/internal/controllers"
	"github.com/docurisk/backend/internal/events"
	"github.com/docurisk/backend/internal/repository"
	"github.com/docurisk/backend/internal/services"
	"github.com/docurisk/backend/internal/storage"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all application routes
func SetupRoutes(
	r *gin.Engine,
	repo repository.JobRepository,
	orchestrator *services.Orchestrator,
	broadcaster *events.Broadcaster,
	store storage.BlobStore,
) {
	jobController := controllers.NewJobController(repo, orchestrator, broadcaster, store)

	api := r.Group("/api/v1")
	{
		jobs := api.Group("/jobs")
		{
			jobs.POST("/upload", jobController.UploadArchive)
			jobs.POST("/upload-file", jobController.UploadFile)
			jobs.GET("", jobController.GetJobs)
			jobs.GET("/:id", jobController.GetJob)
			jobs.POST("/:id/resume", jobController.ResumeJob)
			jobs.GET("/:id/results", jobController.GetResults)
			jobs.GET("/:id/report", jobController.GetReport)
			jobs.GET("/:id/events", jobController.StreamEvents)
			jobs.GET("/:id/ws", jobController.StreamWebSocket)
		}
	}
}
