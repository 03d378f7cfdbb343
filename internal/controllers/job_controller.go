package controllers

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/docurisk/backend/internal/events"
	"github.com/docurisk/backend/internal/logger"
	"github.com/docurisk/backend/internal/models"
	"github.com/docurisk/backend/internal/repository"
	"github.com/docurisk/backend/internal/services"
	"github.com/docurisk/backend/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type JobController struct {
	repo         repository.JobRepository
	orchestrator *services.Orchestrator
	broadcaster  *events.Broadcaster
	store        storage.BlobStore
	upgrader     websocket.Upgrader
}

func NewJobController(
	repo repository.JobRepository,
	orchestrator *services.Orchestrator,
	broadcaster *events.Broadcaster,
	store storage.BlobStore,
) *JobController {
	return &JobController{
		repo:         repo,
		orchestrator: orchestrator,
		broadcaster:  broadcaster,
		store:        store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// jobView decorates the stored job with the derived interrupted flag.
type jobView struct {
	models.Job
	Interrupted bool `json:"interrupted"`
}

func (jc *JobController) viewOf(job *models.Job) jobView {
	return jobView{Job: *job, Interrupted: job.Interrupted(jc.orchestrator.Running(job.ID))}
}

// UploadArchive accepts a zip of PDF documents and starts a new job.
func (jc *JobController) UploadArchive(c *gin.Context) {
	file, err := c.FormFile("archive")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".zip") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only ZIP archives are supported"})
		return
	}

	job, err := jc.orchestrator.CreateJob(file.Filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create job"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer src.Close()
	if err := jc.store.Put(job.UploadKey, src); err != nil {
		logger.WithJob(job.ID).Error("Failed to store upload", map[string]interface{}{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store uploaded file"})
		return
	}

	if err := jc.orchestrator.BeginArchive(job.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start job"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Upload accepted",
		"job":     jc.viewOf(job),
	})
}

// UploadFile accepts a single PDF and starts a one-document job.
func (jc *JobController) UploadFile(c *gin.Context) {
	file, err := c.FormFile("document")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF documents are supported"})
		return
	}

	job, err := jc.orchestrator.CreateJob(file.Filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create job"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer src.Close()
	if err := jc.store.Put(job.UploadKey, src); err != nil {
		logger.WithJob(job.ID).Error("Failed to store upload", map[string]interface{}{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store uploaded file"})
		return
	}

	if err := jc.orchestrator.BeginSingleFile(job.ID, file.Filename, file.Size); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start job"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Upload accepted",
		"job":     jc.viewOf(job),
	})
}

// GetJobs lists jobs, newest first.
func (jc *JobController) GetJobs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	jobs, err := jc.repo.List(limit, (page-1)*limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list jobs"})
		return
	}

	views := make([]jobView, 0, len(jobs))
	for i := range jobs {
		views = append(views, jc.viewOf(&jobs[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"jobs":  views,
		"page":  page,
		"limit": limit,
	})
}

// GetJob returns one job with its derived interrupted flag.
func (jc *JobController) GetJob(c *gin.Context) {
	job, err := jc.repo.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, jc.viewOf(job))
}

// ResumeJob re-enters an interrupted job at the stage its ledger records.
func (jc *JobController) ResumeJob(c *gin.Context) {
	jobID := c.Param("id")
	if _, err := jc.repo.Get(jobID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	if err := jc.orchestrator.Resume(jobID); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Job resumed"})
}

// GetResults returns the per-document analysis records from the ledger.
func (jc *JobController) GetResults(c *gin.Context) {
	jobID := c.Param("id")
	job, err := jc.repo.Get(jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	ledger, err := jc.orchestrator.Ledger(jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No results available yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"jobId":           jobID,
		"status":          job.Status,
		"results":         ledger.Results,
		"failedDocuments": ledger.FailedDocuments,
		"inputTokens":     ledger.InputTokens,
		"outputTokens":    ledger.OutputTokens,
	})
}

// GetReport returns a time-limited download URL for the finished workbook.
func (jc *JobController) GetReport(c *gin.Context) {
	job, err := jc.repo.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	if job.ReportKey == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "Report not generated yet"})
		return
	}

	url, err := jc.store.SignedURL(job.ReportKey, 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign report URL"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expiresIn": "15m"})
}

// StreamEvents delivers job progress over Server-Sent Events until the job
// finishes or the client disconnects.
func (jc *JobController) StreamEvents(c *gin.Context) {
	jobID := c.Param("id")
	job, err := jc.repo.Get(jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	ch := jc.broadcaster.Subscribe(jobID)
	defer jc.broadcaster.Unsubscribe(jobID, ch)

	// Snapshot first, so late subscribers see the current state immediately.
	// The orchestrator's status mirror is fresher than the persisted row.
	status := job.Status
	if cached, ok := jc.orchestrator.CachedStatus(jobID); ok {
		status = cached
	}
	writeSSE(c, events.Event{
		JobID:     jobID,
		Kind:      events.KindProgress,
		Timestamp: time.Now().UTC(),
		Payload: map[string]interface{}{
			"status":    string(status),
			"total":     job.TotalDocuments,
			"processed": job.ProcessedCount,
			"failed":    job.FailedCount,
		},
	})

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(c, event)
			if event.Kind == events.KindCompletion {
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}

func writeSSE(c *gin.Context, event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	c.Writer.WriteString("data: ")
	c.Writer.Write(data)
	c.Writer.WriteString("\n\n")
	c.Writer.Flush()
}

// StreamWebSocket delivers the same event stream over a websocket.
func (jc *JobController) StreamWebSocket(c *gin.Context) {
	jobID := c.Param("id")
	if _, err := jc.repo.Get(jobID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	conn, err := jc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithJob(jobID).Warn("WebSocket upgrade failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	defer conn.Close()

	ch := jc.broadcaster.Subscribe(jobID)
	defer jc.broadcaster.Unsubscribe(jobID, ch)

	// Drain client frames so closes are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
			if event.Kind == events.KindCompletion {
				return
			}
		case <-done:
			return
		}
	}
}
