package controllers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/docurisk/backend/internal/config"
	"github.com/docurisk/backend/internal/events"
	"github.com/docurisk/backend/internal/models"
	"github.com/docurisk/backend/internal/repository"
	"github.com/docurisk/backend/internal/services"
	"github.com/docurisk/backend/internal/storage"
	"github.com/docurisk/backend/internal/tasks"
	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) (*gin.Engine, repository.JobRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	aiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		record := models.AnalysisRecord{
			BorrowerName:           "John Smith",
			RiskRating:             models.RiskLow,
			EnforceabilityDecision: models.EnforceabilityEnforceable,
			ConfidenceScore:        85,
		}
		content, _ := json.Marshal(record)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": string(content),
			"usage":   map[string]int{"input_tokens": 100, "output_tokens": 20},
		})
	}))
	t.Cleanup(aiServer.Close)

	cfg := &config.Config{
		AIBaseURL:            aiServer.URL,
		AIModel:              "legal-analyst-v2",
		AITimeout:            5 * time.Second,
		DirectThresholdBytes: 10 * 1024 * 1024,
		ScannedMinTotalChars: 500,
		ScannedMinCharsPage:  100,
		TextChunkSize:        40000,
		PagesPerBatch:        5,
		MaxTotalPages:        500,
		MaxBatchBytes:        20 * 1024 * 1024,
		RetryBaseDelay:       time.Millisecond,
		RetryMaxDelay:        10 * time.Millisecond,
		MaxAttempts:          2,
		LedgerFlushEvery:     5,
		StorageRoot:          t.TempDir(),
	}

	store, err := storage.NewFSStore(cfg.StorageRoot)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	repo := repository.NewMemoryJobRepository()
	broadcaster := events.NewBroadcaster()
	orchestrator := services.NewOrchestrator(repo, store, cfg, services.NewAIService(cfg), broadcaster)
	orchestrator.SetRunner(tasks.NewSyncRunner(orchestrator.HandleTask))

	r := gin.New()
	jc := NewJobController(repo, orchestrator, broadcaster, store)
	api := r.Group("/api/v1/jobs")
	api.POST("/upload", jc.UploadArchive)
	api.POST("/upload-file", jc.UploadFile)
	api.GET("", jc.GetJobs)
	api.GET("/:id", jc.GetJob)
	api.POST("/:id/resume", jc.ResumeJob)
	api.GET("/:id/results", jc.GetResults)
	api.GET("/:id/report", jc.GetReport)
	return r, repo
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("Failed to write form file: %v", err)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestUploadRejectsNonZip(t *testing.T) {
	r, _ := newTestRouter(t)

	body, contentType := multipartBody(t, "archive", "bundle.tar", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-zip upload, got %d", w.Code)
	}
}

func TestUploadRequiresFile(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/upload", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing file, got %d", w.Code)
	}
}

func TestUploadFileRejectsNonPDF(t *testing.T) {
	r, _ := newTestRouter(t)

	body, contentType := multipartBody(t, "document", "deed.docx", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/upload-file", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-pdf upload, got %d", w.Code)
	}
}

func TestUploadFileRunsPipeline(t *testing.T) {
	r, repo := newTestRouter(t)

	body, contentType := multipartBody(t, "document", "deed.pdf", []byte("fake pdf"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/upload-file", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Job struct {
			ID string `json:"id"`
		} `json:"job"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	// The sync runner finishes the whole pipeline before the response returns.
	job, err := repo.Get(resp.Job.ID)
	if err != nil {
		t.Fatalf("Job not persisted: %v", err)
	}
	if job.Status != models.JobStatusCompleted {
		t.Errorf("Expected completed job, got %q (error: %s)", job.Status, job.Error)
	}

	// Results endpoint serves the ledger.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+resp.Job.ID+"/results", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from results, got %d", w.Code)
	}
	var results struct {
		Results []models.AnalysisRecord `json:"results"`
	}
	json.Unmarshal(w.Body.Bytes(), &results)
	if len(results.Results) != 1 || results.Results[0].BorrowerName != "John Smith" {
		t.Errorf("Unexpected results payload: %+v", results.Results)
	}

	// Report endpoint returns a signed URL.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+resp.Job.ID+"/report", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 from report, got %d", w.Code)
	}
}

func TestGetJobNotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestResumeCompletedJobIsAccepted(t *testing.T) {
	r, repo := newTestRouter(t)

	repo.Create(&models.Job{ID: "done", Filename: "x.zip", Status: models.JobStatusCompleted})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/done/resume", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// Nothing to redo, but the request itself is fine.
	if w.Code != http.StatusAccepted {
		t.Errorf("Expected 202 resuming a completed job, got %d", w.Code)
	}

	job, _ := repo.Get("done")
	if job.Status != models.JobStatusCompleted {
		t.Errorf("Expected status untouched, got %q", job.Status)
	}
}

func TestResumeFailedJobConflicts(t *testing.T) {
	r, repo := newTestRouter(t)

	repo.Create(&models.Job{ID: "broken", Filename: "x.zip", Status: models.JobStatusFailed})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/broken/resume", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 resuming a failed job, got %d", w.Code)
	}
}

func TestReportBeforeGeneration(t *testing.T) {
	r, repo := newTestRouter(t)

	repo.Create(&models.Job{ID: "early", Filename: "x.zip", Status: models.JobStatusProcessing})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/early/report", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 before report generation, got %d", w.Code)
	}
}

func TestListJobsIncludesInterruptedFlag(t *testing.T) {
	r, repo := newTestRouter(t)

	// A crashed process leaves the stored status at processing; the view
	// still has to call the job interrupted because nothing is running it.
	repo.Create(&models.Job{
		ID:             "stalled",
		Filename:       "x.zip",
		Status:         models.JobStatusProcessing,
		TotalDocuments: 10,
		ProcessedCount: 4,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp struct {
		Jobs []struct {
			ID          string `json:"id"`
			Interrupted bool   `json:"interrupted"`
		} `json:"jobs"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Jobs) != 1 {
		t.Fatalf("Expected 1 job, got %d", len(resp.Jobs))
	}
	if !resp.Jobs[0].Interrupted {
		t.Error("Expected interrupted flag set for a stalled job")
	}
}
