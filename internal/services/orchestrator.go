package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/docurisk/backend/internal/config"
	"github.com/docurisk/backend/internal/events"
	"github.com/docurisk/backend/internal/logger"
	"github.com/docurisk/backend/internal/models"
	"github.com/docurisk/backend/internal/repository"
	"github.com/docurisk/backend/internal/storage"
	"github.com/docurisk/backend/internal/tasks"
	"github.com/google/uuid"
)

// Orchestrator drives a job through its lifecycle: extract the uploaded
// archive, analyze each document sequentially, and render the report. All
// per-document state lives in the ledger in the blob store, so any stage can
// be re-entered after a crash; the Job row only mirrors status and counters.
type Orchestrator struct {
	repo        repository.JobRepository
	store       storage.BlobStore
	cfg         *config.Config
	ai          *AIService
	strategy    *StrategyAnalyzer
	splitter    *Splitter
	reporter    *ReportGenerator
	broadcaster *events.Broadcaster
	runner      tasks.Runner

	mu       sync.Mutex
	inFlight map[string]bool

	// statusCache mirrors job status for fast status/event queries. It is
	// process-scoped: populated while a job is live, cleared on completion.
	statusMu    sync.RWMutex
	statusCache map[string]models.JobStatus

	// extractText is replaceable in tests.
	extractText func(raw []byte) (text string, pageCount int, err error)

	stop chan struct{}
}

func NewOrchestrator(
	repo repository.JobRepository,
	store storage.BlobStore,
	cfg *config.Config,
	ai *AIService,
	broadcaster *events.Broadcaster,
) *Orchestrator {
	return &Orchestrator{
		repo:        repo,
		store:       store,
		cfg:         cfg,
		ai:          ai,
		strategy:    NewStrategyAnalyzer(cfg),
		splitter:    NewSplitter(cfg),
		reporter:    NewReportGenerator(),
		broadcaster: broadcaster,
		inFlight:    make(map[string]bool),
		statusCache: make(map[string]models.JobStatus),
		extractText: ExtractPDFText,
		stop:        make(chan struct{}),
	}
}

// SetRunner wires the task runner after construction; the runner's handler
// is the orchestrator itself, so the two reference each other.
func (o *Orchestrator) SetRunner(r tasks.Runner) {
	o.runner = r
}

// Stop asks in-flight analysis loops to halt at the next document boundary.
// The ledger is flushed before the loop exits, so Resume picks up cleanly.
func (o *Orchestrator) Stop() {
	close(o.stop)
}

// HandleTask is the runner's dispatch entry point.
func (o *Orchestrator) HandleTask(kind tasks.Kind, jobID string) error {
	switch kind {
	case tasks.KindExtract:
		return o.Extract(jobID)
	case tasks.KindAnalyze:
		return o.Analyze(jobID)
	case tasks.KindGenerateReport:
		return o.GenerateReport(jobID)
	}
	return fmt.Errorf("unknown task kind: %s", kind)
}

// CreateJob registers a new job for an uploaded file. The caller streams the
// payload into the store under the returned job's UploadKey before calling
// BeginArchive or BeginSingleFile.
func (o *Orchestrator) CreateJob(filename string) (*models.Job, error) {
	now := time.Now().UTC()
	job := &models.Job{
		ID:        uuid.New().String(),
		Filename:  filename,
		Status:    models.JobStatusCreated,
		StartedAt: &now,
	}
	job.UploadKey = storage.UploadKey(job.ID, filename)
	if err := o.repo.Create(job); err != nil {
		return nil, err
	}
	logger.WithJob(job.ID).Info("Job created", map[string]interface{}{
		"filename": filename,
	})
	return job, nil
}

// BeginArchive marks the upload complete and schedules archive extraction.
func (o *Orchestrator) BeginArchive(jobID string) error {
	job, err := o.repo.Get(jobID)
	if err != nil {
		return err
	}
	job.Status = models.JobStatusUploaded
	o.cacheStatus(job.ID, job.Status)
	if err := o.repo.Update(job); err != nil {
		return err
	}
	return o.runner.Enqueue(tasks.KindExtract, jobID)
}

// BeginSingleFile registers a single already-stored PDF as the job's only
// document and schedules analysis directly, skipping extraction.
func (o *Orchestrator) BeginSingleFile(jobID, name string, size int64) error {
	job, err := o.repo.Get(jobID)
	if err != nil {
		return err
	}

	ledger := &models.ProcessingQueueState{
		JobID:  jobID,
		Status: models.JobStatusExtracted,
		Documents: []models.Document{{
			Name:        name,
			StorageKey:  job.UploadKey,
			ContentType: "application/pdf",
			Size:        size,
			Status:      models.DocumentStatusPending,
		}},
	}
	if err := o.saveLedger(ledger); err != nil {
		return o.failJob(job, fmt.Errorf("failed to persist job ledger: %w", err))
	}

	job.Status = models.JobStatusExtracted
	job.TotalDocuments = 1
	o.cacheStatus(job.ID, job.Status)
	if err := o.repo.Update(job); err != nil {
		return err
	}
	o.publishProgress(job)
	return o.runner.Enqueue(tasks.KindAnalyze, jobID)
}

// Extract unpacks the uploaded zip archive, stores each PDF member as a
// document blob, and seeds the ledger. Non-PDF and hidden members are
// skipped with a log line; an unreadable archive fails the job.
func (o *Orchestrator) Extract(jobID string) error {
	job, err := o.repo.Get(jobID)
	if err != nil {
		return err
	}
	o.setStatus(job, models.JobStatusExtracting)

	documents, err := o.extractArchive(job)
	if err != nil {
		return o.failJob(job, fmt.Errorf("archive extraction failed: %w", err))
	}
	if len(documents) == 0 {
		return o.failJob(job, fmt.Errorf("archive contains no PDF documents"))
	}

	ledger := &models.ProcessingQueueState{
		JobID:     jobID,
		Status:    models.JobStatusExtracted,
		Documents: documents,
	}
	if err := o.saveLedger(ledger); err != nil {
		return o.failJob(job, fmt.Errorf("failed to persist job ledger: %w", err))
	}

	job.Status = models.JobStatusExtracted
	job.TotalDocuments = len(documents)
	o.cacheStatus(job.ID, job.Status)
	if err := o.repo.Update(job); err != nil {
		return err
	}

	logger.WithJob(jobID).Info("Archive extracted", map[string]interface{}{
		"documents": len(documents),
	})
	o.publishProgress(job)
	return o.runner.Enqueue(tasks.KindAnalyze, jobID)
}

// extractArchive reads the upload through a temp file (zip needs random
// access) and stores each PDF member under the job's document prefix.
func (o *Orchestrator) extractArchive(job *models.Job) ([]models.Document, error) {
	rc, err := o.store.Get(job.UploadKey)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "docurisk-upload-*.zip")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	size, err := io.Copy(tmp, rc)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(tmp, size)
	if err != nil {
		return nil, fmt.Errorf("not a readable zip archive: %w", err)
	}

	var documents []models.Document
	seen := make(map[string]int)
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(entry.Name)
		if strings.HasPrefix(name, ".") || strings.Contains(entry.Name, "__MACOSX") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			logger.WithJob(job.ID).Debug("Skipping non-PDF archive member", map[string]interface{}{
				"name": entry.Name,
			})
			continue
		}
		if n := seen[name]; n > 0 {
			ext := filepath.Ext(name)
			name = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n+1, ext)
		}
		seen[filepath.Base(entry.Name)]++

		er, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open archive member %s: %w", entry.Name, err)
		}
		key := storage.DocumentKey(job.ID, name)
		err = o.store.Put(key, er)
		er.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to store document %s: %w", name, err)
		}

		documents = append(documents, models.Document{
			Name:        name,
			StorageKey:  key,
			ContentType: "application/pdf",
			Size:        int64(entry.UncompressedSize64),
			Status:      models.DocumentStatusPending,
		})
	}
	return documents, nil
}

// Analyze runs the sequential document loop over the ledger's pending
// documents. Documents are processed strictly one at a time; the ledger is
// checkpointed every few documents, after every large document, and at loop
// exit, so an interrupted job resumes without repeating finished work.
func (o *Orchestrator) Analyze(jobID string) error {
	if !o.acquire(jobID) {
		logger.WithJob(jobID).Warn("Analysis already running, ignoring duplicate trigger", nil)
		return nil
	}
	defer o.release(jobID)

	job, err := o.repo.Get(jobID)
	if err != nil {
		return err
	}
	ledger, err := o.loadLedger(jobID)
	if err != nil {
		return o.failJob(job, fmt.Errorf("failed to load job ledger: %w", err))
	}

	o.setStatus(job, models.JobStatusProcessing)
	ledger.Status = models.JobStatusProcessing

	sinceFlush := 0
	flush := func() error {
		if err := o.saveLedger(ledger); err != nil {
			return err
		}
		sinceFlush = 0
		return o.repo.Update(job)
	}

	for _, idx := range ledger.PendingDocuments() {
		select {
		case <-o.stop:
			logger.WithJob(jobID).Info("Shutdown requested, stopping before next document", nil)
			return flush()
		default:
		}

		doc := &ledger.Documents[idx]
		record, err := o.processDocument(job, ledger, doc)
		switch {
		case err == nil && record.ConfidenceScore > 0:
			doc.Status = models.DocumentStatusCompleted
			ledger.Results = append(ledger.Results, *record)
			job.ProcessedCount++
		default:
			reason := "analysis returned zero confidence"
			if err != nil {
				if errors.Is(err, errServiceExhausted) {
					if ferr := flush(); ferr != nil {
						logger.WithJob(jobID).Error("Ledger flush failed during shutdown", map[string]interface{}{
							"error": ferr.Error(),
						})
					}
					return o.failJob(job, fmt.Errorf("ai service unreachable: %w", err))
				}
				reason = err.Error()
			}
			doc.Status = models.DocumentStatusFailed
			doc.Reason = reason
			ledger.FailedDocuments = append(ledger.FailedDocuments, models.FailedDocument{
				Name:   doc.Name,
				Reason: reason,
			})
			ledger.Results = append(ledger.Results, models.PlaceholderRecord(doc.Name, reason))
			job.FailedCount++
			logger.WithDocument(jobID, doc.Name).Warn("Document failed", map[string]interface{}{
				"reason": reason,
			})
		}

		sinceFlush++
		if sinceFlush >= o.cfg.LedgerFlushEvery || doc.Size >= o.cfg.LargeFileBytes {
			if err := flush(); err != nil {
				return o.failJob(job, fmt.Errorf("failed to checkpoint job ledger: %w", err))
			}
		}
		o.publishProgress(job)
	}

	ledger.Status = models.JobStatusAnalysisComplete
	job.Status = models.JobStatusAnalysisComplete
	o.cacheStatus(job.ID, job.Status)
	if err := flush(); err != nil {
		return o.failJob(job, fmt.Errorf("failed to persist job ledger: %w", err))
	}

	logger.WithJob(jobID).Info("Analysis complete", map[string]interface{}{
		"processed": job.ProcessedCount,
		"failed":    job.FailedCount,
	})
	o.publishProgress(job)
	return o.runner.Enqueue(tasks.KindGenerateReport, jobID)
}

// errServiceExhausted marks a document whose every unit exhausted its
// rate-limit retries. The service is down, not the document broken, so the
// job fails instead of burning through the remaining documents.
var errServiceExhausted = errors.New("ai service retries exhausted on every unit")

// processDocument analyzes all units of one document and merges their
// records. Individual unit failures are tolerated as long as at least one
// unit succeeds.
func (o *Orchestrator) processDocument(job *models.Job, ledger *models.ProcessingQueueState, doc *models.Document) (*models.AnalysisRecord, error) {
	rc, err := o.store.Get(doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("document blob unreadable: %w", err)
	}
	raw, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("document blob unreadable: %w", err)
	}

	if doc.Strategy == nil {
		s := o.strategy.Analyze(raw)
		doc.Strategy = &s
		logger.WithDocument(job.ID, doc.Name).Info("Strategy selected", map[string]interface{}{
			"strategy":       string(s.Kind),
			"pages":          s.PageCount,
			"textLength":     s.TextLength,
			"estimatedUnits": s.EstimatedUnits,
		})
	}

	units, err := o.buildUnits(raw, doc.Strategy)
	if err != nil {
		return nil, err
	}

	large := doc.Size >= o.cfg.LargeFileBytes
	ctx := context.Background()

	var records []models.AnalysisRecord
	var firstErr error
	exhausted := 0
	for i, unit := range units {
		if i > 0 {
			o.ai.Pace(large)
		}
		o.broadcaster.Publish(job.ID, events.KindChunkProgress, map[string]interface{}{
			"document": doc.Name,
			"unit":     i + 1,
			"units":    len(units),
		})

		record, usage, err := o.ai.AnalyzeUnit(ctx, unit.content, unit.pos)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			if isExhaustedRateLimit(err) {
				exhausted++
			}
			logger.WithAI(job.ID, doc.Name, i+1, len(units)).Error("Unit analysis failed", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}

		record.DocumentName = doc.Name
		record.ProcessedAt = time.Now().UTC()
		record.InputTokens = usage.InputTokens
		record.OutputTokens = usage.OutputTokens
		records = append(records, *record)

		ledger.InputTokens += int64(usage.InputTokens)
		ledger.OutputTokens += int64(usage.OutputTokens)
		job.InputTokens += int64(usage.InputTokens)
		job.OutputTokens += int64(usage.OutputTokens)
		o.broadcaster.Publish(job.ID, events.KindTokenUsage, map[string]interface{}{
			"document":     doc.Name,
			"inputTokens":  job.InputTokens,
			"outputTokens": job.OutputTokens,
		})
	}

	if len(records) == 0 {
		if exhausted == len(units) && len(units) > 0 {
			return nil, fmt.Errorf("%w: %v", errServiceExhausted, firstErr)
		}
		return nil, fmt.Errorf("no unit analyzed successfully: %w", firstErr)
	}
	return MergeRecords(records), nil
}

// isExhaustedRateLimit reports whether the error is an exhausted retry loop
// whose underlying failure was a rate limit or overload signal.
func isExhaustedRateLimit(err error) bool {
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		return false
	}
	return svcErr.RateLimited() && strings.Contains(err.Error(), "exhausted")
}

type analysisUnit struct {
	content UnitContent
	pos     *ChunkPosition
}

// buildUnits decomposes the document per its strategy. Text strategies fall
// back to sending the raw PDF when extraction yields nothing usable.
func (o *Orchestrator) buildUnits(raw []byte, strategy *models.Strategy) ([]analysisUnit, error) {
	switch strategy.Kind {
	case models.StrategyDirectText:
		text, _, err := o.extractText(raw)
		if err != nil || text == "" {
			return []analysisUnit{{content: UnitContent{Kind: ContentPDF, Data: raw}}}, nil
		}
		return []analysisUnit{{content: UnitContent{Kind: ContentText, Text: text}}}, nil

	case models.StrategyDirectPDF:
		return []analysisUnit{{content: UnitContent{Kind: ContentPDF, Data: raw}}}, nil

	case models.StrategyTextChunk:
		text, _, err := o.extractText(raw)
		if err != nil || text == "" {
			return nil, fmt.Errorf("text extraction failed for text-chunk strategy: %v", err)
		}
		chunks := o.splitter.SplitText(text)
		units := make([]analysisUnit, 0, len(chunks))
		for _, c := range chunks {
			units = append(units, analysisUnit{
				content: UnitContent{Kind: ContentText, Text: c.Content},
				pos:     &ChunkPosition{Index: c.Index + 1, Total: len(chunks)},
			})
		}
		return units, nil

	case models.StrategyPageSplit:
		batches, err := o.splitter.SplitPages(raw, strategy.PageCount)
		if err != nil {
			return nil, err
		}
		units := make([]analysisUnit, 0, len(batches))
		for _, b := range batches {
			units = append(units, analysisUnit{
				content: UnitContent{Kind: ContentPDF, Data: b.Content},
				pos: &ChunkPosition{
					Index:     b.Index + 1,
					Total:     len(batches),
					PageStart: b.StartPage,
					PageEnd:   b.EndPage,
				},
			})
		}
		return units, nil
	}
	return nil, fmt.Errorf("unknown strategy kind: %s", strategy.Kind)
}

// GenerateReport renders the workbook from the ledger and completes the job.
func (o *Orchestrator) GenerateReport(jobID string) error {
	job, err := o.repo.Get(jobID)
	if err != nil {
		return err
	}
	o.setStatus(job, models.JobStatusGeneratingReport)

	ledger, err := o.loadLedger(jobID)
	if err != nil {
		return o.failJob(job, fmt.Errorf("failed to load job ledger: %w", err))
	}

	workbook, err := o.reporter.Generate(ledger)
	if err != nil {
		return o.failJob(job, fmt.Errorf("report generation failed: %w", err))
	}
	key := storage.ReportKey(jobID)
	if err := o.store.Put(key, bytes.NewReader(workbook)); err != nil {
		return o.failJob(job, fmt.Errorf("failed to store report: %w", err))
	}

	now := time.Now().UTC()
	job.ReportKey = key
	job.Status = models.JobStatusCompleted
	job.CompletedAt = &now
	o.cacheStatus(job.ID, job.Status)
	if err := o.repo.Update(job); err != nil {
		return err
	}

	ledger.Status = models.JobStatusCompleted
	if err := o.saveLedger(ledger); err != nil {
		logger.WithJob(jobID).Error("Failed to persist final ledger state", map[string]interface{}{
			"error": err.Error(),
		})
	}

	logger.WithJob(jobID).Info("Job completed", map[string]interface{}{
		"processed": job.ProcessedCount,
		"failed":    job.FailedCount,
	})
	o.broadcaster.Publish(jobID, events.KindCompletion, map[string]interface{}{
		"status":    string(job.Status),
		"reportKey": key,
		"processed": job.ProcessedCount,
		"failed":    job.FailedCount,
	})
	o.broadcaster.CloseJob(jobID)
	return nil
}

// Resume re-enters an interrupted job at the right stage, based on the
// ledger. Resuming a completed job is a no-op; failed jobs stay failed; a
// job whose analysis loop is currently running is not started a second time.
func (o *Orchestrator) Resume(jobID string) error {
	job, err := o.repo.Get(jobID)
	if err != nil {
		return err
	}
	if job.Status == models.JobStatusCompleted {
		logger.WithJob(jobID).Info("Resume requested for a completed job, nothing to do", nil)
		return nil
	}
	if job.Status == models.JobStatusFailed {
		return fmt.Errorf("job %s has failed and cannot be resumed", jobID)
	}
	if o.running(jobID) {
		return fmt.Errorf("job %s is currently being processed", jobID)
	}

	ledger, err := o.loadLedger(jobID)
	if err != nil {
		if job.UploadKey != "" && job.TotalDocuments == 0 {
			// Crashed before the ledger was written; the upload is still
			// there. A single uploaded PDF is re-registered directly, an
			// archive goes back through extraction.
			if strings.EqualFold(filepath.Ext(job.Filename), ".pdf") {
				return o.BeginSingleFile(jobID, job.Filename, o.blobSize(job.UploadKey))
			}
			return o.runner.Enqueue(tasks.KindExtract, jobID)
		}
		return o.failJob(job, fmt.Errorf("job ledger unreadable, cannot resume: %w", err))
	}

	if len(ledger.PendingDocuments()) > 0 {
		logger.WithJob(jobID).Info("Resuming analysis", map[string]interface{}{
			"pending": len(ledger.PendingDocuments()),
			"total":   len(ledger.Documents),
		})
		return o.runner.Enqueue(tasks.KindAnalyze, jobID)
	}
	if job.ReportKey == "" {
		return o.runner.Enqueue(tasks.KindGenerateReport, jobID)
	}

	job.Status = models.JobStatusCompleted
	o.cacheStatus(job.ID, job.Status)
	return o.repo.Update(job)
}

// Ledger returns the persisted work ledger for result queries.
func (o *Orchestrator) Ledger(jobID string) (*models.ProcessingQueueState, error) {
	return o.loadLedger(jobID)
}

// blobSize measures a stored blob by draining it. Size only tunes the flush
// and pacing heuristics, so an unreadable blob counts as zero.
func (o *Orchestrator) blobSize(key string) int64 {
	rc, err := o.store.Get(key)
	if err != nil {
		return 0
	}
	defer rc.Close()
	n, err := io.Copy(io.Discard, rc)
	if err != nil {
		return 0
	}
	return n
}

func (o *Orchestrator) saveLedger(ledger *models.ProcessingQueueState) error {
	ledger.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(ledger)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	return o.store.Put(storage.LedgerKey(ledger.JobID), bytes.NewReader(data))
}

func (o *Orchestrator) loadLedger(jobID string) (*models.ProcessingQueueState, error) {
	rc, err := o.store.Get(storage.LedgerKey(jobID))
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var ledger models.ProcessingQueueState
	if err := json.NewDecoder(rc).Decode(&ledger); err != nil {
		return nil, fmt.Errorf("failed to decode ledger: %w", err)
	}
	return &ledger, nil
}

// CachedStatus returns the in-memory status mirror of a live job. Readers
// fall back to the persisted job when the cache has no entry.
func (o *Orchestrator) CachedStatus(jobID string) (models.JobStatus, bool) {
	o.statusMu.RLock()
	defer o.statusMu.RUnlock()
	status, ok := o.statusCache[jobID]
	return status, ok
}

func (o *Orchestrator) cacheStatus(jobID string, status models.JobStatus) {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()
	if status.Terminal() {
		delete(o.statusCache, jobID)
		return
	}
	o.statusCache[jobID] = status
}

func (o *Orchestrator) setStatus(job *models.Job, status models.JobStatus) {
	job.Status = status
	o.cacheStatus(job.ID, status)
	if err := o.repo.Update(job); err != nil {
		logger.WithJob(job.ID).Error("Failed to persist job status", map[string]interface{}{
			"status": string(status),
			"error":  err.Error(),
		})
	}
	o.publishProgress(job)
}

func (o *Orchestrator) failJob(job *models.Job, cause error) error {
	logger.WithJob(job.ID).Error("Job failed", map[string]interface{}{
		"error": cause.Error(),
	})
	now := time.Now().UTC()
	job.Status = models.JobStatusFailed
	job.Error = cause.Error()
	job.CompletedAt = &now
	o.cacheStatus(job.ID, job.Status)
	if err := o.repo.Update(job); err != nil {
		logger.WithJob(job.ID).Error("Failed to persist job failure", map[string]interface{}{
			"error": err.Error(),
		})
	}
	o.broadcaster.Publish(job.ID, events.KindCompletion, map[string]interface{}{
		"status": string(models.JobStatusFailed),
		"error":  cause.Error(),
	})
	o.broadcaster.CloseJob(job.ID)
	return cause
}

func (o *Orchestrator) publishProgress(job *models.Job) {
	o.broadcaster.Publish(job.ID, events.KindProgress, map[string]interface{}{
		"status":    string(job.Status),
		"total":     job.TotalDocuments,
		"processed": job.ProcessedCount,
		"failed":    job.FailedCount,
	})
}

func (o *Orchestrator) acquire(jobID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[jobID] {
		return false
	}
	o.inFlight[jobID] = true
	return true
}

func (o *Orchestrator) release(jobID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, jobID)
}

func (o *Orchestrator) running(jobID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight[jobID]
}

// Running reports whether the job's analysis loop is active in this process.
func (o *Orchestrator) Running(jobID string) bool {
	return o.running(jobID)
}
