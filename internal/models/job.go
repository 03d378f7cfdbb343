package models

import (
	"time"

	"gorm.io/gorm"
)

type JobStatus string

const (
	JobStatusCreated          JobStatus = "created"
	JobStatusUploaded         JobStatus = "uploaded"
	JobStatusExtracting       JobStatus = "extracting"
	JobStatusExtracted        JobStatus = "extracted"
	JobStatusProcessing       JobStatus = "processing"
	JobStatusAnalysisComplete JobStatus = "analysis_complete"
	JobStatusGeneratingReport JobStatus = "generating_report"
	JobStatusCompleted        JobStatus = "completed"
	JobStatusFailed           JobStatus = "failed"
)

// Terminal reports whether the job can make no further progress.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

type Job struct {
	ID             string         `json:"id" gorm:"primaryKey;size:36"`
	Filename       string         `json:"filename" gorm:"not null"`
	UploadKey      string         `json:"uploadKey"`
	Status         JobStatus      `json:"status" gorm:"not null;default:'created'"`
	TotalDocuments int            `json:"totalDocuments" gorm:"default:0"`
	ProcessedCount int            `json:"processedCount" gorm:"default:0"`
	FailedCount    int            `json:"failedCount" gorm:"default:0"`
	InputTokens    int64          `json:"inputTokens" gorm:"default:0"`
	OutputTokens   int64          `json:"outputTokens" gorm:"default:0"`
	ReportKey      string         `json:"reportKey"`
	Error          string         `json:"error"`
	Metadata       JSONB          `json:"metadata" gorm:"type:jsonb"`
	StartedAt      *time.Time     `json:"startedAt"`
	CompletedAt    *time.Time     `json:"completedAt"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Job) TableName() string {
	return "jobs"
}

// Interrupted is a derived view, not a stored state: some documents were
// processed, some remain, and nothing is currently running the job. The
// stored status cannot answer the last part on its own — a crash or a
// shutdown leaves it at processing — so liveness comes from the caller.
func (j *Job) Interrupted(running bool) bool {
	return !running && !j.Status.Terminal() &&
		j.ProcessedCount+j.FailedCount > 0 &&
		j.ProcessedCount+j.FailedCount < j.TotalDocuments
}
