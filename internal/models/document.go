package models

import "time"

type DocumentStatus string

const (
	DocumentStatusPending   DocumentStatus = "pending"
	DocumentStatusCompleted DocumentStatus = "completed"
	DocumentStatusFailed    DocumentStatus = "failed"
)

type StrategyKind string

const (
	StrategyDirectText StrategyKind = "direct-text"
	StrategyDirectPDF  StrategyKind = "direct-pdf"
	StrategyTextChunk  StrategyKind = "text-chunk"
	StrategyPageSplit  StrategyKind = "page-split"
)

// Strategy describes how a document will be decomposed for analysis,
// together with the metrics the decision was based on.
type Strategy struct {
	Kind           StrategyKind `json:"kind"`
	PageCount      int          `json:"pageCount"`
	TextLength     int          `json:"textLength"`
	Scanned        bool         `json:"scanned"`
	EstimatedUnits int          `json:"estimatedUnits"`
	Warning        string       `json:"warning,omitempty"`
}

// Document is the metadata-only record kept in the job ledger. Content
// lives in the blob store under StorageKey and is never held here.
type Document struct {
	Name        string         `json:"name"`
	StorageKey  string         `json:"storageKey"`
	ContentType string         `json:"contentType"`
	Size        int64          `json:"size"`
	Status      DocumentStatus `json:"status"`
	Reason      string         `json:"reason,omitempty"`
	Strategy    *Strategy      `json:"strategy,omitempty"`
}

// FailedDocument records a document-level failure by name and reason.
type FailedDocument struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ProcessingQueueState is the per-job work ledger, persisted as JSON in the
// blob store. It is the single source of truth read on resume.
type ProcessingQueueState struct {
	JobID           string           `json:"jobId"`
	Status          JobStatus        `json:"status"`
	Documents       []Document       `json:"documents"`
	Results         []AnalysisRecord `json:"results"`
	FailedDocuments []FailedDocument `json:"failedDocuments"`
	InputTokens     int64            `json:"inputTokens"`
	OutputTokens    int64            `json:"outputTokens"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// PendingDocuments returns the indices of documents still awaiting analysis.
func (q *ProcessingQueueState) PendingDocuments() []int {
	var pending []int
	for i := range q.Documents {
		if q.Documents[i].Status == DocumentStatusPending {
			pending = append(pending, i)
		}
	}
	return pending
}
