package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries every pipeline tunable. Values come from environment
// variables with defaults that match production behavior.
type Config struct {
	// AI analysis service
	AIBaseURL string
	AIModel   string
	AIAPIKey  string
	AITimeout time.Duration

	// Strategy thresholds
	DirectThresholdBytes int64 // documents at or under this size are analyzed in one request
	ScannedMinTotalChars int   // below this total extracted text the document counts as scanned
	ScannedMinCharsPage  int   // below this average text per page the document counts as scanned

	// Splitting
	TextChunkSize int   // target characters per text chunk
	PagesPerBatch int   // hard cap on pages per batch
	MaxTotalPages int   // safety ceiling on pages analyzed per document
	MaxBatchBytes int64 // a materialized batch over this size degrades to single pages

	// Retry / pacing
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	MaxAttempts      int
	UnitPacingDelay  time.Duration // fixed delay between units of the same document
	LargePacingDelay time.Duration // pacing after units of large documents
	LargeFileBytes   int64         // documents over this size use the large pacing delay

	// Orchestration
	LedgerFlushEvery int // flush the ledger every N documents

	// Storage
	StorageRoot string
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		AIBaseURL: envStr("AI_BASE_URL", "http://localhost:8090"),
		AIModel:   envStr("AI_MODEL", "legal-analyst-v2"),
		AIAPIKey:  os.Getenv("AI_API_KEY"),
		AITimeout: envDuration("AI_TIMEOUT_SECONDS", 300*time.Second),

		DirectThresholdBytes: envInt64("DIRECT_THRESHOLD_BYTES", 10*1024*1024),
		ScannedMinTotalChars: envInt("SCANNED_MIN_TOTAL_CHARS", 500),
		ScannedMinCharsPage:  envInt("SCANNED_MIN_CHARS_PER_PAGE", 100),

		TextChunkSize: envInt("TEXT_CHUNK_SIZE", 40000),
		PagesPerBatch: envInt("PAGES_PER_BATCH", 5),
		MaxTotalPages: envInt("MAX_TOTAL_PAGES", 500),
		MaxBatchBytes: envInt64("MAX_BATCH_BYTES", 20*1024*1024),

		RetryBaseDelay:   envDuration("RETRY_BASE_DELAY_SECONDS", 2*time.Second),
		RetryMaxDelay:    envDuration("RETRY_MAX_DELAY_SECONDS", 60*time.Second),
		MaxAttempts:      envInt("RETRY_MAX_ATTEMPTS", 5),
		UnitPacingDelay:  envDuration("UNIT_PACING_SECONDS", 3*time.Second),
		LargePacingDelay: envDuration("LARGE_PACING_SECONDS", 8*time.Second),
		LargeFileBytes:   envInt64("LARGE_FILE_BYTES", 30*1024*1024),

		LedgerFlushEvery: envInt("LEDGER_FLUSH_EVERY", 5),

		StorageRoot: envStr("STORAGE_ROOT", "data/storage"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}
