package storage

import (
	"fmt"
	"io"
	"time"
)

// BlobStore is the opaque key-to-bytes contract the pipeline runs against.
// Keys are hierarchical strings; implementations decide where bytes live.
type BlobStore interface {
	Put(key string, r io.Reader) error
	Get(key string) (io.ReadCloser, error)
	List(prefix string) ([]string, error)
	SignedURL(key string, ttl time.Duration) (string, error)
}

// Key helpers. All artifacts of a job live under jobs/<id>/.

func UploadKey(jobID, filename string) string {
	return fmt.Sprintf("jobs/%s/upload/%s", jobID, filename)
}

func DocumentKey(jobID, name string) string {
	return fmt.Sprintf("jobs/%s/documents/%s", jobID, name)
}

func LedgerKey(jobID string) string {
	return fmt.Sprintf("jobs/%s/ledger.json", jobID)
}

func ReportKey(jobID string) string {
	return fmt.Sprintf("jobs/%s/report.xlsx", jobID)
}
