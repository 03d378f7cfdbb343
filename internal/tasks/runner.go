package tasks

import (
	"fmt"
	"sync"

	"github.com/docurisk/backend/internal/logger"
)

type Kind string

const (
	KindExtract        Kind = "extract"
	KindAnalyze        Kind = "analyze"
	KindGenerateReport Kind = "generate-report"
)

// Handler executes one task for one job.
type Handler func(kind Kind, jobID string) error

// Runner dispatches typed tasks for a job. The pipeline's state machine must
// behave identically whichever substrate executes it.
type Runner interface {
	Enqueue(kind Kind, jobID string) error
}

// ImmediateRunner executes tasks in-process, one goroutine per task. It is
// the degraded/local substitute for an external queue and also the substrate
// the tests run against (synchronously, via Sync).
type ImmediateRunner struct {
	handler Handler
	sync    bool
	wg      sync.WaitGroup
}

func NewImmediateRunner(handler Handler) *ImmediateRunner {
	return &ImmediateRunner{handler: handler}
}

// NewSyncRunner executes tasks inline on the calling goroutine.
func NewSyncRunner(handler Handler) *ImmediateRunner {
	return &ImmediateRunner{handler: handler, sync: true}
}

func (r *ImmediateRunner) Enqueue(kind Kind, jobID string) error {
	if r.handler == nil {
		return fmt.Errorf("no task handler registered")
	}
	if r.sync {
		return r.handler(kind, jobID)
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.handler(kind, jobID); err != nil {
			logger.Error("Task failed", map[string]interface{}{
				"task":  string(kind),
				"jobID": jobID,
				"error": err.Error(),
			})
		}
	}()
	return nil
}

// Wait blocks until all in-flight tasks finish. Used on shutdown.
func (r *ImmediateRunner) Wait() {
	r.wg.Wait()
}
