package importer

import (
	"context"
	"sync"
	"time"

	"github.com/fuhsing/sqlingest/internal/executor"
	"github.com/fuhsing/sqlingest/internal/sqldump"
)

// JobPhase indicates the current stage of an import job.
type JobPhase string

const (
	PhaseStarting  JobPhase = "starting"
	PhaseReading   JobPhase = "reading"
	PhaseParsing   JobPhase = "parsing"
	PhaseExecuting JobPhase = "executing"
	PhaseIndexing  JobPhase = "indexing"
	PhaseComplete  JobPhase = "complete"
	PhaseFailed    JobPhase = "failed"
	PhaseCancelled JobPhase = "cancelled"
)

// JobProgress is the current state of one import job.
type JobProgress struct {
	JobID       string   `json:"jobId"`
	FileName    string   `json:"fileName"`
	Phase       JobPhase `json:"phase"`
	Statements  int      `json:"statements"`
	Records     int      `json:"records"`
	Batches     int      `json:"batches"`
	Inserted    int      `json:"inserted"`
	Indexed     int      `json:"indexed"`
	Diagnostics int      `json:"diagnostics"`
	Error       string   `json:"error,omitempty"`
}

// JobResult is the final outcome of one import job.
type JobResult struct {
	JobID       string               `json:"jobId"`
	FileName    string               `json:"fileName"`
	Checksum    string               `json:"checksum,omitempty"`
	Stats       sqldump.Stats        `json:"stats"`
	Exec        executor.Result      `json:"exec"`
	Indexed     int                  `json:"indexed"`
	Diagnostics []sqldump.Diagnostic `json:"-"`
	Duration    time.Duration        `json:"duration"`
	Error       string               `json:"error,omitempty"`
}

type activeJob struct {
	ID       string
	Path     string
	FileName string
	Cancel   context.CancelFunc
	Progress JobProgress
	Result   *JobResult
	Done     chan struct{}

	Listeners  []chan JobProgress
	ListenerMu sync.Mutex
}

// notifyProgress sends progress updates to all listeners.
func (job *activeJob) notifyProgress() {
	job.ListenerMu.Lock()
	defer job.ListenerMu.Unlock()

	for _, ch := range job.Listeners {
		select {
		case ch <- job.Progress:
		default:
			// Listener is slow, skip this update
		}
	}
}

// closeListeners closes all listener channels.
func (job *activeJob) closeListeners() {
	job.ListenerMu.Lock()
	defer job.ListenerMu.Unlock()

	for _, ch := range job.Listeners {
		close(ch)
	}
	job.Listeners = nil
}
