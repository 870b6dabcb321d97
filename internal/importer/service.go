// Package importer turns SQL dump files dropped into a watch directory into
// executed INSERT batches, search documents, and history rows. Each file is
// one asynchronous job with subscribable progress.
package importer

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fuhsing/sqlingest/internal/config"
	"github.com/fuhsing/sqlingest/internal/executor"
	"github.com/fuhsing/sqlingest/internal/indexer"
	"github.com/fuhsing/sqlingest/internal/logging"
	"github.com/fuhsing/sqlingest/internal/sqldump"
)

// Service coordinates dump file imports.
// The executor, indexer, and history handle are all optional; a nil executor
// means parse-only runs, which is how dry runs and tests operate.
type Service struct {
	cfg  config.ImporterConfig
	exec *executor.Executor
	idx  *indexer.Client
	db   executor.DBTX

	mu       sync.RWMutex
	jobs     map[string]*activeJob
	inFlight map[string]bool
}

// NewService creates an import service. exec, idx, and db may be nil.
func NewService(cfg config.ImporterConfig, exec *executor.Executor, idx *indexer.Client, db executor.DBTX) *Service {
	return &Service{
		cfg:      cfg,
		exec:     exec,
		idx:      idx,
		db:       db,
		jobs:     make(map[string]*activeJob),
		inFlight: make(map[string]bool),
	}
}

// PendingFile is one importable file in the watch directory.
type PendingFile struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// ListPending returns the importable files in the watch directory, sorted by
// name. Files already renamed with the done suffix are excluded.
func (s *Service) ListPending() ([]PendingFile, error) {
	entries, err := os.ReadDir(s.cfg.WatchDir)
	if err != nil {
		return nil, fmt.Errorf("read watch dir: %w", err)
	}

	var files []PendingFile
	for _, entry := range entries {
		if entry.IsDir() || !s.eligible(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, PendingFile{
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// eligible reports whether a file name looks like an unprocessed dump.
func (s *Service) eligible(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".sql") &&
		!strings.HasSuffix(name, s.cfg.DoneSuffix)
}

// register checks eligibility and creates the job entry. The caller owns
// running the job via run.
func (s *Service) register(path string) (*activeJob, context.Context, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("stat dump file: %w", err)
	}
	if info.Size() > s.cfg.MaxFileSize {
		return nil, nil, fmt.Errorf("file %s exceeds size limit (%d > %d bytes)",
			filepath.Base(path), info.Size(), s.cfg.MaxFileSize)
	}

	s.mu.Lock()
	if s.inFlight[path] {
		s.mu.Unlock()
		return nil, nil, fmt.Errorf("file %s is already being imported", filepath.Base(path))
	}
	s.inFlight[path] = true
	s.mu.Unlock()

	jobID := uuid.New().String()
	jobCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)

	job := &activeJob{
		ID:       jobID,
		Path:     path,
		FileName: filepath.Base(path),
		Cancel:   cancel,
		Progress: JobProgress{
			JobID:    jobID,
			FileName: filepath.Base(path),
			Phase:    PhaseStarting,
		},
		Done:      make(chan struct{}),
		Listeners: make([]chan JobProgress, 0),
	}

	s.mu.Lock()
	s.jobs[jobID] = job
	s.mu.Unlock()

	return job, jobCtx, nil
}

// run executes one registered job with panic recovery so the in-flight mark
// is always released.
func (s *Service) run(ctx context.Context, job *activeJob) {
	defer job.Cancel()
	defer func() {
		s.mu.Lock()
		delete(s.inFlight, job.Path)
		s.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in import job",
				"job_id", job.ID,
				"file", job.FileName,
				"panic", r,
			)
			s.finish(job, &JobResult{
				JobID:    job.ID,
				FileName: job.FileName,
				Error:    fmt.Sprintf("internal error: %v", r),
			}, PhaseFailed)
		}
	}()
	s.processFile(ctx, job)
}

// StartImport begins an asynchronous import of one file.
// Returns the job ID immediately. Use SubscribeProgress to get updates.
func (s *Service) StartImport(ctx context.Context, path string) (string, error) {
	job, jobCtx, err := s.register(path)
	if err != nil {
		return "", err
	}
	go s.run(jobCtx, job)
	return job.ID, nil
}

// StartImportByName imports one file from the watch directory by bare name.
// The name is stripped to its base so callers cannot escape the directory.
func (s *Service) StartImportByName(ctx context.Context, name string) (string, error) {
	base := filepath.Base(name)
	if !s.eligible(base) {
		return "", fmt.Errorf("not an importable dump file: %s", base)
	}
	return s.StartImport(ctx, filepath.Join(s.cfg.WatchDir, base))
}

// ScanOnce starts imports for every eligible file in the watch directory.
// At most MaxConcurrent files are processed at a time; the rest queue inside
// the scan's errgroup. Returns the started job IDs without waiting.
func (s *Service) ScanOnce(ctx context.Context) ([]string, error) {
	files, err := s.ListPending()
	if err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx)

	var jobIDs []string
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.MaxConcurrent)

	for _, f := range files {
		path := filepath.Join(s.cfg.WatchDir, f.Name)
		job, jobCtx, err := s.register(path)
		if err != nil {
			logger.Warn("skipping file", "file", f.Name, "error", err)
			continue
		}
		jobIDs = append(jobIDs, job.ID)

		g.Go(func() error {
			s.run(jobCtx, job)
			return nil
		})
	}

	go func() { _ = g.Wait() }()

	return jobIDs, nil
}

// processFile runs the full pipeline for one dump file.
func (s *Service) processFile(ctx context.Context, job *activeJob) {
	start := time.Now()
	logger := logging.WithFields(ctx, "job_id", job.ID, "file", job.FileName)
	result := &JobResult{JobID: job.ID, FileName: job.FileName}

	fail := func(msg string) {
		result.Error = msg
		result.Duration = time.Since(start)
		phase := PhaseFailed
		if ctx.Err() != nil {
			phase = PhaseCancelled
		}
		logger.Error("import failed", "error", msg, "phase", phase)
		s.finish(job, result, phase)
	}

	job.Progress.Phase = PhaseReading
	job.notifyProgress()

	data, err := os.ReadFile(job.Path)
	if err != nil {
		fail(fmt.Sprintf("read dump: %v", err))
		return
	}
	result.Checksum = fmt.Sprintf("%x", sha256.Sum256(data))

	job.Progress.Phase = PhaseParsing
	job.notifyProgress()

	sc := sqldump.NewScan(ctx, job.FileName, data, sqldump.Options{
		Encodings:               s.cfg.Encodings,
		BatchLimit:              s.cfg.BatchSize,
		DisableCommentStripping: s.cfg.DisableComments,
	})
	var records []sqldump.Record
	for sc.Next() {
		records = append(records, sc.Record())
		if len(records)%500 == 0 {
			stats := sc.Stats()
			job.Progress.Statements = stats.Statements
			job.Progress.Records = stats.Records
			job.Progress.Batches = stats.Batches
			job.notifyProgress()
		}
	}
	if err := sc.Err(); err != nil {
		fail(fmt.Sprintf("parse: %v", err))
		return
	}

	result.Stats = sc.Stats()
	result.Diagnostics = sc.Diagnostics()
	job.Progress.Statements = result.Stats.Statements
	job.Progress.Records = result.Stats.Records
	job.Progress.Batches = result.Stats.Batches
	job.Progress.Diagnostics = result.Stats.Diagnostics
	job.notifyProgress()

	if s.exec != nil && len(sc.Batches()) > 0 {
		job.Progress.Phase = PhaseExecuting
		job.notifyProgress()

		execRes, err := s.exec.ExecuteBatches(ctx, sc.Batches())
		if err != nil {
			fail(fmt.Sprintf("execute: %v", err))
			return
		}
		result.Exec = execRes
		job.Progress.Inserted = execRes.Inserted
		job.notifyProgress()
	}

	if s.idx != nil && len(records) > 0 {
		job.Progress.Phase = PhaseIndexing
		job.notifyProgress()

		bulkRes, err := s.idx.BulkIndex(ctx, indexer.ProjectAll(records, time.Now()))
		if err != nil {
			// Indexing is best-effort; the database work already committed.
			logger.Warn("indexing failed", "error", err)
		} else {
			result.Indexed = bulkRes.Indexed
			job.Progress.Indexed = bulkRes.Indexed
			job.notifyProgress()
		}
	}

	if err := s.markDone(job.Path); err != nil {
		fail(fmt.Sprintf("mark done: %v", err))
		return
	}

	result.Duration = time.Since(start)
	s.recordHistory(ctx, result, start)

	logger.Info("import complete",
		"records", result.Stats.Records,
		"batches", result.Stats.Batches,
		"inserted", result.Exec.Inserted,
		"indexed", result.Indexed,
		"diagnostics", result.Stats.Diagnostics,
		"duration", result.Duration,
	)
	s.finish(job, result, PhaseComplete)
}

// markDone renames a processed file so rescans skip it.
func (s *Service) markDone(path string) error {
	return os.Rename(path, path+s.cfg.DoneSuffix)
}

// recordHistory persists the run when a history handle is configured.
func (s *Service) recordHistory(ctx context.Context, result *JobResult, started time.Time) {
	if s.db == nil {
		return
	}
	status := "complete"
	if result.Exec.Failed > 0 {
		status = "partial"
	}
	row := executor.HistoryRow{
		ID:          executor.NewHistoryID(),
		FileName:    result.FileName,
		FileSHA256:  result.Checksum,
		Tables:      result.Stats.InsertDirectives,
		Records:     result.Stats.Records,
		Batches:     result.Stats.Batches,
		Failed:      result.Exec.Failed,
		Diagnostics: result.Stats.Diagnostics,
		Status:      status,
		StartedAt:   executor.Timestamp(started),
		FinishedAt:  executor.Timestamp(time.Now()),
	}
	if err := executor.RecordHistory(ctx, s.db, row); err != nil {
		logging.FromContext(ctx).Warn("record history failed", "error", err)
	}
}

// finish publishes the result, final phase, and unblocks waiters.
func (s *Service) finish(job *activeJob, result *JobResult, phase JobPhase) {
	job.Result = result
	job.Progress.Phase = phase
	job.Progress.Error = result.Error
	job.notifyProgress()
	job.closeListeners()
	close(job.Done)
	s.cleanup(job.ID, 5*time.Minute)
}

// cleanup removes the job from tracking after a delay.
func (s *Service) cleanup(jobID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.jobs, jobID)
		s.mu.Unlock()
	})
}

// SubscribeProgress returns a channel that receives progress updates.
// The channel is closed when the job completes.
func (s *Service) SubscribeProgress(jobID string) (<-chan JobProgress, error) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	ch := make(chan JobProgress, 10)

	job.ListenerMu.Lock()
	job.Listeners = append(job.Listeners, ch)
	// Send current progress immediately
	select {
	case ch <- job.Progress:
	default:
	}
	job.ListenerMu.Unlock()

	return ch, nil
}

// CancelJob cancels an in-progress import.
func (s *Service) CancelJob(jobID string) error {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("job not found: %s", jobID)
	}

	job.Cancel()
	return nil
}

// GetJobResult returns the result of a completed job.
// Blocks until the job completes if still in progress.
func (s *Service) GetJobResult(jobID string) (*JobResult, error) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	<-job.Done
	return job.Result, nil
}

// GetJobProgress returns the current progress without blocking.
func (s *Service) GetJobProgress(jobID string) (JobProgress, error) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()

	if !ok {
		return JobProgress{}, fmt.Errorf("job not found: %s", jobID)
	}

	return job.Progress, nil
}
