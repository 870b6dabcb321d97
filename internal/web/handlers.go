package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fuhsing/sqlingest/internal/executor"
	"github.com/fuhsing/sqlingest/internal/importer"
)

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleListFiles lists importable files waiting in the watch directory.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.service.ListPending()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if files == nil {
		files = []importer.PendingFile{}
	}
	writeJSON(w, map[string]any{"files": files})
}

// handleScan runs one pass over the watch directory and starts imports for
// every pending file.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	jobIDs, err := s.service.ScanOnce(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if jobIDs == nil {
		jobIDs = []string{}
	}
	writeJSON(w, map[string]any{"jobs": jobIDs})
}

// handleImport starts an import for one named file in the watch directory.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		File string `json:"file"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.File == "" {
		writeError(w, http.StatusBadRequest, "missing file name")
		return
	}

	jobID, err := s.service.StartImportByName(r.Context(), req.File)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintf(w, `{"jobId":%q}`, jobID)
}

// handleJobProgress streams job progress as Server-Sent Events until the job
// finishes or the client disconnects.
func (s *Server) handleJobProgress(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	progressCh, err := s.service.SubscribeProgress(jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// ResponseController resolves Flush through wrapping middleware.
	rc := http.NewResponseController(w)

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				// Channel closed: job reached a terminal phase.
				fmt.Fprintf(w, "event: complete\ndata: {}\n\n")
				rc.Flush()
				return
			}

			data, err := json.Marshal(progress)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
			rc.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleJobResult returns the final result of a job, blocking until the job
// completes. The request timeout middleware bounds the wait.
func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	result, err := s.service.GetJobResult(jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, result)
}

// diagnosticView is the JSON shape for one parse diagnostic.
type diagnosticView struct {
	StatementIndex int    `json:"statementIndex"`
	ByteOffset     int    `json:"byteOffset"`
	Reason         string `json:"reason"`
	Snippet        string `json:"snippet"`
}

// handleJobDiagnostics returns the parse diagnostics collected for a job,
// blocking until the job completes.
func (s *Server) handleJobDiagnostics(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	result, err := s.service.GetJobResult(jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	views := make([]diagnosticView, len(result.Diagnostics))
	for i, d := range result.Diagnostics {
		views[i] = diagnosticView{
			StatementIndex: d.StatementIndex,
			ByteOffset:     d.ByteOffset,
			Reason:         d.Reason.String(),
			Snippet:        d.Snippet,
		}
	}
	writeJSON(w, map[string]any{"diagnostics": views})
}

// handleCancelJob cancels an in-progress import job.
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	if err := s.service.CancelJob(jobID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "cancelled"})
}

// handleHistory returns recent import history rows, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "history requires a configured database")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	rows, err := executor.ListHistory(r.Context(), s.db, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []executor.HistoryRow{}
	}
	writeJSON(w, map[string]any{"history": rows})
}
