package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fuhsing/sqlingest/internal/config"
)

func testConfig(dir string) config.ImporterConfig {
	return config.ImporterConfig{
		WatchDir:      dir,
		ScanInterval:  10 * time.Millisecond,
		BatchSize:     2,
		MaxFileSize:   1 << 20,
		MaxConcurrent: 2,
		Timeout:       time.Minute,
		DoneSuffix:    ".done",
	}
}

func writeDump(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleDump = `-- sample dump
INSERT INTO employees (id, name) VALUES (1, 'Alice'), (2, 'Bob'), (3, N'測試');
INSERT INTO t (a) VALUES (9);`

func TestStartImport(t *testing.T) {
	dir := t.TempDir()
	path := writeDump(t, dir, "a.sql", sampleDump)
	svc := NewService(testConfig(dir), nil, nil, nil)

	jobID, err := svc.StartImport(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	res, err := svc.GetJobResult(jobID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Error != "" {
		t.Fatalf("job failed: %s", res.Error)
	}
	if res.Stats.Records != 4 {
		t.Errorf("records = %d, want 4", res.Stats.Records)
	}
	if res.Stats.InsertDirectives != 2 {
		t.Errorf("insert directives = %d, want 2", res.Stats.InsertDirectives)
	}
	// BatchSize 2 splits the three-record statement into two batches.
	if res.Stats.Batches != 3 {
		t.Errorf("batches = %d, want 3", res.Stats.Batches)
	}

	prog, err := svc.GetJobProgress(jobID)
	if err != nil {
		t.Fatal(err)
	}
	if prog.Phase != PhaseComplete {
		t.Errorf("phase = %s, want %s", prog.Phase, PhaseComplete)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("processed file was not renamed")
	}
	if _, err := os.Stat(path + ".done"); err != nil {
		t.Errorf("done file missing: %v", err)
	}
}

func TestStartImportSizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := writeDump(t, dir, "big.sql", sampleDump)

	cfg := testConfig(dir)
	cfg.MaxFileSize = 4
	svc := NewService(cfg, nil, nil, nil)

	if _, err := svc.StartImport(context.Background(), path); err == nil {
		t.Fatal("expected size limit error")
	}
}

func TestStartImportMissingFile(t *testing.T) {
	svc := NewService(testConfig(t.TempDir()), nil, nil, nil)
	if _, err := svc.StartImport(context.Background(), "/nonexistent/x.sql"); err == nil {
		t.Fatal("expected stat error")
	}
}

func TestListPending(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, "b.sql", sampleDump)
	writeDump(t, dir, "a.sql", sampleDump)
	writeDump(t, dir, "c.sql.done", sampleDump)
	writeDump(t, dir, "notes.txt", "hello")

	svc := NewService(testConfig(dir), nil, nil, nil)
	files, err := svc.ListPending()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d pending files: %+v", len(files), files)
	}
	if files[0].Name != "a.sql" || files[1].Name != "b.sql" {
		t.Errorf("unexpected order: %+v", files)
	}
}

func TestScanOnce(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, "one.sql", sampleDump)
	writeDump(t, dir, "two.sql", sampleDump)
	writeDump(t, dir, "done.sql.done", sampleDump)

	svc := NewService(testConfig(dir), nil, nil, nil)
	jobIDs, err := svc.ScanOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(jobIDs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobIDs))
	}

	for _, id := range jobIDs {
		res, err := svc.GetJobResult(id)
		if err != nil {
			t.Fatal(err)
		}
		if res.Error != "" {
			t.Errorf("job %s failed: %s", id, res.Error)
		}
	}

	files, err := svc.ListPending()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Errorf("files left pending after scan: %+v", files)
	}
}

func TestSubscribeProgress(t *testing.T) {
	dir := t.TempDir()
	path := writeDump(t, dir, "a.sql", sampleDump)
	svc := NewService(testConfig(dir), nil, nil, nil)

	jobID, err := svc.StartImport(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	ch, err := svc.SubscribeProgress(jobID)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.GetJobResult(jobID); err != nil {
		t.Fatal(err)
	}

	var last JobProgress
	for {
		select {
		case p, ok := <-ch:
			if !ok {
				if last.Phase != PhaseComplete {
					t.Errorf("last phase = %s, want %s", last.Phase, PhaseComplete)
				}
				return
			}
			last = p
		case <-time.After(200 * time.Millisecond):
			// Subscribed after completion; verify via the snapshot API.
			prog, err := svc.GetJobProgress(jobID)
			if err != nil {
				t.Fatal(err)
			}
			if prog.Phase != PhaseComplete {
				t.Errorf("phase = %s, want %s", prog.Phase, PhaseComplete)
			}
			return
		}
	}
}

func TestJobLookupErrors(t *testing.T) {
	svc := NewService(testConfig(t.TempDir()), nil, nil, nil)

	if _, err := svc.SubscribeProgress("missing"); err == nil {
		t.Error("SubscribeProgress should fail for unknown job")
	}
	if err := svc.CancelJob("missing"); err == nil {
		t.Error("CancelJob should fail for unknown job")
	}
	if _, err := svc.GetJobResult("missing"); err == nil {
		t.Error("GetJobResult should fail for unknown job")
	}
	if _, err := svc.GetJobProgress("missing"); err == nil {
		t.Error("GetJobProgress should fail for unknown job")
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeDump(t, dir, "w.sql", sampleDump)
	svc := NewService(testConfig(dir), nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Watch(ctx)

	deadline := time.After(2 * time.Second)
	for {
		if _, err := os.Stat(path + ".done"); err == nil {
			return
		}
		select {
		case <-deadline:
			t.Fatal("watcher never processed the file")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
