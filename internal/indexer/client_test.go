package indexer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testDocs(n int) []Document {
	docs := make([]Document, n)
	for i := range docs {
		docs[i] = Document{
			Index:  "erp-t-2026.08.25",
			ID:     strings.Repeat("a", 63) + string(rune('a'+i%26)),
			Fields: map[string]any{"field_x": i},
		}
	}
	return docs
}

func bulkOK(n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = `{"index":{"status":201}}`
	}
	return `{"errors":false,"items":[` + strings.Join(items, ",") + `]}`
}

func TestBulkIndex(t *testing.T) {
	var gotBody string
	var gotAuth string
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/_bulk" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		io.WriteString(w, bulkOK(2))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "elastic", "secret", 500, time.Second)
	res, err := c.BulkIndex(context.Background(), testDocs(2))
	if err != nil {
		t.Fatal(err)
	}
	if res.Indexed != 2 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	if gotContentType != "application/x-ndjson" {
		t.Errorf("content type = %q", gotContentType)
	}
	if !strings.HasPrefix(gotAuth, "Basic ") {
		t.Errorf("auth header = %q", gotAuth)
	}

	// Two NDJSON lines per document: action then source.
	lines := strings.Split(strings.TrimRight(gotBody, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d ndjson lines, want 4: %q", len(lines), gotBody)
	}
	var action struct {
		Index struct {
			IndexName string `json:"_index"`
			ID        string `json:"_id"`
		} `json:"index"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &action); err != nil {
		t.Fatal(err)
	}
	if action.Index.IndexName != "erp-t-2026.08.25" || action.Index.ID == "" {
		t.Errorf("action line = %+v", action)
	}
}

func TestBulkIndexChunks(t *testing.T) {
	var requests int
	var perRequest []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		b, _ := io.ReadAll(r.Body)
		n := strings.Count(string(b), "\n") / 2
		perRequest = append(perRequest, n)
		io.WriteString(w, bulkOK(n))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", 3, time.Second)
	res, err := c.BulkIndex(context.Background(), testDocs(7))
	if err != nil {
		t.Fatal(err)
	}
	if requests != 3 {
		t.Errorf("got %d requests, want 3", requests)
	}
	if res.Indexed != 7 {
		t.Errorf("indexed = %d, want 7", res.Indexed)
	}
	want := []int{3, 3, 1}
	for i, n := range want {
		if perRequest[i] != n {
			t.Errorf("request %d carried %d docs, want %d", i, perRequest[i], n)
		}
	}
}

func TestBulkIndexPartialRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"errors":true,"items":[{"index":{"status":201}},{"index":{"status":429}}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", 500, time.Second)
	res, err := c.BulkIndex(context.Background(), testDocs(2))
	if err != nil {
		t.Fatal(err)
	}
	if res.Indexed != 1 || res.Failed != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestBulkIndexServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", 500, time.Second)
	if _, err := c.BulkIndex(context.Background(), testDocs(1)); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestBulkIndexEmpty(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", "", 500, time.Second)
	res, err := c.BulkIndex(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Indexed != 0 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"cluster_name":"test"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", 500, time.Second)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}

	c = NewClient("http://127.0.0.1:1", "", "", 500, 100*time.Millisecond)
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected error for unreachable cluster")
	}
}
