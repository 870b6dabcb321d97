package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fuhsing/sqlingest/internal/logging"
)

// Client ships documents to Elasticsearch over the _bulk endpoint.
type Client struct {
	baseURL  string
	user     string
	pass     string
	bulkSize int
	http     *http.Client
}

// NewClient returns a bulk client for baseURL. user and pass may be empty
// when the cluster runs without auth. bulkSize caps documents per request.
func NewClient(baseURL, user, pass string, bulkSize int, timeout time.Duration) *Client {
	if bulkSize <= 0 {
		bulkSize = 500
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		user:     user,
		pass:     pass,
		bulkSize: bulkSize,
		http:     &http.Client{Timeout: timeout},
	}
}

// BulkResult summarizes one BulkIndex call.
type BulkResult struct {
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
	} `json:"items"`
}

// BulkIndex sends docs in bulkSize chunks. Per-document rejections are
// counted in the result; the error covers transport and non-2xx responses.
func (c *Client) BulkIndex(ctx context.Context, docs []Document) (BulkResult, error) {
	var result BulkResult
	logger := logging.FromContext(ctx)

	for start := 0; start < len(docs); start += c.bulkSize {
		end := start + c.bulkSize
		if end > len(docs) {
			end = len(docs)
		}

		body, err := encodeBulk(docs[start:end])
		if err != nil {
			return result, err
		}

		resp, err := c.send(ctx, body)
		if err != nil {
			return result, err
		}

		for _, item := range resp.Items {
			// Each item holds exactly one action key ("index").
			for _, status := range item {
				if status.Status >= 200 && status.Status < 300 {
					result.Indexed++
				} else {
					result.Failed++
				}
			}
		}
	}

	logger.Debug("bulk index finished", "indexed", result.Indexed, "failed", result.Failed)
	return result, nil
}

// encodeBulk renders the NDJSON action/source pairs for one request.
func encodeBulk(docs []Document) ([]byte, error) {
	var buf bytes.Buffer
	for _, doc := range docs {
		action := map[string]map[string]string{
			"index": {"_index": doc.Index, "_id": doc.ID},
		}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return nil, fmt.Errorf("encode bulk action: %w", err)
		}
		if err := json.NewEncoder(&buf).Encode(doc.Fields); err != nil {
			return nil, fmt.Errorf("encode bulk document: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func (c *Client) send(ctx context.Context, body []byte) (*bulkResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/_bulk", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build bulk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bulk request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("bulk request: status %d: %s", resp.StatusCode, snippet)
	}

	var parsed bulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode bulk response: %w", err)
	}
	return &parsed, nil
}

// Ping checks cluster reachability.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("search ping: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("search ping: status %d", resp.StatusCode)
	}
	return nil
}
