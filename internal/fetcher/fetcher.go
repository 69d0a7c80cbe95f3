// Package fetcher pulls demographic features from an ArcGIS FeatureServer
// and stages them as timestamped snapshot files for the pipeline.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultPageSize = 2000
	defaultWorkers  = 5
)

// Client fetches the full feature set of one FeatureServer layer.
type Client struct {
	serverURL  string
	stagingDir string
	client     *http.Client
	pageSize   int
	workers    int
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Client) { f.client = c }
}

// WithPageSize sets how many records one query page requests.
func WithPageSize(n int) Option {
	return func(f *Client) { f.pageSize = n }
}

// WithWorkers sets the concurrency for parallel page fetching.
func WithWorkers(n int) Option {
	return func(f *Client) { f.workers = n }
}

// WithClock overrides the time source used for snapshot filenames.
func WithClock(now func() time.Time) Option {
	return func(f *Client) { f.now = now }
}

// New creates a Client for the given FeatureServer base URL (ending at
// ".../FeatureServer") writing snapshots into stagingDir.
func New(serverURL, stagingDir string, opts ...Option) *Client {
	c := &Client{
		serverURL:  serverURL,
		stagingDir: stagingDir,
		client:     &http.Client{Timeout: 30 * time.Second},
		pageSize:   defaultPageSize,
		workers:    defaultWorkers,
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type queryResponse struct {
	Count    *int              `json:"count"`
	Features []json.RawMessage `json:"features"`
	Error    *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Fetch downloads every feature of layer 0 page by page and writes one
// snapshot file named demographic_data_YYYYMMDD_HHMMSS.json into the staging
// directory. Returns the written path and the number of features.
func (c *Client) Fetch(ctx context.Context) (string, int, error) {
	count, err := c.featureCount(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("feature count: %w", err)
	}

	pages := (count + c.pageSize - 1) / c.pageSize
	slog.Info("fetcher: starting download", "features", count, "pages", pages)

	// Pages land in their slot so the snapshot keeps server order no matter
	// which worker finished first.
	results := make([][]json.RawMessage, pages)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i := range pages {
		g.Go(func() error {
			features, err := c.fetchPage(gctx, i*c.pageSize)
			if err != nil {
				return fmt.Errorf("page at offset %d: %w", i*c.pageSize, err)
			}
			results[i] = features
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", 0, err
	}

	var features []json.RawMessage
	for _, page := range results {
		features = append(features, page...)
	}

	path, err := c.writeSnapshot(features)
	if err != nil {
		return "", 0, err
	}

	slog.Info("fetcher: snapshot staged", "file", filepath.Base(path), "features", len(features))
	return path, len(features), nil
}

func (c *Client) featureCount(ctx context.Context) (int, error) {
	params := url.Values{
		"where":           {"1=1"},
		"returnCountOnly": {"true"},
		"f":               {"json"},
	}

	resp, err := c.query(ctx, params)
	if err != nil {
		return 0, err
	}
	if resp.Count == nil {
		return 0, fmt.Errorf("server returned no count")
	}
	return *resp.Count, nil
}

func (c *Client) fetchPage(ctx context.Context, offset int) ([]json.RawMessage, error) {
	params := url.Values{
		"where":             {"1=1"},
		"outFields":         {"*"},
		"returnGeometry":    {"false"},
		"f":                 {"json"},
		"resultOffset":      {strconv.Itoa(offset)},
		"resultRecordCount": {strconv.Itoa(c.pageSize)},
	}

	resp, err := c.query(ctx, params)
	if err != nil {
		return nil, err
	}
	return resp.Features, nil
}

func (c *Client) query(ctx context.Context, params url.Values) (*queryResponse, error) {
	queryURL := fmt.Sprintf("%s/0/query?%s", c.serverURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query feature server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("feature server returned %d: %s", resp.StatusCode, body)
	}

	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	// ArcGIS reports errors inside a 200 response.
	if qr.Error != nil {
		return nil, fmt.Errorf("feature server error %d: %s", qr.Error.Code, qr.Error.Message)
	}

	return &qr, nil
}

// writeSnapshot writes the features via a temp file and rename, so the
// pipeline can never discover a half-written snapshot.
func (c *Client) writeSnapshot(features []json.RawMessage) (string, error) {
	if err := os.MkdirAll(c.stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	if features == nil {
		features = []json.RawMessage{}
	}
	data, err := json.Marshal(features)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	name := fmt.Sprintf("demographic_data_%s.json", c.now().Format("20060102_150405"))
	path := filepath.Join(c.stagingDir, name)

	tmp, err := os.CreateTemp(c.stagingDir, ".snapshot-*")
	if err != nil {
		return "", fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("stage snapshot: %w", err)
	}

	return path, nil
}
