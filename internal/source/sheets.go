package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/JonMunkholm/attendance/internal/config"
	"github.com/JonMunkholm/attendance/internal/core"
	"github.com/JonMunkholm/attendance/internal/logging"
	"github.com/JonMunkholm/attendance/internal/metrics"
)

// MaxSheetBytes caps a sign-in sheet download.
const MaxSheetBytes = 50 * 1024 * 1024

// ExportURL returns the CSV export link of a Google Sheets document.
// An empty gid exports the first tab.
func ExportURL(spreadsheetID, gid string) string {
	u := url.URL{
		Scheme: "https",
		Host:   "docs.google.com",
		Path:   "/spreadsheets/d/" + spreadsheetID + "/export",
	}
	q := url.Values{"format": {"csv"}}
	if gid != "" {
		q.Set("gid", gid)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// SheetURL returns the configured override or the export link built from
// the spreadsheet id.
func SheetURL(cfg config.SourceConfig) string {
	if cfg.ExportURL != "" {
		return cfg.ExportURL
	}
	return ExportURL(cfg.SpreadsheetID, cfg.SheetGID)
}

// Fetcher downloads the sign-in sheet export.
type Fetcher struct {
	client *http.Client
	url    string
}

// NewFetcher creates a fetcher for cfg. A nil client uses one with
// cfg.FetchTimeout.
func NewFetcher(cfg config.SourceConfig, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.FetchTimeout}
	}
	return &Fetcher{client: client, url: SheetURL(cfg)}
}

// Fetch downloads the whole export into memory so the store transaction
// per row never waits on the network.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	logger := logging.FromContext(ctx)
	start := time.Now()
	status := "error"
	defer func() { metrics.RecordSheetFetch(status, time.Since(start).Seconds()) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", core.ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch sheet: %w", core.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: fetch sheet: HTTP %d", core.ErrSourceUnavailable, resp.StatusCode)
	}
	// A private sheet answers 200 with a sign-in page.
	if mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil && mediaType == "text/html" {
		return nil, fmt.Errorf("%w: fetch sheet: got HTML, is the sheet shared?", core.ErrSourceUnavailable)
	}

	counter := NewCountingReader(io.LimitReader(resp.Body, MaxSheetBytes+1))
	data, err := io.ReadAll(counter)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet: %w", core.ErrSourceUnavailable, err)
	}
	if counter.BytesRead > MaxSheetBytes {
		return nil, fmt.Errorf("%w: sheet exceeds %d bytes", core.ErrSourceUnavailable, MaxSheetBytes)
	}

	logger.Info("sheet downloaded",
		"bytes", counter.BytesRead,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return data, nil
}

// Source fetches the sheet and returns a row source over it.
func (f *Fetcher) Source(ctx context.Context, name string, required ...string) (core.RowSource, error) {
	data, err := f.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return NewCSVSource(name, bytes.NewReader(data), required...), nil
}
