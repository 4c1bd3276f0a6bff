// Package audit handles the append-only audit trail for administrative actions
// such as forum moderation, user management, and certificate issuance. Audit
// records are intentionally separate from application logs because they have
// different consumers and retention requirements — application logs are
// ephemeral debug output consumed by on-call engineers, while audit records are
// immutable facts consumed by compliance reviewers and may be retained for
// years. The package supports optional shipping to external destinations
// (file, webhook) via the Shipper interface so records can be routed to a SIEM
// or log aggregator independently of the database copy.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

const (
	defaultWebhookTimeout = 10 * time.Second
	defaultFlushInterval  = 5 * time.Second
)

// LogEntry is the wire form of an audit record sent to external destinations.
type LogEntry struct {
	Timestamp    time.Time              `json:"timestamp"`
	Action       string                 `json:"action"`
	UserID       string                 `json:"user_id,omitempty"`
	ResourceType string                 `json:"resource_type,omitempty"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	Details      string                 `json:"details,omitempty"`
	IPAddress    string                 `json:"ip_address,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Shipper delivers audit records to one external destination.
type Shipper interface {
	Ship(ctx context.Context, entry *LogEntry) error
	Close() error
}

// ShipperConfig describes one audit destination.
type ShipperConfig struct {
	Enabled bool           `json:"enabled"`
	Type    string         `json:"type"` // "file" or "webhook"
	Webhook *WebhookConfig `json:"webhook,omitempty"`
	File    *FileConfig    `json:"file,omitempty"`
}

// WebhookConfig configures an HTTP destination.
type WebhookConfig struct {
	URL           string            `json:"url"`
	Headers       map[string]string `json:"headers,omitempty"`
	Timeout       time.Duration     `json:"timeout"`
	BatchSize     int               `json:"batch_size"` // 0 = ship each entry immediately
	FlushInterval time.Duration     `json:"flush_interval"`
}

// FileConfig configures a local JSON-lines file destination.
type FileConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"` // rotate above this size; 0 = never
	MaxBackups int    `json:"max_backups"`
}

// MultiShipper fans each entry out to every enabled destination.
type MultiShipper struct {
	mu       sync.RWMutex
	shippers []Shipper
}

// NewMultiShipper builds the configured destinations, skipping disabled
// entries. A config with no enabled destinations yields a working no-op
// shipper.
func NewMultiShipper(configs []ShipperConfig) (*MultiShipper, error) {
	ms := &MultiShipper{}
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		s, err := buildShipper(cfg)
		if err != nil {
			return nil, err
		}
		ms.shippers = append(ms.shippers, s)
	}
	return ms, nil
}

func buildShipper(cfg ShipperConfig) (Shipper, error) {
	switch cfg.Type {
	case "webhook":
		if cfg.Webhook == nil {
			return nil, fmt.Errorf("webhook config is required for webhook shipper")
		}
		return NewWebhookShipper(cfg.Webhook)
	case "file":
		if cfg.File == nil {
			return nil, fmt.Errorf("file config is required for file shipper")
		}
		return NewFileShipper(cfg.File)
	default:
		return nil, fmt.Errorf("unknown shipper type: %s", cfg.Type)
	}
}

// Ship delivers entry to every destination. A failing destination is logged
// and does not block the others; the last error is returned so the recorder
// can count failures.
func (ms *MultiShipper) Ship(ctx context.Context, entry *LogEntry) error {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var lastErr error
	for _, s := range ms.shippers {
		if err := s.Ship(ctx, entry); err != nil {
			lastErr = err
			slog.Error("audit shipper error", "error", err)
		}
	}
	return lastErr
}

// Close closes every destination, returning the last error seen.
func (ms *MultiShipper) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var lastErr error
	for _, s := range ms.shippers {
		if err := s.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// WebhookShipper posts audit records to an HTTP endpoint. With BatchSize > 0
// entries are queued and delivered as JSON arrays, flushed on size or
// interval; otherwise each entry posts immediately.
type WebhookShipper struct {
	cfg       *WebhookConfig
	client    *http.Client
	queue     chan *LogEntry
	pending   []*LogEntry
	pendingMu sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func NewWebhookShipper(cfg *WebhookConfig) (*WebhookShipper, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultWebhookTimeout
	}

	ws := &WebhookShipper{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		queue:  make(chan *LogEntry, 1000),
		done:   make(chan struct{}),
	}
	if cfg.BatchSize > 0 {
		go ws.batchLoop()
	}
	return ws, nil
}

func (ws *WebhookShipper) batchLoop() {
	interval := ws.cfg.FlushInterval
	if interval == 0 {
		interval = defaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case entry := <-ws.queue:
			ws.pendingMu.Lock()
			ws.pending = append(ws.pending, entry)
			if len(ws.pending) >= ws.cfg.BatchSize {
				ws.flushLocked()
			}
			ws.pendingMu.Unlock()
		case <-ticker.C:
			ws.pendingMu.Lock()
			ws.flushLocked()
			ws.pendingMu.Unlock()
		case <-ws.done:
			ws.pendingMu.Lock()
			ws.flushLocked()
			ws.pendingMu.Unlock()
			return
		}
	}
}

// flushLocked posts the pending batch. Caller holds pendingMu.
func (ws *WebhookShipper) flushLocked() {
	if len(ws.pending) == 0 {
		return
	}

	data, err := json.Marshal(ws.pending)
	ws.pending = ws.pending[:0]
	if err != nil {
		slog.Error("failed to marshal audit batch", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ws.client.Timeout)
	defer cancel()
	if err := ws.post(ctx, data); err != nil {
		slog.Error("failed to send audit batch", "error", err)
	}
}

// Ship queues entry when batching, falling back to a direct post when the
// queue is full so records are not dropped under burst.
func (ws *WebhookShipper) Ship(ctx context.Context, entry *LogEntry) error {
	if ws.cfg.BatchSize > 0 {
		select {
		case ws.queue <- entry:
			return nil
		default:
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	return ws.post(ctx, data)
}

func (ws *WebhookShipper) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range ws.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := ws.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Close stops the batch loop after a final flush.
func (ws *WebhookShipper) Close() error {
	ws.closeOnce.Do(func() { close(ws.done) })
	return nil
}

// FileShipper appends audit records to a local file as JSON lines, rotating
// on size with numbered backups.
type FileShipper struct {
	cfg  *FileConfig
	mu   sync.Mutex
	file *os.File
}

func NewFileShipper(cfg *FileConfig) (*FileShipper, error) {
	f, err := openAuditFile(cfg.Path)
	if err != nil {
		return nil, err
	}
	return &FileShipper{cfg: cfg, file: f}, nil
}

func openAuditFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	return f, nil
}

func (fs *FileShipper) Ship(ctx context.Context, entry *LogEntry) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.cfg.MaxSizeMB > 0 {
		if info, err := fs.file.Stat(); err == nil && info.Size() > int64(fs.cfg.MaxSizeMB)<<20 {
			if err := fs.rotate(); err != nil {
				slog.Error("failed to rotate audit log", "error", err)
			}
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	if _, err := fs.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// rotate shifts numbered backups up and reopens a fresh file. Caller holds mu.
func (fs *FileShipper) rotate() error {
	if err := fs.file.Close(); err != nil {
		return err
	}

	for i := fs.cfg.MaxBackups - 1; i >= 1; i-- {
		_ = os.Rename(
			fmt.Sprintf("%s.%d", fs.cfg.Path, i),
			fmt.Sprintf("%s.%d", fs.cfg.Path, i+1),
		)
	}
	_ = os.Rename(fs.cfg.Path, fs.cfg.Path+".1")
	if fs.cfg.MaxBackups > 0 {
		_ = os.Remove(fmt.Sprintf("%s.%d", fs.cfg.Path, fs.cfg.MaxBackups+1))
	}

	f, err := openAuditFile(fs.cfg.Path)
	if err != nil {
		return err
	}
	fs.file = f
	return nil
}

func (fs *FileShipper) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.file.Close()
}
