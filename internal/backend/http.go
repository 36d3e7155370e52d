package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/lampnode/internal/events"
	"github.com/smazurov/lampnode/internal/version"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultQueueSize = 32
	maxResponseBody  = 64 << 10
)

// HTTPConfig configures an HTTPTransport.
type HTTPConfig struct {
	BaseURL        string
	ApplicationID  string
	ClientKey      string
	SessionToken   string
	InstallationID string
	Timeout        time.Duration
	QueueSize      int
}

type job struct {
	req Request
	cb  Callback
}

type completion struct {
	cb   Callback
	resp Response
}

// HTTPTransport performs requests on a single worker goroutine, in the order
// they were sent, and parks their completions until Dispatch.
type HTTPTransport struct {
	cfg        HTTPConfig
	httpClient *http.Client
	bus        *events.Bus
	logger     *slog.Logger

	queue    chan job
	mu       sync.Mutex
	done     []completion
	notify   func()
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHTTPTransport creates a transport and starts its worker.
func NewHTTPTransport(cfg HTTPConfig, bus *events.Bus, logger *slog.Logger) *HTTPTransport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = slog.Default()
	}

	t := &HTTPTransport{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		bus:        bus,
		logger:     logger,
		queue:      make(chan job, cfg.QueueSize),
		stopChan:   make(chan struct{}),
	}

	t.wg.Add(1)
	go t.run()
	return t
}

// OnComplete registers fn to be called, from the worker goroutine, each time
// a completion is parked. fn must not block.
func (t *HTTPTransport) OnComplete(fn func()) {
	t.mu.Lock()
	t.notify = fn
	t.mu.Unlock()
}

// Send queues req. When the queue is full the request is dropped and cb is
// handed ErrQueueFull on the next Dispatch.
func (t *HTTPTransport) Send(req Request, cb Callback) {
	select {
	case t.queue <- job{req: req, cb: cb}:
	default:
		t.logger.Warn("Backend queue full, dropping request", "operation", req.Operation, "path", req.Path)
		t.park(cb, Response{Err: ErrQueueFull})
	}
}

// Dispatch runs pending callbacks on the caller's goroutine.
func (t *HTTPTransport) Dispatch() int {
	t.mu.Lock()
	done := t.done
	t.done = nil
	t.mu.Unlock()

	for _, c := range done {
		if c.cb != nil {
			c.cb(c.resp)
		}
	}
	return len(done)
}

// Stop stops the worker. Requests still queued are abandoned.
func (t *HTTPTransport) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
	})
	t.wg.Wait()
}

func (t *HTTPTransport) run() {
	defer t.wg.Done()
	for {
		select {
		case j := <-t.queue:
			resp := t.do(j.req)
			t.park(j.cb, resp)
		case <-t.stopChan:
			return
		}
	}
}

func (t *HTTPTransport) park(cb Callback, resp Response) {
	t.mu.Lock()
	t.done = append(t.done, completion{cb: cb, resp: resp})
	notify := t.notify
	t.mu.Unlock()

	if notify != nil {
		notify()
	}
}

func (t *HTTPTransport) do(req Request) Response {
	start := time.Now()
	resp := t.roundTrip(req)
	elapsed := time.Since(start)

	attrs := []any{
		"operation", req.Operation,
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration", elapsed,
	}
	if resp.Err != nil {
		t.logger.Warn("Backend request failed", append(attrs, "error", resp.Err)...)
	} else {
		t.logger.Debug("Backend request completed", attrs...)
	}

	if t.bus != nil {
		ev := events.BackendRequestEvent{
			Operation:  req.Operation,
			Method:     req.Method,
			StatusCode: resp.StatusCode,
			Seconds:    elapsed.Seconds(),
		}
		if resp.Err != nil {
			ev.Error = resp.Err.Error()
		}
		t.bus.Publish(ev)
	}
	return resp
}

func (t *HTTPTransport) roundTrip(req Request) Response {
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.Timeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, t.cfg.BaseURL+req.Path, body)
	if err != nil {
		return Response{Err: fmt.Errorf("failed to build request: %w", err)}
	}
	t.setHeaders(httpReq)

	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return Response{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return Response{StatusCode: httpResp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	resp := Response{StatusCode: httpResp.StatusCode, Body: data}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		resp.Err = statusError(httpResp.StatusCode)
	}
	return resp
}

func (t *HTTPTransport) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if t.cfg.ApplicationID != "" {
		req.Header.Set("X-Parse-Application-Id", t.cfg.ApplicationID)
	}
	if t.cfg.ClientKey != "" {
		req.Header.Set("X-Parse-Client-Key", t.cfg.ClientKey)
	}
	if t.cfg.SessionToken != "" {
		req.Header.Set("X-Parse-Session-Token", t.cfg.SessionToken)
	}
	if t.cfg.InstallationID != "" {
		req.Header.Set("X-Parse-Installation-Id", t.cfg.InstallationID)
	}
}
