package api

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smazurov/lampnode/internal/api/models"
	"github.com/smazurov/lampnode/internal/device"
	"github.com/smazurov/lampnode/internal/events"
	"github.com/smazurov/lampnode/internal/identity"
	"github.com/smazurov/lampnode/internal/logging"
)

type fixedState struct{ state device.State }

func (f fixedState) State() device.State { return f.state }

type fakeIndicator struct{ level bool }

func (f *fakeIndicator) Set(on bool) error { f.level = on; return nil }
func (f *fakeIndicator) Level() bool       { return f.level }
func (f *fakeIndicator) Name() string      { return "fake" }
func (f *fakeIndicator) Close() error      { return nil }

type connected bool

func (c connected) IsConnected() bool { return bool(c) }

type fakeService struct {
	status    string
	err       error
	restarted string
}

func (f *fakeService) GetServiceStatus(_ context.Context, name string) (string, error) {
	return f.status, f.err
}

func (f *fakeService) RestartService(_ context.Context, name string) error {
	f.restarted = name
	return f.err
}

const testUser, testPass = "admin", "secret"

func authHeader() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(testUser+":"+testPass))
}

func newTestServer(t *testing.T, opts *Options) *httptest.Server {
	t.Helper()
	opts.AuthUsername = testUser
	opts.AuthPassword = testPass
	ts := httptest.NewServer(NewServer(opts).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string, auth bool) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if auth {
		req.Header.Set("Authorization", authHeader())
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthNeedsNoAuth(t *testing.T) {
	ts := newTestServer(t, &Options{})

	resp := do(t, http.MethodGet, ts.URL+"/api/health", false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body models.HealthData
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("Status = %q, want ok", body.Status)
	}
}

func TestStatus(t *testing.T) {
	cache := identity.NewCache()
	cache.Store(identity.Installation, identity.NewObjectID("inst123"))

	ts := newTestServer(t, &Options{
		State:     fixedState{device.On},
		Cache:     cache,
		Indicator: &fakeIndicator{level: true},
		Push:      connected(true),
	})

	if resp := do(t, http.MethodGet, ts.URL+"/api/status", false); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	resp := do(t, http.MethodGet, ts.URL+"/api/status", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body models.StatusData
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.State != "on" {
		t.Errorf("State = %q, want on", body.State)
	}
	if !body.Indicator.Level || body.Indicator.Name != "fake" {
		t.Errorf("Indicator = %+v", body.Indicator)
	}
	if body.Identity.Installation != "inst123" || body.Identity.User != "" {
		t.Errorf("Identity = %+v", body.Identity)
	}
	if !body.PushConnected {
		t.Error("PushConnected = false, want true")
	}
}

func TestAuthQueryParameter(t *testing.T) {
	ts := newTestServer(t, &Options{State: fixedState{device.Blink}})

	tests := []struct {
		name string
		auth string
		want int
	}{
		{"valid", base64.StdEncoding.EncodeToString([]byte(testUser + ":" + testPass)), http.StatusOK},
		{"wrong password", base64.StdEncoding.EncodeToString([]byte(testUser + ":nope")), http.StatusUnauthorized},
		{"no colon", base64.StdEncoding.EncodeToString([]byte(testUser)), http.StatusUnauthorized},
		{"not base64", "not-base64!", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodGet, ts.URL+"/api/status?auth="+tt.auth, false)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if tt.want == http.StatusUnauthorized && resp.Header.Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestPressButton(t *testing.T) {
	var presses atomic.Int32
	ts := newTestServer(t, &Options{
		State: fixedState{device.Blink},
		Press: func() { presses.Add(1) },
	})

	resp := do(t, http.MethodPost, ts.URL+"/api/button", true)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if presses.Load() != 1 {
		t.Errorf("presses = %d, want 1", presses.Load())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("lampnode_lamp_state 1\n"))
	})
	ts := newTestServer(t, &Options{PrometheusHandler: handler})

	resp := do(t, http.MethodGet, ts.URL+"/metrics", false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestLogs(t *testing.T) {
	logging.GetLogger("apitest").Info("marker for log endpoint")

	ts := newTestServer(t, &Options{})
	resp := do(t, http.MethodGet, ts.URL+"/api/logs?limit=1000", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body models.LogsData
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	found := false
	for _, e := range body.Entries {
		if e.Module == "apitest" && e.Message == "marker for log endpoint" {
			found = true
		}
	}
	if !found {
		t.Errorf("marker entry not in %d entries", body.Count)
	}
}

func TestServiceRoutes(t *testing.T) {
	svc := &fakeService{status: "active"}
	ts := newTestServer(t, &Options{SystemdManager: svc, ServiceName: "lampnode.service"})

	resp := do(t, http.MethodGet, ts.URL+"/api/service/status", true)
	var status models.ServiceStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Status != "active" || status.Service != "lampnode.service" {
		t.Errorf("status = %+v", status)
	}

	resp = do(t, http.MethodPost, ts.URL+"/api/service/restart", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("restart status = %d, want 200", resp.StatusCode)
	}
	if svc.restarted != "lampnode.service" {
		t.Errorf("restarted = %q", svc.restarted)
	}

	svc.err = errors.New("dbus gone")
	if resp := do(t, http.MethodGet, ts.URL+"/api/service/status", true); resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("failing status = %d, want 500", resp.StatusCode)
	}
}

func TestEventStream(t *testing.T) {
	bus := events.New()
	ts := newTestServer(t, &Options{State: fixedState{device.Blink}, EventBus: bus})

	resp := do(t, http.MethodGet, ts.URL+"/api/events", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Fatalf("Content-Type = %q", ct)
	}

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	next := func(prefix string) string {
		t.Helper()
		timeout := time.After(2 * time.Second)
		for {
			select {
			case line := <-lines:
				if strings.HasPrefix(line, prefix) {
					return line
				}
			case <-timeout:
				t.Fatalf("timed out waiting for %q line", prefix)
				return ""
			}
		}
	}

	if ev := next("event:"); !strings.Contains(ev, "connected") {
		t.Fatalf("first event = %q, want connected", ev)
	}
	if data := next("data:"); !strings.Contains(data, `"state":"blink"`) {
		t.Errorf("connected data = %q", data)
	}

	bus.Publish(events.StateChangedEvent{From: "blink", To: "off", Source: "button"})

	if ev := next("event:"); !strings.Contains(ev, "state-changed") {
		t.Fatalf("event = %q, want state-changed", ev)
	}
	if data := next("data:"); !strings.Contains(data, `"to":"off"`) {
		t.Errorf("state-changed data = %q", data)
	}
}
