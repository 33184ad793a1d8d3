package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMockClientQueuedResponses(t *testing.T) {
	m := NewMockClient().
		Queue(http.StatusOK, `{"ok":true}`).
		Queue(http.StatusNotFound, "missing")

	resp, err := m.Get("http://example.test/first")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != `{"ok":true}` {
		t.Errorf("first response = %d %q", resp.StatusCode, body)
	}

	resp, err = m.Get("http://example.test/second")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second response status = %d, want 404", resp.StatusCode)
	}

	if m.RequestCount() != 2 {
		t.Errorf("recorded %d requests, want 2", m.RequestCount())
	}
	if got := m.Request(0).URL.Path; got != "/first" {
		t.Errorf("first recorded path = %q", got)
	}
	if m.Request(5) != nil {
		t.Error("out-of-range Request should be nil")
	}
}

func TestMockClientQueuedError(t *testing.T) {
	wantErr := errors.New("connection refused")
	m := NewMockClient().QueueError(wantErr)
	if _, err := m.Get("http://example.test/"); !errors.Is(err, wantErr) {
		t.Errorf("got %v, want %v", err, wantErr)
	}
}

func TestMockClientDefaultsToEmptyOK(t *testing.T) {
	m := NewMockClient()
	resp, err := m.Get("http://example.test/")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestWriteJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	BadRequest(rec, "bad input")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if payload["error"] != "bad input" {
		t.Errorf("error message = %q", payload["error"])
	}
}
