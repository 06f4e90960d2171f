package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestTelegramNotifySendsRenderedReport(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	n := NewTelegramNotifier("token-123", "chat-456", server.URL, 5*time.Second, zerolog.Nop())
	report := RunReport{
		Day:       time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC),
		Selected:  2500,
		Completed: 2498,
		Failed:    2,
		FailedJobs: []string{
			"3f2c6d9a-0000-0000-0000-000000000001",
			"3f2c6d9a-0000-0000-0000-000000000002",
		},
	}

	if err := n.Notify(context.Background(), report); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	if gotPath != "/bottoken-123/sendMessage" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotPayload["chat_id"] != "chat-456" {
		t.Fatalf("unexpected chat id %s", gotPayload["chat_id"])
	}
	text := gotPayload["text"]
	for _, want := range []string{"Day: 2026-08-31", "Selected: 2500", "Failed: 2", "Failed jobs:"} {
		if !strings.Contains(text, want) {
			t.Fatalf("report text missing %q:\n%s", want, text)
		}
	}
}

func TestTelegramNotifyRejectsAPIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false}`))
	}))
	defer server.Close()

	n := NewTelegramNotifier("token", "chat", server.URL, 5*time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), RunReport{Day: time.Now()}); err == nil {
		t.Fatal("expected error on ok=false response")
	}
}

func TestTelegramNotifyRejectsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n := NewTelegramNotifier("token", "chat", server.URL, 5*time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), RunReport{Day: time.Now()}); err == nil {
		t.Fatal("expected error on 502 response")
	}
}

func TestRenderReportIncludesRunError(t *testing.T) {
	text := renderReport(RunReport{
		Day: time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC),
		Err: errors.New("batch stalled"),
	})
	if !strings.Contains(text, "Error: batch stalled") {
		t.Fatalf("run error missing from report:\n%s", text)
	}
}
